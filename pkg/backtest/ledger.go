package backtest

import (
	"errors"
	"fmt"
	"time"
)

// ErrOrderRejected marks an expected business rejection (insufficient cash,
// degenerate quantity). No Trade is recorded; the run continues.
var ErrOrderRejected = errors.New("order rejected")

// PositionLot is one open position. Quantity is signed: positive for a
// long leg, negative for a short leg. CostBasis is the signed net cash
// outflow at entry (negative for shorts, whose proceeds were credited).
type PositionLot struct {
	Symbol     string
	PairName   string
	Quantity   int64
	CostBasis  float64
	EntryTime  time.Time
	EntryPrice float64 // execution price after slippage
}

// Trade is an immutable record created when a position lot closes.
type Trade struct {
	Symbol        string    `json:"symbol"`
	PairName      string    `json:"pair_name"`
	EntryTime     time.Time `json:"entry_time"`
	ExitTime      time.Time `json:"exit_time"`
	EntryPrice    float64   `json:"entry_price"`
	ExitPrice     float64   `json:"exit_price"`
	Quantity      int64     `json:"quantity"` // signed as held
	PNL           float64   `json:"pnl"`
	ReturnPct     float64   `json:"return_pct"`
	DurationHours float64   `json:"duration_hours"`
	ExitReason    string    `json:"exit_reason"`
}

// EquityPoint is one sample of the portfolio value over time.
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Ledger tracks cash, open lots and completed trades for one backtest run.
// Owned exclusively by the Simulator; never shared across runs.
type Ledger struct {
	cash        float64
	positions   map[string]*PositionLot
	trades      []Trade
	equity      []EquityPoint
	commission  float64
	slippagePct float64
}

// NewLedger creates a ledger with the given starting cash.
func NewLedger(initialCapital, commissionPerTrade, slippagePct float64) *Ledger {
	return &Ledger{
		cash:        initialCapital,
		positions:   make(map[string]*PositionLot),
		commission:  commissionPerTrade,
		slippagePct: slippagePct,
	}
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 { return l.cash }

// Trades returns the completed trade list.
func (l *Ledger) Trades() []Trade { return l.trades }

// EquityCurve returns the recorded equity samples.
func (l *Ledger) EquityCurve() []EquityPoint { return l.equity }

// Position returns the open lot for symbol, if any.
func (l *Ledger) Position(symbol string) (*PositionLot, bool) {
	lot, ok := l.positions[symbol]
	return lot, ok
}

// OpenPositionCount returns the number of open lots.
func (l *Ledger) OpenPositionCount() int { return len(l.positions) }

// buyPrice applies adverse slippage to a buy.
func (l *Ledger) buyPrice(marketPrice float64) float64 {
	return marketPrice * (1 + l.slippagePct)
}

// sellPrice applies adverse slippage to a sell.
func (l *Ledger) sellPrice(marketPrice float64) float64 {
	return marketPrice * (1 - l.slippagePct)
}

// OpenLong buys qty shares at market price plus slippage. Rejected if the
// total cost exceeds available cash; an order fills fully or not at all.
func (l *Ledger) OpenLong(symbol, pairName string, qty int64, marketPrice float64, t time.Time) error {
	if qty <= 0 {
		return fmt.Errorf("%w: non-positive quantity %d for %s", ErrOrderRejected, qty, symbol)
	}
	if _, exists := l.positions[symbol]; exists {
		return fmt.Errorf("%w: position already open for %s", ErrOrderRejected, symbol)
	}

	px := l.buyPrice(marketPrice)
	cost := float64(qty)*px + l.commission
	if cost > l.cash {
		return fmt.Errorf("%w: insufficient cash for %s (need %.2f, have %.2f)",
			ErrOrderRejected, symbol, cost, l.cash)
	}

	l.cash -= cost
	l.positions[symbol] = &PositionLot{
		Symbol:     symbol,
		PairName:   pairName,
		Quantity:   qty,
		CostBasis:  cost,
		EntryTime:  t,
		EntryPrice: px,
	}
	return nil
}

// OpenShort sells qty shares short at market price minus slippage. The
// proceeds are credited immediately; the lot carries a negative quantity.
func (l *Ledger) OpenShort(symbol, pairName string, qty int64, marketPrice float64, t time.Time) error {
	if qty <= 0 {
		return fmt.Errorf("%w: non-positive quantity %d for %s", ErrOrderRejected, qty, symbol)
	}
	if _, exists := l.positions[symbol]; exists {
		return fmt.Errorf("%w: position already open for %s", ErrOrderRejected, symbol)
	}

	px := l.sellPrice(marketPrice)
	proceeds := float64(qty)*px - l.commission

	l.cash += proceeds
	l.positions[symbol] = &PositionLot{
		Symbol:     symbol,
		PairName:   pairName,
		Quantity:   -qty,
		CostBasis:  -proceeds,
		EntryTime:  t,
		EntryPrice: px,
	}
	return nil
}

// RollbackOpen reverses a just-opened lot exactly, restoring cash. Used when
// the second leg of a pair entry is rejected so no naked leg survives.
func (l *Ledger) RollbackOpen(symbol string) {
	lot, ok := l.positions[symbol]
	if !ok {
		return
	}
	l.cash += lot.CostBasis
	delete(l.positions, symbol)
}

// Close unwinds the full open lot for symbol at the given market price and
// records a Trade. Closing trades are never rejected: they reduce exposure.
// Returns an error only when no lot exists or the quantity does not match
// the opened quantity, which indicates a strategy bookkeeping bug.
func (l *Ledger) Close(symbol string, qty int64, marketPrice float64, t time.Time, reason string) (Trade, error) {
	lot, ok := l.positions[symbol]
	if !ok {
		return Trade{}, fmt.Errorf("close %s: no open position", symbol)
	}
	if qty <= 0 || qty != abs64(lot.Quantity) {
		return Trade{}, fmt.Errorf("close %s: quantity %d does not match open lot %d",
			symbol, qty, lot.Quantity)
	}

	var px, cashDelta float64
	if lot.Quantity > 0 {
		// Sell to close a long
		px = l.sellPrice(marketPrice)
		cashDelta = float64(qty)*px - l.commission
	} else {
		// Buy to cover a short
		px = l.buyPrice(marketPrice)
		cashDelta = -(float64(qty)*px + l.commission)
	}

	// Longs: proceeds - cost basis. Shorts: entry proceeds - cover cost.
	// Both reduce to the cash delta at exit minus the signed basis at entry.
	pnl := cashDelta - lot.CostBasis

	l.cash += cashDelta

	basisAbs := lot.CostBasis
	if basisAbs < 0 {
		basisAbs = -basisAbs
	}
	returnPct := 0.0
	if basisAbs > 1e-10 {
		returnPct = pnl / basisAbs * 100
	}

	trade := Trade{
		Symbol:        symbol,
		PairName:      lot.PairName,
		EntryTime:     lot.EntryTime,
		ExitTime:      t,
		EntryPrice:    lot.EntryPrice,
		ExitPrice:     px,
		Quantity:      lot.Quantity,
		PNL:           pnl,
		ReturnPct:     returnPct,
		DurationHours: t.Sub(lot.EntryTime).Hours(),
		ExitReason:    reason,
	}
	l.trades = append(l.trades, trade)
	delete(l.positions, symbol)
	return trade, nil
}

// MarkEquity values the portfolio at the given prices and appends a sample
// to the equity curve: cash plus signed quantity times last price per lot.
// Lots whose symbol has no price yet are valued at their entry price.
func (l *Ledger) MarkEquity(t time.Time, lastPrices map[string]float64) EquityPoint {
	total := l.cash
	for sym, lot := range l.positions {
		px, ok := lastPrices[sym]
		if !ok {
			px = lot.EntryPrice
		}
		total += float64(lot.Quantity) * px
	}
	point := EquityPoint{Timestamp: t, Value: total}
	l.equity = append(l.equity, point)
	return point
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
