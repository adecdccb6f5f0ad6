package backtest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/statarb-engine/pkg/marketdata"
	"github.com/yourusername/statarb-engine/pkg/strategy"
)

// Strategy is the signal source driven by the replay loop.
// *strategy.Engine satisfies it; tests can plug in scripted stubs.
type Strategy interface {
	GenerateSignals(ctx context.Context, md strategy.MarketData) []strategy.Signal
	OnEntryRejected(pairName string)
}

// Result is the complete outcome of one backtest run. Read-only once
// Run returns; serializable for downstream reporting.
type Result struct {
	StartTime      time.Time         `json:"start_time"`
	EndTime        time.Time         `json:"end_time"`
	InitialCapital float64           `json:"initial_capital"`
	FinalEquity    float64           `json:"final_equity"`
	Trades         []Trade           `json:"trades"`
	Signals        []strategy.Signal `json:"signals,omitempty"` // executed legs, in fill order
	EquityCurve    []EquityPoint     `json:"equity_curve"`
	DrawdownCurve  []EquityPoint     `json:"drawdown_curve"`
	Stats          Stats             `json:"stats"`
	RejectedOrders int               `json:"rejected_orders"`
}

// Simulator replays historical prices through a strategy and executes the
// returned signals against a virtual ledger. Strictly sequential over time;
// all mutable state is scoped to one instance so independent runs can
// execute in parallel without synchronization.
type Simulator struct {
	Commission  float64
	SlippagePct float64
	WindowBars  int // max bars per symbol handed to the strategy; 0 = full history
}

// NewSimulator creates a Simulator with the given execution frictions.
func NewSimulator(commissionPerTrade, slippagePct float64) *Simulator {
	return &Simulator{Commission: commissionPerTrade, SlippagePct: slippagePct}
}

// Run executes the event-driven replay over [start, end].
//
// Malformed input (out-of-order or duplicate timestamps) aborts the run:
// a partial result over bad data would be misleading. Expected business
// outcomes (order rejections, no-signal ticks) never abort.
func (s *Simulator) Run(ctx context.Context, strat Strategy, series map[string]marketdata.PriceSeries,
	start, end time.Time, initialCapital float64) (*Result, error) {

	for sym, ps := range series {
		if err := ps.Validate(); err != nil {
			return nil, fmt.Errorf("input series %s: %w", sym, err)
		}
	}

	timestamps := marketdata.MergedTimestamps(series, start, end)
	if len(timestamps) == 0 {
		return nil, fmt.Errorf("no price data in [%s, %s]",
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	ledger := NewLedger(initialCapital, s.Commission, s.SlippagePct)

	// Per-symbol cursor into the full series; the window handed to the
	// strategy is always a prefix, so there is no look-ahead.
	cursors := make(map[string]int, len(series))
	windows := make(map[string]marketdata.PriceSeries, len(series))
	lastPrices := make(map[string]float64, len(series))

	rejected := 0
	var executed []strategy.Signal
	for _, ts := range timestamps {
		// Cooperative stop between timestamps for long backtests
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("backtest stopped at %s: %w", ts.Format(time.RFC3339), ctx.Err())
		default:
		}

		for sym, ps := range series {
			i := cursors[sym]
			for i < len(ps.Points) && !ps.Points[i].Timestamp.After(ts) {
				lastPrices[sym] = ps.Points[i].Close
				i++
			}
			cursors[sym] = i

			// The window is always a bounded prefix ending at the current
			// cursor, so there is no look-ahead and no unbounded growth
			lo := 0
			if s.WindowBars > 0 && i > s.WindowBars {
				lo = i - s.WindowBars
			}
			windows[sym] = marketdata.PriceSeries{Symbol: sym, Points: ps.Points[lo:i]}
		}

		signals := strat.GenerateSignals(ctx, strategy.MarketData{
			Timestamp: ts,
			Cash:      ledger.Cash(),
			Series:    windows,
		})

		filled, n, err := s.execute(ledger, strat, signals, ts)
		if err != nil {
			return nil, err
		}
		executed = append(executed, filled...)
		rejected += n

		ledger.MarkEquity(ts, lastPrices)
	}

	equity := ledger.EquityCurve()
	result := &Result{
		StartTime:      timestamps[0],
		EndTime:        timestamps[len(timestamps)-1],
		InitialCapital: initialCapital,
		FinalEquity:    equity[len(equity)-1].Value,
		Trades:         ledger.Trades(),
		Signals:        executed,
		EquityCurve:    equity,
		DrawdownCurve:  DrawdownCurve(equity),
		Stats:          ComputeStats(equity, ledger.Trades(), initialCapital),
		RejectedOrders: rejected,
	}

	log.Printf("[BacktestSimulator] run complete: %d ticks, %d trades, %d rejected orders, final equity %.2f",
		len(timestamps), len(result.Trades), rejected, result.FinalEquity)
	return result, nil
}

// execute applies one tick's signals to the ledger in emission order.
// Entry legs of the same pair form an atomic group: if any leg is rejected
// the already-executed legs are rolled back and the strategy is notified,
// so a rejection never leaves a naked single leg. Exit legs always execute.
// Returns the filled signals and the number of rejected entry groups.
func (s *Simulator) execute(ledger *Ledger, strat Strategy, signals []strategy.Signal, ts time.Time) ([]strategy.Signal, int, error) {
	var filled []strategy.Signal
	rejected := 0
	for i := 0; i < len(signals); {
		sig := signals[i]
		switch meta := sig.Meta.(type) {
		case strategy.EntryMeta:
			// Collect the consecutive legs of this pair entry
			group := []strategy.Signal{sig}
			for i+len(group) < len(signals) {
				next := signals[i+len(group)]
				if m, ok := next.Meta.(strategy.EntryMeta); ok && m.Pair == meta.Pair {
					group = append(group, next)
					continue
				}
				break
			}
			i += len(group)

			if s.executeEntryGroup(ledger, group, meta.Pair, ts) {
				filled = append(filled, group...)
			} else {
				strat.OnEntryRejected(meta.Pair)
				rejected++
			}

		case strategy.ExitMeta:
			i++
			if _, err := ledger.Close(sig.Symbol, sig.Quantity, sig.Price, ts, string(meta.Reason)); err != nil {
				// Quantity mismatch or phantom position: bookkeeping bug,
				// abort rather than produce a misleading result
				return filled, rejected, fmt.Errorf("at %s: %w", ts.Format(time.RFC3339), err)
			}
			filled = append(filled, sig)

		default:
			return filled, rejected, fmt.Errorf("at %s: signal for %s has unknown metadata %T",
				ts.Format(time.RFC3339), sig.Symbol, sig.Meta)
		}
	}
	return filled, rejected, nil
}

// executeEntryGroup opens all legs or none. Reports success.
func (s *Simulator) executeEntryGroup(ledger *Ledger, group []strategy.Signal, pairName string, ts time.Time) bool {
	var opened []string
	for _, sig := range group {
		var err error
		switch sig.Direction {
		case strategy.DirectionBuy:
			err = ledger.OpenLong(sig.Symbol, pairName, sig.Quantity, sig.Price, ts)
		case strategy.DirectionSell:
			err = ledger.OpenShort(sig.Symbol, pairName, sig.Quantity, sig.Price, ts)
		default:
			err = fmt.Errorf("%w: unknown direction %q", ErrOrderRejected, sig.Direction)
		}

		if err != nil {
			if !errors.Is(err, ErrOrderRejected) {
				// Only rejections are expected here; treat anything else
				// the same way and keep the ledger consistent
				log.Printf("[BacktestSimulator] unexpected open failure for %s: %v", sig.Symbol, err)
			}
			for _, sym := range opened {
				ledger.RollbackOpen(sym)
			}
			log.Printf("[BacktestSimulator] entry rejected for pair %s at %s: %v",
				pairName, ts.Format("2006-01-02"), err)
			return false
		}
		opened = append(opened, sig.Symbol)
	}
	return true
}
