package backtest

import (
	"math"

	"github.com/yourusername/statarb-engine/pkg/stats"
)

// tradingDaysPerYear is the annualization factor for daily bars.
const tradingDaysPerYear = 252

// Stats summarizes a completed backtest run.
type Stats struct {
	TotalReturnPct float64 `json:"total_return_pct"`
	TotalPNL       float64 `json:"total_pnl"`

	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	ProfitFactor  float64 `json:"profit_factor"`
	AvgWin        float64 `json:"avg_win"`
	AvgLoss       float64 `json:"avg_loss"`

	Volatility     float64 `json:"volatility"` // annualized
	SharpeRatio    float64 `json:"sharpe_ratio"`
	MaxDrawdown    float64 `json:"max_drawdown"`     // <= 0, in currency
	MaxDrawdownPct float64 `json:"max_drawdown_pct"` // <= 0
}

// ComputeStats is a pure function over the equity curve and trade list.
// All degenerate cases (no trades, flat equity) yield well-defined zeros
// rather than NaN.
func ComputeStats(equity []EquityPoint, trades []Trade, initialCapital float64) Stats {
	var s Stats

	if len(equity) > 0 && initialCapital > 0 {
		final := equity[len(equity)-1].Value
		s.TotalReturnPct = (final/initialCapital - 1) * 100
		s.TotalPNL = final - initialCapital
	}

	s.TotalTrades = len(trades)
	var sumWins, sumLosses float64
	for _, t := range trades {
		if t.PNL > 0 {
			s.WinningTrades++
			sumWins += t.PNL
		} else if t.PNL < 0 {
			s.LosingTrades++
			sumLosses += -t.PNL
		}
	}

	// Win rate is 0 with no trades, not a division error
	if s.TotalTrades > 0 {
		s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades)
	}
	if s.WinningTrades > 0 {
		s.AvgWin = sumWins / float64(s.WinningTrades)
	}
	if s.LosingTrades > 0 {
		s.AvgLoss = sumLosses / float64(s.LosingTrades)
	}

	switch {
	case sumLosses > 0:
		s.ProfitFactor = sumWins / sumLosses
	case sumWins > 0:
		// No losing trades with at least one winner
		s.ProfitFactor = math.Inf(1)
	}

	values := make([]float64, len(equity))
	for i, p := range equity {
		values[i] = p.Value
	}
	returns := stats.PctChange(values)

	meanRet := stats.Mean(returns)
	stdRet := stats.SampleStdDev(returns)
	s.Volatility = stdRet * math.Sqrt(tradingDaysPerYear)
	if stdRet > 0 {
		s.SharpeRatio = meanRet * tradingDaysPerYear / s.Volatility
	}

	s.MaxDrawdown, s.MaxDrawdownPct = maxDrawdown(values)
	return s
}

// maxDrawdown returns the deepest decline from a running peak, in currency
// and as a percentage of the peak at the trough. Both are non-positive.
func maxDrawdown(values []float64) (dd, ddPct float64) {
	if len(values) == 0 {
		return 0, 0
	}

	peak := values[0]
	for _, v := range values {
		if v > peak {
			peak = v
		}
		drop := v - peak
		if drop < dd {
			dd = drop
			if peak > 1e-10 {
				ddPct = drop / peak * 100
			}
		}
	}
	return dd, ddPct
}

// DrawdownCurve maps the equity curve to per-sample drawdown from the
// running peak (non-positive values, currency units).
func DrawdownCurve(equity []EquityPoint) []EquityPoint {
	if len(equity) == 0 {
		return nil
	}

	out := make([]EquityPoint, len(equity))
	peak := equity[0].Value
	for i, p := range equity {
		if p.Value > peak {
			peak = p.Value
		}
		out[i] = EquityPoint{Timestamp: p.Timestamp, Value: p.Value - peak}
	}
	return out
}
