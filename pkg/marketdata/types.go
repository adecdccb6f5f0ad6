// Package marketdata defines the historical price series model consumed by
// the strategy engine, plus CSV / Parquet / SQLite backed stores.
package marketdata

import (
	"fmt"
	"sort"
	"time"
)

// PricePoint is a single OHLCV observation for one symbol.
type PricePoint struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// PriceSeries is an ascending, duplicate-free sequence of price points for
// one symbol. Gaps (non-trading days) are allowed.
type PriceSeries struct {
	Symbol string
	Points []PricePoint
}

// Len returns the number of observations.
func (s PriceSeries) Len() int {
	return len(s.Points)
}

// Validate checks the series ordering invariants. Out-of-order or duplicate
// timestamps are fatal input errors; the message carries symbol and timestamp
// so the caller can diagnose the bad record.
func (s PriceSeries) Validate() error {
	for i := 1; i < len(s.Points); i++ {
		prev, cur := s.Points[i-1].Timestamp, s.Points[i].Timestamp
		if cur.Equal(prev) {
			return fmt.Errorf("series %s: duplicate timestamp %s", s.Symbol, cur.Format(time.RFC3339))
		}
		if cur.Before(prev) {
			return fmt.Errorf("series %s: out-of-order timestamp %s (after %s)",
				s.Symbol, cur.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
	}
	return nil
}

// Closes returns the close prices in timestamp order.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

// Slice returns the sub-series with Timestamp in [start, end].
func (s PriceSeries) Slice(start, end time.Time) PriceSeries {
	lo := sort.Search(len(s.Points), func(i int) bool {
		return !s.Points[i].Timestamp.Before(start)
	})
	hi := sort.Search(len(s.Points), func(i int) bool {
		return s.Points[i].Timestamp.After(end)
	})
	return PriceSeries{Symbol: s.Symbol, Points: s.Points[lo:hi]}
}

// LastClose returns the most recent close at or before t.
func (s PriceSeries) LastClose(t time.Time) (float64, bool) {
	idx := sort.Search(len(s.Points), func(i int) bool {
		return s.Points[i].Timestamp.After(t)
	})
	if idx == 0 {
		return 0, false
	}
	return s.Points[idx-1].Close, true
}

// AlignCloses intersects two series on their common timestamps and returns
// the paired close prices. Both series must already be validated.
func AlignCloses(a, b PriceSeries) (closesA, closesB []float64) {
	i, j := 0, 0
	for i < len(a.Points) && j < len(b.Points) {
		ta, tb := a.Points[i].Timestamp, b.Points[j].Timestamp
		switch {
		case ta.Equal(tb):
			closesA = append(closesA, a.Points[i].Close)
			closesB = append(closesB, b.Points[j].Close)
			i++
			j++
		case ta.Before(tb):
			i++
		default:
			j++
		}
	}
	return closesA, closesB
}

// MergedTimestamps returns the sorted union of all timestamps across the
// given series, restricted to [start, end]. This is the event index the
// backtest simulator walks.
func MergedTimestamps(series map[string]PriceSeries, start, end time.Time) []time.Time {
	seen := make(map[int64]time.Time)
	for _, s := range series {
		for _, p := range s.Points {
			if p.Timestamp.Before(start) || p.Timestamp.After(end) {
				continue
			}
			seen[p.Timestamp.UnixNano()] = p.Timestamp
		}
	}

	out := make([]time.Time, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
