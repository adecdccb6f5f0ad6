package marketdata

import (
	"context"
	"fmt"
	"time"
)

// Store supplies historical price series per symbol. Implementations are
// queried once per backtest run (not per tick); the simulation loop itself
// performs no I/O.
type Store interface {
	// ReadSeries returns the series for symbol within [start, end], in
	// ascending timestamp order.
	ReadSeries(ctx context.Context, symbol string, start, end time.Time) (PriceSeries, error)

	// WriteSeries persists a batch of observations for one symbol.
	WriteSeries(ctx context.Context, series PriceSeries) error

	// ListSymbols returns all symbols available in the store.
	ListSymbols(ctx context.Context) ([]string, error)
}

// LoadAll reads and validates the series for every requested symbol.
// A symbol whose data cannot be read is skipped (recoverable, logged by the
// caller); a series that fails validation aborts the load, since a malformed
// input must not silently produce a misleading backtest.
func LoadAll(ctx context.Context, store Store, symbols []string, start, end time.Time) (map[string]PriceSeries, []string, error) {
	out := make(map[string]PriceSeries, len(symbols))
	var skipped []string

	for _, symbol := range symbols {
		series, err := store.ReadSeries(ctx, symbol, start, end)
		if err != nil {
			skipped = append(skipped, symbol)
			continue
		}
		if len(series.Points) == 0 {
			skipped = append(skipped, symbol)
			continue
		}
		if err := series.Validate(); err != nil {
			return nil, nil, fmt.Errorf("loading %s: %w", symbol, err)
		}
		out[symbol] = series
	}
	return out, skipped, nil
}
