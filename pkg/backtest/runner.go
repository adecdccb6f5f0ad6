package backtest

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/yourusername/statarb-engine/pkg/marketdata"
	"github.com/yourusername/statarb-engine/pkg/pairs"
	"github.com/yourusername/statarb-engine/pkg/strategy"
)

// Runner wires a configured data store, pair analyzer, strategy engine and
// simulator into one ready-to-run backtest.
type Runner struct {
	config *Config
	store  marketdata.Store
	series map[string]marketdata.PriceSeries
}

// NewRunner creates a runner and opens the configured data store.
func NewRunner(config *Config) (*Runner, error) {
	store, err := openStore(config)
	if err != nil {
		return nil, err
	}
	return &Runner{config: config, store: store}, nil
}

// openStore builds the Store implementation named by the config.
func openStore(config *Config) (marketdata.Store, error) {
	data := config.Backtest.Data
	switch data.SourceType {
	case "csv", "":
		return marketdata.NewCSVStore(data.DataPath), nil
	case "parquet":
		return marketdata.NewParquetStore(data.DataPath), nil
	case "sqlite":
		return marketdata.OpenSQLiteStore(data.DataPath)
	default:
		return nil, fmt.Errorf("unknown data source_type %q (want csv, parquet or sqlite)", data.SourceType)
	}
}

// LoadData reads and validates the configured symbols. Unreadable symbols
// are skipped with a log line; malformed series abort.
func (r *Runner) LoadData(ctx context.Context) error {
	series, skipped, err := marketdata.LoadAll(ctx, r.store,
		r.config.Backtest.Data.Symbols, r.config.StartTime(), r.config.EndTime())
	if err != nil {
		return err
	}
	for _, sym := range skipped {
		log.Printf("[Runner] symbol %s skipped: no usable data in range", sym)
	}
	if len(series) < 2 {
		return fmt.Errorf("need at least 2 symbols with data, have %d", len(series))
	}

	r.series = series
	log.Printf("[Runner] loaded %d symbols", len(series))
	return nil
}

// Series exposes the loaded price data (for the optimizer).
func (r *Runner) Series() map[string]marketdata.PriceSeries { return r.series }

// Store exposes the opened data store.
func (r *Runner) Store() marketdata.Store { return r.store }

// Run executes the configured backtest. The context cancels cooperatively
// between timestamps; SIGINT/SIGTERM are mapped onto it.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if r.series == nil {
		if err := r.LoadData(ctx); err != nil {
			return nil, err
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := r.config.Strategy
	analyzer := pairs.NewAnalyzer(pairs.Config{
		LookbackPeriod: s.LookbackPeriod,
		MinCorrelation: s.MinCorrelation,
		MaxPValue:      s.MaxCointegrationPValue,
		MaxPairs:       s.MaxPairs,
		Workers:        s.AnalyzerWorkers,
	})
	engine := strategy.NewEngine(strategy.EngineConfig{
		Thresholds: strategy.Thresholds{
			Entry:    s.EntryThreshold,
			Exit:     s.ExitThreshold,
			StopLoss: s.StopLossThreshold,
		},
		RebalanceFrequencyDays: s.RebalanceFrequencyDays,
		PositionSizeUSD:        s.PositionSizeUSD,
	}, analyzer)

	sim := NewSimulator(r.config.Backtest.CommissionPerTrade, r.config.Backtest.SlippagePct)
	sim.WindowBars = s.LookbackPeriod
	return sim.Run(ctx, engine, r.series, r.config.StartTime(), r.config.EndTime(),
		r.config.Backtest.InitialCapital)
}

// Close releases store resources where the backend holds any.
func (r *Runner) Close() {
	if closer, ok := r.store.(interface{ Close() error }); ok {
		closer.Close()
	}
}
