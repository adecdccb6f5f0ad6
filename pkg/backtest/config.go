// Package backtest implements the event-driven replay simulator, the
// virtual trade ledger and the performance analytics over a completed run.
package backtest

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the full backtest configuration
type Config struct {
	Backtest BacktestSettings `yaml:"backtest"`
	Strategy StrategySettings `yaml:"strategy"`
	Output   OutputSettings   `yaml:"output"`
	Publish  PublishSettings  `yaml:"publish"`
}

// BacktestSettings contains replay-specific settings
type BacktestSettings struct {
	Name               string       `yaml:"name"`
	StartDate          string       `yaml:"start_date"` // YYYY-MM-DD
	EndDate            string       `yaml:"end_date"`   // YYYY-MM-DD
	Data               DataSettings `yaml:"data"`
	InitialCapital     float64      `yaml:"initial_capital"`
	CommissionPerTrade float64      `yaml:"commission_per_trade"`
	SlippagePct        float64      `yaml:"slippage_pct"` // e.g. 0.001 = 10 bps
}

// DataSettings contains data source settings
type DataSettings struct {
	SourceType string   `yaml:"source_type"` // csv, parquet, sqlite
	DataPath   string   `yaml:"data_path"`
	Symbols    []string `yaml:"symbols"`
}

// StrategySettings contains the pair-selection and signal parameters
type StrategySettings struct {
	LookbackPeriod         int     `yaml:"lookback_period"`
	MinCorrelation         float64 `yaml:"min_correlation"`
	MaxCointegrationPValue float64 `yaml:"max_cointegration_pvalue"`
	EntryThreshold         float64 `yaml:"entry_threshold"`
	ExitThreshold          float64 `yaml:"exit_threshold"`
	StopLossThreshold      float64 `yaml:"stop_loss_threshold"`
	MaxPairs               int     `yaml:"max_pairs"`
	RebalanceFrequencyDays int     `yaml:"rebalance_frequency_days"`
	PositionSizeUSD        float64 `yaml:"position_size_usd"`
	AnalyzerWorkers        int     `yaml:"analyzer_workers"`
}

// OutputSettings contains report output settings
type OutputSettings struct {
	ResultDir      string `yaml:"result_dir"`
	SaveTrades     bool   `yaml:"save_trades"`
	SaveEquity     bool   `yaml:"save_equity"`
	GenerateReport bool   `yaml:"generate_report"`
	ReportFormat   string `yaml:"report_format"` // markdown, json
}

// PublishSettings contains optional NATS publishing settings
type PublishSettings struct {
	Enabled  bool   `yaml:"enabled"`
	NATSAddr string `yaml:"nats_addr"`
}

// LoadConfig loads backtest configuration from a YAML file
func LoadConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Backtest.StartDate == "" {
		return fmt.Errorf("start_date is required")
	}
	if c.Backtest.EndDate == "" {
		return fmt.Errorf("end_date is required")
	}

	startDate, err := time.Parse("2006-01-02", c.Backtest.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start_date format (expected YYYY-MM-DD): %w", err)
	}
	endDate, err := time.Parse("2006-01-02", c.Backtest.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end_date format (expected YYYY-MM-DD): %w", err)
	}
	if endDate.Before(startDate) {
		return fmt.Errorf("end_date must be after start_date")
	}

	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive")
	}
	if c.Backtest.CommissionPerTrade < 0 {
		return fmt.Errorf("commission_per_trade must not be negative")
	}
	if c.Backtest.SlippagePct < 0 || c.Backtest.SlippagePct >= 1 {
		return fmt.Errorf("slippage_pct must be in [0, 1)")
	}
	if len(c.Backtest.Data.Symbols) < 2 {
		return fmt.Errorf("at least two symbols are required for pair trading")
	}

	s := c.Strategy
	if s.LookbackPeriod < 30 {
		return fmt.Errorf("lookback_period must be at least 30")
	}
	if s.MinCorrelation < 0 || s.MinCorrelation > 1 {
		return fmt.Errorf("min_correlation must be in [0, 1]")
	}
	if s.MaxCointegrationPValue <= 0 || s.MaxCointegrationPValue > 1 {
		return fmt.Errorf("max_cointegration_pvalue must be in (0, 1]")
	}
	if s.EntryThreshold <= 0 {
		return fmt.Errorf("entry_threshold must be positive")
	}
	if s.ExitThreshold < 0 || s.ExitThreshold >= s.EntryThreshold {
		return fmt.Errorf("exit_threshold must be in [0, entry_threshold)")
	}
	if s.StopLossThreshold <= s.EntryThreshold {
		return fmt.Errorf("stop_loss_threshold must exceed entry_threshold")
	}
	if s.MaxPairs <= 0 {
		return fmt.Errorf("max_pairs must be positive")
	}
	if s.RebalanceFrequencyDays <= 0 {
		return fmt.Errorf("rebalance_frequency_days must be positive")
	}
	if s.PositionSizeUSD <= 0 {
		return fmt.Errorf("position_size_usd must be positive")
	}

	return nil
}

// StartTime returns the parsed start date (UTC midnight)
func (c *Config) StartTime() time.Time {
	t, _ := time.Parse("2006-01-02", c.Backtest.StartDate)
	return t.UTC()
}

// EndTime returns the parsed end date, inclusive of the whole day
func (c *Config) EndTime() time.Time {
	t, _ := time.Parse("2006-01-02", c.Backtest.EndDate)
	return t.UTC().Add(24*time.Hour - time.Nanosecond)
}
