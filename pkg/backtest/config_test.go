package backtest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Backtest: BacktestSettings{
			Name:      "test",
			StartDate: "2025-01-01",
			EndDate:   "2025-06-30",
			Data: DataSettings{
				SourceType: "csv",
				DataPath:   "./data",
				Symbols:    []string{"AAA", "BBB"},
			},
			InitialCapital:     100000,
			CommissionPerTrade: 1,
			SlippagePct:        0.001,
		},
		Strategy: StrategySettings{
			LookbackPeriod:         60,
			MinCorrelation:         0.7,
			MaxCointegrationPValue: 0.05,
			EntryThreshold:         2.0,
			ExitThreshold:          0.5,
			StopLossThreshold:      3.0,
			MaxPairs:               5,
			RebalanceFrequencyDays: 30,
			PositionSizeUSD:        20000,
		},
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "Valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "Missing start date",
			mutate:  func(c *Config) { c.Backtest.StartDate = "" },
			wantErr: "start_date",
		},
		{
			name:    "Bad date format",
			mutate:  func(c *Config) { c.Backtest.StartDate = "01/02/2025" },
			wantErr: "start_date",
		},
		{
			name: "End before start",
			mutate: func(c *Config) {
				c.Backtest.StartDate = "2025-06-30"
				c.Backtest.EndDate = "2025-01-01"
			},
			wantErr: "end_date",
		},
		{
			name:    "Non-positive capital",
			mutate:  func(c *Config) { c.Backtest.InitialCapital = 0 },
			wantErr: "initial_capital",
		},
		{
			name:    "Negative commission",
			mutate:  func(c *Config) { c.Backtest.CommissionPerTrade = -1 },
			wantErr: "commission_per_trade",
		},
		{
			name:    "Slippage out of range",
			mutate:  func(c *Config) { c.Backtest.SlippagePct = 1.5 },
			wantErr: "slippage_pct",
		},
		{
			name:    "One symbol only",
			mutate:  func(c *Config) { c.Backtest.Data.Symbols = []string{"AAA"} },
			wantErr: "two symbols",
		},
		{
			name:    "Lookback too short",
			mutate:  func(c *Config) { c.Strategy.LookbackPeriod = 10 },
			wantErr: "lookback_period",
		},
		{
			name:    "Exit above entry",
			mutate:  func(c *Config) { c.Strategy.ExitThreshold = 2.5 },
			wantErr: "exit_threshold",
		},
		{
			name:    "Stop loss below entry",
			mutate:  func(c *Config) { c.Strategy.StopLossThreshold = 1.5 },
			wantErr: "stop_loss_threshold",
		},
		{
			name:    "Zero position size",
			mutate:  func(c *Config) { c.Strategy.PositionSizeUSD = 0 },
			wantErr: "position_size_usd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	content := `
backtest:
  name: "yaml_test"
  start_date: "2025-01-01"
  end_date: "2025-03-31"
  data:
    source_type: "csv"
    data_path: "./data"
    symbols: [AAA, BBB, CCC]
  initial_capital: 50000
  commission_per_trade: 0.5
  slippage_pct: 0.0005
strategy:
  lookback_period: 90
  min_correlation: 0.8
  max_cointegration_pvalue: 0.05
  entry_threshold: 2.0
  exit_threshold: 0.5
  stop_loss_threshold: 3.5
  max_pairs: 3
  rebalance_frequency_days: 14
  position_size_usd: 10000
output:
  result_dir: "./results"
  save_trades: true
`
	path := filepath.Join(t.TempDir(), "backtest.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.Backtest.Name != "yaml_test" {
		t.Errorf("Name = %q, want yaml_test", cfg.Backtest.Name)
	}
	if len(cfg.Backtest.Data.Symbols) != 3 {
		t.Errorf("Symbols = %v, want 3 entries", cfg.Backtest.Data.Symbols)
	}
	if cfg.Strategy.LookbackPeriod != 90 {
		t.Errorf("LookbackPeriod = %d, want 90", cfg.Strategy.LookbackPeriod)
	}
	if !cfg.Output.SaveTrades {
		t.Error("SaveTrades = false, want true")
	}

	// Date helpers parse the configured range
	if cfg.StartTime().Year() != 2025 || cfg.StartTime().Month() != 1 {
		t.Errorf("StartTime() = %v, want 2025-01-01", cfg.StartTime())
	}
	if !cfg.EndTime().After(cfg.StartTime()) {
		t.Error("EndTime() not after StartTime()")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/backtest.yaml"); err == nil {
		t.Error("LoadConfig() on missing file succeeded, want error")
	}
}
