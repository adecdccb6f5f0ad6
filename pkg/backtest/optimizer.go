package backtest

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/statarb-engine/pkg/marketdata"
	"github.com/yourusername/statarb-engine/pkg/pairs"
	"github.com/yourusername/statarb-engine/pkg/strategy"
)

// ParameterOptimizer performs parameter optimization using grid search.
// Each combination runs in a fully isolated engine + simulator instance,
// so runs share only the read-only price series.
type ParameterOptimizer struct {
	baseConfig  *Config
	series      map[string]marketdata.PriceSeries
	paramRanges map[string]*ParamRange
	goal        OptimizationGoal
	maxWorkers  int
}

// ParamRange defines the range for a parameter
type ParamRange struct {
	Name string
	Min  float64
	Max  float64
	Step float64
}

// OptimizationGoal defines the optimization objective
type OptimizationGoal string

const (
	GoalSharpeRatio  OptimizationGoal = "sharpe"
	GoalTotalPNL     OptimizationGoal = "pnl"
	GoalWinRate      OptimizationGoal = "win_rate"
	GoalProfitFactor OptimizationGoal = "profit_factor"
)

// OptimizationResult stores the result of a single parameter combination
type OptimizationResult struct {
	Parameters map[string]float64
	Stats      Stats
	Rank       int
	Score      float64
}

// NewParameterOptimizer creates a new parameter optimizer
func NewParameterOptimizer(baseConfig *Config, series map[string]marketdata.PriceSeries) *ParameterOptimizer {
	return &ParameterOptimizer{
		baseConfig:  baseConfig,
		series:      series,
		paramRanges: make(map[string]*ParamRange),
		goal:        GoalSharpeRatio,
		maxWorkers:  4,
	}
}

// AddParamRange adds a parameter range for optimization. Supported names:
// entry_threshold, exit_threshold, stop_loss_threshold, position_size_usd.
func (opt *ParameterOptimizer) AddParamRange(name string, min, max, step float64) {
	opt.paramRanges[name] = &ParamRange{Name: name, Min: min, Max: max, Step: step}
}

// SetOptimizationGoal sets the optimization objective
func (opt *ParameterOptimizer) SetOptimizationGoal(goal OptimizationGoal) {
	opt.goal = goal
}

// SetMaxWorkers sets the maximum number of parallel workers
func (opt *ParameterOptimizer) SetMaxWorkers(workers int) {
	if workers < 1 {
		workers = 1
	}
	if workers > 16 {
		workers = 16
	}
	opt.maxWorkers = workers
}

// GridSearch performs grid search optimization, returning results sorted
// by score descending.
func (opt *ParameterOptimizer) GridSearch(ctx context.Context) ([]*OptimizationResult, error) {
	log.Println("[Optimizer] Starting grid search optimization...")
	log.Printf("[Optimizer] Optimization goal: %s", opt.goal)
	log.Printf("[Optimizer] Max workers: %d", opt.maxWorkers)

	combinations := opt.generateCombinations()
	totalCombinations := len(combinations)
	log.Printf("[Optimizer] Total parameter combinations: %d", totalCombinations)

	if totalCombinations == 0 {
		return nil, fmt.Errorf("no parameter combinations to test")
	}

	results := make([]*OptimizationResult, 0, totalCombinations)
	var resultsMutex sync.Mutex
	var wg sync.WaitGroup

	semaphore := make(chan struct{}, opt.maxWorkers)
	startTime := time.Now()

	for i, params := range combinations {
		wg.Add(1)
		go func(idx int, paramSet map[string]float64) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			result, err := opt.runBacktestWithParams(ctx, paramSet)
			if err != nil {
				log.Printf("[Optimizer] Error testing combination %d/%d: %v", idx+1, totalCombinations, err)
				return
			}

			resultsMutex.Lock()
			results = append(results, result)
			progress := float64(len(results)) / float64(totalCombinations) * 100
			log.Printf("[Optimizer] Progress: %d/%d (%.1f%%) - Score: %.4f",
				len(results), totalCombinations, progress, result.Score)
			resultsMutex.Unlock()
		}(i, params)
	}
	wg.Wait()

	if len(results) == 0 {
		return nil, fmt.Errorf("all parameter combinations failed")
	}

	// Equal scores fall back to parameter order so ranking is reproducible
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return lessParams(results[i].Parameters, results[j].Parameters)
	})
	for i, r := range results {
		r.Rank = i + 1
	}

	log.Printf("[Optimizer] Grid search complete in %v, best score %.4f",
		time.Since(startTime).Round(time.Millisecond), results[0].Score)
	return results, nil
}

// lessParams compares two parameter sets by value in sorted name order.
func lessParams(a, b map[string]float64) bool {
	names := make([]string, 0, len(a))
	for name := range a {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if a[name] != b[name] {
			return a[name] < b[name]
		}
	}
	return false
}

// generateCombinations expands the parameter ranges into a full grid.
// Parameter names are iterated in sorted order so the grid is deterministic.
func (opt *ParameterOptimizer) generateCombinations() []map[string]float64 {
	names := make([]string, 0, len(opt.paramRanges))
	for name := range opt.paramRanges {
		names = append(names, name)
	}
	sort.Strings(names)

	combinations := []map[string]float64{{}}
	for _, name := range names {
		r := opt.paramRanges[name]
		var expanded []map[string]float64
		for v := r.Min; v <= r.Max+1e-9; v += r.Step {
			for _, combo := range combinations {
				next := make(map[string]float64, len(combo)+1)
				for k, val := range combo {
					next[k] = val
				}
				next[name] = v
				expanded = append(expanded, next)
			}
		}
		combinations = expanded
	}
	return combinations
}

// runBacktestWithParams runs one fully isolated backtest for a parameter set.
func (opt *ParameterOptimizer) runBacktestWithParams(ctx context.Context, params map[string]float64) (*OptimizationResult, error) {
	cfg := *opt.baseConfig // shallow copy is fine: only scalar strategy fields change
	for name, v := range params {
		switch name {
		case "entry_threshold":
			cfg.Strategy.EntryThreshold = v
		case "exit_threshold":
			cfg.Strategy.ExitThreshold = v
		case "stop_loss_threshold":
			cfg.Strategy.StopLossThreshold = v
		case "position_size_usd":
			cfg.Strategy.PositionSizeUSD = v
		default:
			return nil, fmt.Errorf("unknown optimization parameter %q", name)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("parameter set %v: %w", params, err)
	}

	analyzer := pairs.NewAnalyzer(pairs.Config{
		LookbackPeriod: cfg.Strategy.LookbackPeriod,
		MinCorrelation: cfg.Strategy.MinCorrelation,
		MaxPValue:      cfg.Strategy.MaxCointegrationPValue,
		MaxPairs:       cfg.Strategy.MaxPairs,
		Workers:        cfg.Strategy.AnalyzerWorkers,
	})
	engine := strategy.NewEngine(strategy.EngineConfig{
		Thresholds: strategy.Thresholds{
			Entry:    cfg.Strategy.EntryThreshold,
			Exit:     cfg.Strategy.ExitThreshold,
			StopLoss: cfg.Strategy.StopLossThreshold,
		},
		RebalanceFrequencyDays: cfg.Strategy.RebalanceFrequencyDays,
		PositionSizeUSD:        cfg.Strategy.PositionSizeUSD,
	}, analyzer)

	sim := NewSimulator(cfg.Backtest.CommissionPerTrade, cfg.Backtest.SlippagePct)
	sim.WindowBars = cfg.Strategy.LookbackPeriod
	result, err := sim.Run(ctx, engine, opt.series, cfg.StartTime(), cfg.EndTime(), cfg.Backtest.InitialCapital)
	if err != nil {
		return nil, err
	}

	return &OptimizationResult{
		Parameters: params,
		Stats:      result.Stats,
		Score:      opt.score(result.Stats),
	}, nil
}

// score extracts the objective value from the run statistics.
func (opt *ParameterOptimizer) score(stats Stats) float64 {
	switch opt.goal {
	case GoalTotalPNL:
		return stats.TotalPNL
	case GoalWinRate:
		return stats.WinRate
	case GoalProfitFactor:
		if math.IsInf(stats.ProfitFactor, 1) {
			// +Inf collapses the ranking; use total profit instead
			return 1e6 + stats.TotalPNL
		}
		return stats.ProfitFactor
	default:
		return stats.SharpeRatio
	}
}
