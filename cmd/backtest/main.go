package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/yourusername/statarb-engine/pkg/backtest"
	"github.com/yourusername/statarb-engine/pkg/publish"
)

const (
	appName    = "StatarbBacktest"
	appVersion = "1.0.0"
)

var (
	// Command line flags
	configFile = flag.String("config", "./config/backtest.yaml", "Configuration file path")
	startDate  = flag.String("start-date", "", "Start date (YYYY-MM-DD, overrides config)")
	endDate    = flag.String("end-date", "", "End date (YYYY-MM-DD, overrides config)")
	outputDir  = flag.String("output", "", "Output directory (overrides config)")
	optimize   = flag.Bool("optimize", false, "Run threshold grid search instead of a single backtest")
	version    = flag.Bool("version", false, "Print version and exit")
	help       = flag.Bool("help", false, "Print help and exit")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s version %s\n", appName, appVersion)
		os.Exit(0)
	}
	if *help {
		printHelp()
		os.Exit(0)
	}

	printBanner()

	// Load configuration
	log.Printf("[Main] Loading configuration from: %s", *configFile)
	config, err := backtest.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("[Main] Failed to load config: %v", err)
	}
	log.Println("[Main] ✓ Configuration loaded successfully")

	// Override with command line flags
	if *startDate != "" {
		config.Backtest.StartDate = *startDate
		log.Printf("[Main] Start date overridden: %s", *startDate)
	}
	if *endDate != "" {
		config.Backtest.EndDate = *endDate
		log.Printf("[Main] End date overridden: %s", *endDate)
	}
	if *outputDir != "" {
		config.Output.ResultDir = *outputDir
		log.Printf("[Main] Output directory overridden: %s", *outputDir)
	}
	if err := config.Validate(); err != nil {
		log.Fatalf("[Main] Invalid config after overrides: %v", err)
	}

	printConfigSummary(config)

	runner, err := backtest.NewRunner(config)
	if err != nil {
		log.Fatalf("[Main] Failed to create runner: %v", err)
	}
	defer runner.Close()

	ctx := context.Background()
	if err := runner.LoadData(ctx); err != nil {
		log.Fatalf("[Main] Failed to load data: %v", err)
	}

	if *optimize {
		runOptimization(ctx, config, runner)
		return
	}

	log.Println("[Main] Running single backtest...")
	result, err := runner.Run(ctx)
	if err != nil {
		log.Fatalf("[Main] Backtest failed: %v", err)
	}

	printResultSummary(result)

	// Save results
	if config.Output.GenerateReport {
		log.Println("[Main] Generating report...")
		reportGen := backtest.NewReportGenerator(config, result)

		if err := reportGen.GenerateMarkdown(); err != nil {
			log.Printf("[Main] Failed to generate markdown report: %v", err)
		}
		if err := reportGen.GenerateJSON(); err != nil {
			log.Printf("[Main] Failed to generate JSON report: %v", err)
		}
		if err := reportGen.SaveTrades(); err != nil {
			log.Printf("[Main] Failed to save trades: %v", err)
		}
		if err := reportGen.SaveEquityCurve(); err != nil {
			log.Printf("[Main] Failed to save equity curve: %v", err)
		}

		log.Printf("[Main] Report saved to: %s", config.Output.ResultDir)
	}

	// Optional NATS fan-out for downstream consumers
	if config.Publish.Enabled {
		pub, err := publish.Connect(config.Publish.NATSAddr)
		if err != nil {
			log.Printf("[Main] NATS unavailable, skipping publish: %v", err)
		} else {
			defer pub.Close()
			for _, sig := range result.Signals {
				if err := pub.PublishSignal(sig); err != nil {
					log.Printf("[Main] Failed to publish signal for %s: %v", sig.Symbol, err)
					break
				}
			}
			if err := pub.PublishResult(result); err != nil {
				log.Printf("[Main] Failed to publish result: %v", err)
			}
			log.Printf("[Main] Published %d signals and final result to NATS", len(result.Signals))
		}
	}

	log.Println("[Main] Backtest completed successfully!")
}

func runOptimization(ctx context.Context, config *backtest.Config, runner *backtest.Runner) {
	log.Println("[Main] Running parameter optimization...")

	opt := backtest.NewParameterOptimizer(config, runner.Series())
	opt.AddParamRange("entry_threshold", 1.5, 3.0, 0.5)
	opt.AddParamRange("exit_threshold", 0.25, 0.75, 0.25)
	opt.SetOptimizationGoal(backtest.GoalSharpeRatio)

	results, err := opt.GridSearch(ctx)
	if err != nil {
		log.Fatalf("[Main] Optimization failed: %v", err)
	}

	fmt.Println("\nTop parameter sets:")
	limit := 5
	if len(results) < limit {
		limit = len(results)
	}
	for _, r := range results[:limit] {
		fmt.Printf("  #%d score=%.4f params=%v trades=%d return=%.2f%%\n",
			r.Rank, r.Score, r.Parameters, r.Stats.TotalTrades, r.Stats.TotalReturnPct)
	}
}

func printBanner() {
	fmt.Println("========================================")
	fmt.Printf("%s v%s\n", appName, appVersion)
	fmt.Println("统计套利配对交易回测系统")
	fmt.Println("========================================")
}

func printHelp() {
	fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println("\nExamples:")
	fmt.Println("  # Single backtest")
	fmt.Println("  ./backtest -config config/backtest.yaml")
	fmt.Println()
	fmt.Println("  # Override dates")
	fmt.Println("  ./backtest -config config/backtest.yaml -start-date 2025-01-01 -end-date 2025-06-30")
	fmt.Println()
	fmt.Println("  # Threshold grid search")
	fmt.Println("  ./backtest -config config/backtest.yaml -optimize")
	fmt.Println()
}

func printConfigSummary(config *backtest.Config) {
	fmt.Println("\n========================================")
	fmt.Println("Configuration Summary")
	fmt.Println("========================================")
	fmt.Printf("Backtest Name:     %s\n", config.Backtest.Name)
	fmt.Printf("Date Range:        %s to %s\n", config.Backtest.StartDate, config.Backtest.EndDate)
	fmt.Printf("Symbols:           %v\n", config.Backtest.Data.Symbols)
	fmt.Printf("Data Source:       %s (%s)\n", config.Backtest.Data.SourceType, config.Backtest.Data.DataPath)
	fmt.Printf("Initial Capital:   %.2f\n", config.Backtest.InitialCapital)
	fmt.Printf("Entry/Exit/Stop:   %.2f / %.2f / %.2f\n",
		config.Strategy.EntryThreshold, config.Strategy.ExitThreshold, config.Strategy.StopLossThreshold)
	fmt.Printf("Max Pairs:         %d\n", config.Strategy.MaxPairs)
	fmt.Printf("Output Directory:  %s\n", config.Output.ResultDir)
	fmt.Print("========================================\n\n")
}

func printResultSummary(result *backtest.Result) {
	stats := result.Stats
	fmt.Println("\n========================================")
	fmt.Println("BACKTEST SUMMARY")
	fmt.Println("========================================")
	fmt.Printf("Period:          %s to %s\n",
		result.StartTime.Format("2006-01-02"), result.EndTime.Format("2006-01-02"))
	fmt.Printf("Initial Capital: %.2f\n", result.InitialCapital)
	fmt.Printf("Final Equity:    %.2f\n", result.FinalEquity)
	fmt.Printf("Total Return:    %.2f%%\n", stats.TotalReturnPct)
	fmt.Printf("Sharpe Ratio:    %.2f\n", stats.SharpeRatio)
	fmt.Printf("Max Drawdown:    %.2f (%.2f%%)\n", stats.MaxDrawdown, stats.MaxDrawdownPct)
	fmt.Printf("Trades:          %d (win rate %.1f%%)\n", stats.TotalTrades, stats.WinRate*100)
	fmt.Println("========================================")
}
