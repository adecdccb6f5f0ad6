package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/yourusername/statarb-engine/pkg/backtest"
	"github.com/yourusername/statarb-engine/pkg/pairs"
)

// pairscan runs the pair-discovery stage standalone: it scans the
// configured universe for cointegrated pairs and prints the ranked
// candidates without running a backtest.

var (
	configFile = flag.String("config", "./config/backtest.yaml", "Configuration file path")
	allSymbols = flag.Bool("all", false, "Scan every symbol in the store, ignoring the configured list")
)

func main() {
	flag.Parse()

	log.Printf("[PairScan] Loading configuration from: %s", *configFile)
	config, err := backtest.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("[PairScan] Failed to load config: %v", err)
	}

	runner, err := backtest.NewRunner(config)
	if err != nil {
		log.Fatalf("[PairScan] Failed to open data store: %v", err)
	}
	defer runner.Close()

	ctx := context.Background()

	if *allSymbols {
		symbols, err := runner.Store().ListSymbols(ctx)
		if err != nil {
			log.Fatalf("[PairScan] Failed to list symbols: %v", err)
		}
		config.Backtest.Data.Symbols = symbols
		log.Printf("[PairScan] Scanning full universe: %d symbols", len(symbols))
	}

	if err := runner.LoadData(ctx); err != nil {
		log.Fatalf("[PairScan] Failed to load data: %v", err)
	}

	analyzer := pairs.NewAnalyzer(pairs.Config{
		LookbackPeriod: config.Strategy.LookbackPeriod,
		MinCorrelation: config.Strategy.MinCorrelation,
		MaxPValue:      config.Strategy.MaxCointegrationPValue,
		MaxPairs:       config.Strategy.MaxPairs,
		Workers:        config.Strategy.AnalyzerWorkers,
	})

	candidates := analyzer.SelectPairs(ctx, runner.Series(), config.EndTime())
	if len(candidates) == 0 {
		fmt.Println("No cointegrated pairs found with the current thresholds.")
		os.Exit(0)
	}

	printCandidates(candidates)
}

func printCandidates(candidates []pairs.CandidatePair) {
	fmt.Println("\n配对扫描结果")
	fmt.Println("================================================================================")
	fmt.Printf("%-16s %8s %8s %10s %10s %10s %10s\n",
		"Pair", "Corr", "PValue", "HedgeRatio", "SpreadMean", "SpreadStd", "HalfLife")
	fmt.Println("--------------------------------------------------------------------------------")
	for _, p := range candidates {
		fmt.Printf("%-16s %8.4f %8.4f %10.4f %10.4f %10.4f %10.1f\n",
			p.Name(), p.Correlation, p.CointegrationPValue,
			p.HedgeRatio, p.SpreadMean, p.SpreadStd, p.HalfLifeDays)
	}
	fmt.Println("================================================================================")
	fmt.Printf("共 %d 个配对通过协整筛选\n", len(candidates))
}
