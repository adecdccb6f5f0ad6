package backtest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// ReportGenerator generates backtest reports in various formats
type ReportGenerator struct {
	config *Config
	result *Result
}

// NewReportGenerator creates a new report generator
func NewReportGenerator(config *Config, result *Result) *ReportGenerator {
	return &ReportGenerator{
		config: config,
		result: result,
	}
}

// GenerateMarkdown generates a markdown report
func (g *ReportGenerator) GenerateMarkdown() error {
	outputDir := g.config.Output.ResultDir
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("backtest_report_%s.md", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	g.writeMarkdownReport(file)

	fmt.Printf("[Report] Markdown report saved: %s\n", filename)
	return nil
}

// writeMarkdownReport writes the markdown content
func (g *ReportGenerator) writeMarkdownReport(file *os.File) {
	stats := g.result.Stats

	fmt.Fprintf(file, "# 回测报告\n\n")
	fmt.Fprintf(file, "**策略**: 配对交易（价差均值回归）\n")
	fmt.Fprintf(file, "**日期**: %s 至 %s\n", g.config.Backtest.StartDate, g.config.Backtest.EndDate)
	fmt.Fprintf(file, "**初始资金**: %.2f\n", g.result.InitialCapital)
	fmt.Fprintf(file, "**最终资金**: %.2f\n\n", g.result.FinalEquity)
	fmt.Fprintf(file, "---\n\n")

	// Performance Summary
	fmt.Fprintf(file, "## 绩效摘要\n\n")
	fmt.Fprintf(file, "| 指标 | 数值 |\n")
	fmt.Fprintf(file, "|------|------|\n")
	fmt.Fprintf(file, "| **总收益** | %.2f |\n", stats.TotalPNL)
	fmt.Fprintf(file, "| **总收益率** | %.2f%% |\n", stats.TotalReturnPct)
	fmt.Fprintf(file, "| **年化波动率** | %.2f%% |\n", stats.Volatility*100)
	fmt.Fprintf(file, "| **Sharpe Ratio** | %.2f |\n", stats.SharpeRatio)
	fmt.Fprintf(file, "| **最大回撤** | %.2f (%.2f%%) |\n", stats.MaxDrawdown, stats.MaxDrawdownPct)
	fmt.Fprintf(file, "| **胜率** | %.2f%% |\n", stats.WinRate*100)
	fmt.Fprintf(file, "| **盈利因子** | %s |\n\n", formatProfitFactor(stats.ProfitFactor))

	// Trade Statistics
	fmt.Fprintf(file, "## 交易统计\n\n")
	fmt.Fprintf(file, "| 指标 | 数值 |\n")
	fmt.Fprintf(file, "|------|------|\n")
	fmt.Fprintf(file, "| **总交易次数** | %d |\n", stats.TotalTrades)
	fmt.Fprintf(file, "| **盈利交易** | %d |\n", stats.WinningTrades)
	fmt.Fprintf(file, "| **亏损交易** | %d |\n", stats.LosingTrades)
	fmt.Fprintf(file, "| **平均盈利** | %.2f |\n", stats.AvgWin)
	fmt.Fprintf(file, "| **平均亏损** | %.2f |\n", stats.AvgLoss)
	fmt.Fprintf(file, "| **被拒订单** | %d |\n\n", g.result.RejectedOrders)

	// Trade detail table (first 20)
	if len(g.result.Trades) > 0 {
		fmt.Fprintf(file, "## 成交明细（前20笔）\n\n")
		fmt.Fprintf(file, "| 配对 | 品种 | 数量 | 入场价 | 出场价 | PNL | 原因 |\n")
		fmt.Fprintf(file, "|------|------|------|--------|--------|-----|------|\n")

		limit := 20
		if len(g.result.Trades) < limit {
			limit = len(g.result.Trades)
		}
		for i := 0; i < limit; i++ {
			t := g.result.Trades[i]
			fmt.Fprintf(file, "| %s | %s | %d | %.2f | %.2f | %.2f | %s |\n",
				t.PairName, t.Symbol, t.Quantity, t.EntryPrice, t.ExitPrice, t.PNL, t.ExitReason)
		}
		fmt.Fprintf(file, "\n")

		if len(g.result.Trades) > limit {
			fmt.Fprintf(file, "*...共 %d 笔，仅显示前 %d 笔*\n\n", len(g.result.Trades), limit)
		}
	}

	// Risk Analysis
	fmt.Fprintf(file, "## 风险分析\n\n")
	fmt.Fprintf(file, "- **Sharpe Ratio**: %.2f %s\n", stats.SharpeRatio, evaluateSharpe(stats.SharpeRatio))
	fmt.Fprintf(file, "- **最大回撤**: %.2f%% %s\n", stats.MaxDrawdownPct, evaluateDrawdown(-stats.MaxDrawdownPct/100))
	fmt.Fprintf(file, "- **盈利因子**: %s %s\n\n", formatProfitFactor(stats.ProfitFactor), evaluateProfitFactor(stats.ProfitFactor))

	// Configuration
	fmt.Fprintf(file, "## 配置信息\n\n")
	fmt.Fprintf(file, "- **数据路径**: %s\n", g.config.Backtest.Data.DataPath)
	fmt.Fprintf(file, "- **交易品种**: %v\n", g.config.Backtest.Data.Symbols)
	fmt.Fprintf(file, "- **入场阈值**: %.2f\n", g.config.Strategy.EntryThreshold)
	fmt.Fprintf(file, "- **出场阈值**: %.2f\n", g.config.Strategy.ExitThreshold)
	fmt.Fprintf(file, "- **止损阈值**: %.2f\n", g.config.Strategy.StopLossThreshold)
	fmt.Fprintf(file, "- **单笔手续费**: %.2f\n", g.config.Backtest.CommissionPerTrade)
	fmt.Fprintf(file, "- **滑点**: %.2f bps\n\n", g.config.Backtest.SlippagePct*10000)

	// Footer
	fmt.Fprintf(file, "---\n\n")
	fmt.Fprintf(file, "**报告生成时间**: %s\n", time.Now().Format("2006-01-02 15:04:05"))
}

// GenerateJSON generates a JSON report
func (g *ReportGenerator) GenerateJSON() error {
	outputDir := g.config.Output.ResultDir
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("backtest_result_%s.json", timestamp))

	data, err := json.MarshalIndent(g.result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}

	fmt.Printf("[Report] JSON result saved: %s\n", filename)
	return nil
}

// SaveTrades saves trade history to CSV
func (g *ReportGenerator) SaveTrades() error {
	if !g.config.Output.SaveTrades {
		return nil
	}

	outputDir := g.config.Output.ResultDir
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("trades_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create trades file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{
		"Pair", "Symbol", "Quantity", "EntryTime", "ExitTime",
		"EntryPrice", "ExitPrice", "PNL", "ReturnPct", "DurationHours", "ExitReason",
	})

	for _, trade := range g.result.Trades {
		writer.Write([]string{
			trade.PairName,
			trade.Symbol,
			fmt.Sprintf("%d", trade.Quantity),
			trade.EntryTime.Format("2006-01-02 15:04:05"),
			trade.ExitTime.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.4f", trade.EntryPrice),
			fmt.Sprintf("%.4f", trade.ExitPrice),
			fmt.Sprintf("%.2f", trade.PNL),
			fmt.Sprintf("%.2f", trade.ReturnPct),
			fmt.Sprintf("%.1f", trade.DurationHours),
			trade.ExitReason,
		})
	}

	fmt.Printf("[Report] Trades saved: %s\n", filename)
	return nil
}

// SaveEquityCurve saves the equity and drawdown curves to CSV
func (g *ReportGenerator) SaveEquityCurve() error {
	if !g.config.Output.SaveEquity {
		return nil
	}

	outputDir := g.config.Output.ResultDir
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(outputDir, fmt.Sprintf("equity_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create equity file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{"Timestamp", "Equity", "Drawdown"})
	for i, p := range g.result.EquityCurve {
		dd := 0.0
		if i < len(g.result.DrawdownCurve) {
			dd = g.result.DrawdownCurve[i].Value
		}
		writer.Write([]string{
			p.Timestamp.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.2f", p.Value),
			fmt.Sprintf("%.2f", dd),
		})
	}

	fmt.Printf("[Report] Equity curve saved: %s\n", filename)
	return nil
}

// Helper functions for evaluation

func formatProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "∞"
	}
	return fmt.Sprintf("%.2f", pf)
}

func evaluateSharpe(sharpe float64) string {
	if sharpe > 2.0 {
		return "(优秀)"
	} else if sharpe > 1.0 {
		return "(良好)"
	} else if sharpe > 0.5 {
		return "(一般)"
	}
	return "(较差)"
}

func evaluateDrawdown(dd float64) string {
	if dd < 0.05 {
		return "(优秀)"
	} else if dd < 0.10 {
		return "(良好)"
	} else if dd < 0.20 {
		return "(可接受)"
	}
	return "(风险较高)"
}

func evaluateProfitFactor(pf float64) string {
	if pf > 2.0 {
		return "(优秀)"
	} else if pf > 1.5 {
		return "(良好)"
	} else if pf > 1.0 {
		return "(盈利)"
	}
	return "(亏损)"
}
