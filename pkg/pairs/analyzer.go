package pairs

import (
	"context"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/yourusername/statarb-engine/pkg/marketdata"
	"github.com/yourusername/statarb-engine/pkg/stats"
)

// minAlignedPoints 对齐后少于这个点数的配对直接跳过
const minAlignedPoints = 30

// Config 选对参数
type Config struct {
	LookbackPeriod int     // 最少历史观测数（bar 数）
	MinCorrelation float64 // 收益率相关系数下限（取绝对值）
	MaxPValue      float64 // ADF p 值上限
	MaxPairs       int     // 最多返回的配对数
	Workers        int     // 并行计算的 worker 数，<=0 表示串行
}

// Analyzer 配对分析器
// 对符号全集做 O(n²) 枚举：相关性初筛 → 对冲比回归 → ADF 协整检验
// → 半衰期估计，最后按 (p 值升序, |相关| 降序, 半衰期升序) 排序取前 MaxPairs
type Analyzer struct {
	cfg Config
}

// NewAnalyzer creates an Analyzer with the given selection parameters.
func NewAnalyzer(cfg Config) *Analyzer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Analyzer{cfg: cfg}
}

// SelectPairs 在给定价格序列上扫描协整配对
// 历史不足的符号被跳过（不是错误）；单个配对的统计退化同样只是跳过
func (a *Analyzer) SelectPairs(ctx context.Context, series map[string]marketdata.PriceSeries, asOf time.Time) []CandidatePair {
	symbols := make([]string, 0, len(series))
	for sym, s := range series {
		if s.Len() >= a.cfg.LookbackPeriod {
			symbols = append(symbols, sym)
		}
	}
	// 固定枚举顺序，保证确定性
	sort.Strings(symbols)

	if len(symbols) < 2 {
		log.Printf("[PairAnalyzer] 可用符号不足: %d", len(symbols))
		return nil
	}

	type pairKey struct{ a, b string }
	var jobs []pairKey
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			jobs = append(jobs, pairKey{symbols[i], symbols[j]})
		}
	}

	// 候选间互相独立，只读价格序列，可并行评估
	results := make([]*CandidatePair, len(jobs))
	var wg sync.WaitGroup
	sem := make(chan struct{}, a.cfg.Workers)

	for idx, job := range jobs {
		select {
		case <-ctx.Done():
			log.Printf("[PairAnalyzer] 扫描被取消: %v", ctx.Err())
			return nil
		default:
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, symA, symB string) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = a.evaluatePair(series[symA], series[symB], asOf)
		}(idx, job.a, job.b)
	}
	wg.Wait()

	var accepted []CandidatePair
	for _, r := range results {
		if r != nil {
			accepted = append(accepted, *r)
		}
	}

	sort.Slice(accepted, func(i, j int) bool {
		pi, pj := accepted[i], accepted[j]
		if pi.CointegrationPValue != pj.CointegrationPValue {
			return pi.CointegrationPValue < pj.CointegrationPValue
		}
		ci, cj := math.Abs(pi.Correlation), math.Abs(pj.Correlation)
		if ci != cj {
			return ci > cj
		}
		if pi.HalfLifeDays != pj.HalfLifeDays {
			return pi.HalfLifeDays < pj.HalfLifeDays
		}
		return pi.Name() < pj.Name()
	})

	if a.cfg.MaxPairs > 0 && len(accepted) > a.cfg.MaxPairs {
		accepted = accepted[:a.cfg.MaxPairs]
	}

	log.Printf("[PairAnalyzer] 扫描完成: %d 个符号, %d 个候选, 保留 %d 个配对",
		len(symbols), len(jobs), len(accepted))
	return accepted
}

// evaluatePair 评估单个配对，不合格返回 nil
func (a *Analyzer) evaluatePair(sa, sb marketdata.PriceSeries, asOf time.Time) *CandidatePair {
	closesA, closesB := marketdata.AlignCloses(sa, sb)
	if len(closesA) < minAlignedPoints || len(closesA) < a.cfg.LookbackPeriod {
		return nil
	}

	// 只用 lookback 窗口内最近的数据
	if n := len(closesA); n > a.cfg.LookbackPeriod {
		closesA = closesA[n-a.cfg.LookbackPeriod:]
		closesB = closesB[n-a.cfg.LookbackPeriod:]
	}

	// 1. 收益率相关性初筛
	retA := stats.PctChange(closesA)
	retB := stats.PctChange(closesB)
	corr := stats.Correlation(retA, retB)
	if math.Abs(corr) < a.cfg.MinCorrelation {
		return nil
	}

	// 2. 对冲比: price_b 对 price_a 回归
	hedgeRatio, _ := stats.LinearRegression(closesA, closesB)
	if math.Abs(hedgeRatio) < 1e-10 {
		return nil
	}

	// 3. 价差序列 spread = b - β*a，放入 lookback 大小的环形缓冲
	spreadSeries := stats.NewTimeSeries(sa.Symbol+"/"+sb.Symbol, a.cfg.LookbackPeriod)
	for i := range closesA {
		spreadSeries.Append(closesB[i]-hedgeRatio*closesA[i], int64(i))
	}

	rolling := spreadSeries.Stats(a.cfg.LookbackPeriod)
	if rolling.Std < 1e-10 {
		// 价差方差为零，Z-Score 无定义
		return nil
	}
	spread := spreadSeries.GetAll()

	// 4. ADF 平稳性检验
	adf := stats.ADFTest(spread)
	if adf.PValue > a.cfg.MaxPValue {
		// 协整检验未通过，正常淘汰
		return nil
	}

	// 5. 半衰期估计；β >= 0 的配对不均值回归，拒绝
	halfLife, ok := stats.HalfLife(spread)
	if !ok {
		return nil
	}

	return &CandidatePair{
		SymbolA:             sa.Symbol,
		SymbolB:             sb.Symbol,
		Correlation:         corr,
		CointegrationPValue: adf.PValue,
		HedgeRatio:          hedgeRatio,
		SpreadMean:          rolling.Mean,
		SpreadStd:           rolling.Std,
		HalfLifeDays:        halfLife,
		ComputedAt:          asOf,
	}
}
