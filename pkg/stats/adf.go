package stats

import (
	"math"
)

// ADFResult 单位根检验结果
type ADFResult struct {
	TStat  float64 // Dickey-Fuller t 统计量 (gamma / se)
	PValue float64 // 插值近似的 p 值
	Gamma  float64 // Δy_t = α + γ*y_{t-1} 回归中的 γ
	NObs   int
}

// adfCriticalPoints 常数项情形下的 Dickey-Fuller 分布近似分位点
// (MacKinnon 1994 表的稀疏采样，线性插值使用)
var adfCriticalPoints = []struct {
	t float64
	p float64
}{
	{-4.32, 0.001},
	{-3.43, 0.01},
	{-3.12, 0.025},
	{-2.86, 0.05},
	{-2.57, 0.10},
	{-2.23, 0.20},
	{-1.94, 0.30},
	{-1.62, 0.45},
	{-1.28, 0.60},
	{-0.85, 0.75},
	{-0.40, 0.88},
	{0.00, 0.95},
	{0.60, 0.99},
}

// ADFTest 对序列做 Dickey-Fuller 平稳性检验（含常数项）
// 回归 Δy_t = α + γ*y_{t-1} + ε_t；γ 显著为负 ⇒ 序列均值回归（平稳）
// p 值通过临界值表线性插值近似，并钳制在 [0.001, 0.999]
func ADFTest(series []float64) ADFResult {
	n := len(series)
	if n < 10 {
		return ADFResult{TStat: 0, PValue: 1, NObs: n}
	}

	dy := Diff(series)
	yLag := series[:n-1]

	gamma, tStat := RegressionTStat(yLag, dy)

	return ADFResult{
		TStat:  tStat,
		PValue: adfPValue(tStat),
		Gamma:  gamma,
		NObs:   n - 1,
	}
}

// adfPValue 将 t 统计量映射为近似 p 值
func adfPValue(tStat float64) float64 {
	pts := adfCriticalPoints
	if tStat <= pts[0].t {
		return 0.001
	}
	if tStat >= pts[len(pts)-1].t {
		return 0.999
	}

	for i := 1; i < len(pts); i++ {
		if tStat <= pts[i].t {
			lo, hi := pts[i-1], pts[i]
			frac := (tStat - lo.t) / (hi.t - lo.t)
			return lo.p + frac*(hi.p-lo.p)
		}
	}
	return 0.999
}

// HalfLife 估计均值回归半衰期（单位与序列采样间隔一致）
// AR(1) 模型: Δy_t = α + β*y_{t-1} + ε_t
// half-life = -ln(2) / ln(1 + β)，仅当 β < 0 时有定义
// 第二个返回值为 false 表示序列不均值回归（β >= 0 或结果退化）
func HalfLife(series []float64) (float64, bool) {
	if len(series) < 3 {
		return math.Inf(1), false
	}

	dy := Diff(series)
	yLag := series[:len(series)-1]

	beta, _ := LinearRegression(yLag, dy)

	// β >= 0 说明没有均值回归（半衰期无穷大）
	if beta >= 0 {
		return math.Inf(1), false
	}
	// β <= -1 时 ln(1+β) 无定义，序列过度震荡，同样拒绝
	if beta <= -1 {
		return math.Inf(1), false
	}

	halfLife := -math.Log(2) / math.Log(1+beta)

	if halfLife <= 0 || math.IsNaN(halfLife) || math.IsInf(halfLife, 0) {
		return math.Inf(1), false
	}

	return halfLife, true
}
