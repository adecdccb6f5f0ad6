// Package stats provides statistical functions and time series analysis tools
package stats

import (
	"math"
)

// RollingWindowStats 滚动窗口统计结果
type RollingWindowStats struct {
	Mean     float64
	Std      float64
	Variance float64
	Count    int
}

// CalculateRollingStats 计算滚动窗口统计（均值、方差、标准差）
// 一次遍历计算多个统计值，提高性能
func CalculateRollingStats(data []float64, period int) RollingWindowStats {
	if len(data) == 0 {
		return RollingWindowStats{}
	}

	n := len(data)
	if period <= 0 || period > n {
		period = n
	}

	// 使用最近 period 个数据点
	recent := data[n-period:]

	var sum float64
	for _, val := range recent {
		sum += val
	}
	mean := sum / float64(len(recent))

	var variance float64
	for _, val := range recent {
		diff := val - mean
		variance += diff * diff
	}
	variance /= float64(len(recent))

	return RollingWindowStats{
		Mean:     mean,
		Std:      math.Sqrt(variance),
		Variance: variance,
		Count:    len(recent),
	}
}

// Mean 计算均值
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}

	var sum float64
	for _, val := range data {
		sum += val
	}
	return sum / float64(len(data))
}

// Variance 计算总体方差
func Variance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}

	mean := Mean(data)
	var variance float64
	for _, val := range data {
		diff := val - mean
		variance += diff * diff
	}
	return variance / float64(len(data))
}

// StdDev 计算标准差
func StdDev(data []float64) float64 {
	return math.Sqrt(Variance(data))
}

// SampleStdDev 计算样本标准差（n-1 分母）
// 用于收益率波动率等需要无偏估计的场景
func SampleStdDev(data []float64) float64 {
	n := len(data)
	if n < 2 {
		return 0
	}

	mean := Mean(data)
	var ss float64
	for _, val := range data {
		diff := val - mean
		ss += diff * diff
	}
	return math.Sqrt(ss / float64(n-1))
}

// ZScore 计算 Z-Score
// z = (x - μ) / σ
func ZScore(value, mean, std float64) float64 {
	if std < 1e-10 {
		return 0
	}
	return (value - mean) / std
}

// PctChange 计算逐期百分比变化序列
// 结果长度 = len(data) - 1；前值接近 0 的位置补 0，避免产生 Inf
func PctChange(data []float64) []float64 {
	if len(data) < 2 {
		return nil
	}

	changes := make([]float64, 0, len(data)-1)
	for i := 1; i < len(data); i++ {
		prev := data[i-1]
		if math.Abs(prev) < 1e-12 {
			changes = append(changes, 0)
			continue
		}
		changes = append(changes, (data[i]-prev)/prev)
	}
	return changes
}

// Diff 计算一阶差分序列 Δx_t = x_t - x_{t-1}
func Diff(data []float64) []float64 {
	if len(data) < 2 {
		return nil
	}

	out := make([]float64, len(data)-1)
	for i := 1; i < len(data); i++ {
		out[i-1] = data[i] - data[i-1]
	}
	return out
}

// Correlation 计算 Pearson 相关系数
// r = Σ[(xi - x̄)(yi - ȳ)] / sqrt[Σ(xi - x̄)² * Σ(yi - ȳ)²]
func Correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) == 0 {
		return 0
	}

	meanX := Mean(x)
	meanY := Mean(y)

	var numerator, varX, varY float64
	for i := range x {
		diffX := x[i] - meanX
		diffY := y[i] - meanY
		numerator += diffX * diffY
		varX += diffX * diffX
		varY += diffY * diffY
	}

	denominator := math.Sqrt(varX * varY)
	if denominator < 1e-10 {
		return 0
	}

	return numerator / denominator
}

// Covariance 计算协方差
// cov(X,Y) = Σ[(xi - x̄)(yi - ȳ)] / n
func Covariance(x, y []float64) float64 {
	if len(x) != len(y) || len(x) == 0 {
		return 0
	}

	meanX := Mean(x)
	meanY := Mean(y)

	var covariance float64
	for i := range x {
		covariance += (x[i] - meanX) * (y[i] - meanY)
	}

	return covariance / float64(len(x))
}

// LinearRegression 计算线性回归 y = slope * x + intercept
// slope = cov(x,y) / var(x)；x 退化时返回 (0, ȳ)
func LinearRegression(x, y []float64) (slope, intercept float64) {
	if len(x) != len(y) || len(x) == 0 {
		return 0, 0
	}

	varX := Variance(x)
	if varX < 1e-10 {
		return 0, Mean(y)
	}

	slope = Covariance(x, y) / varX
	intercept = Mean(y) - slope*Mean(x)

	return slope, intercept
}

// RegressionTStat 计算回归斜率的 t 统计量
// t = slope / se(slope)，其中 se(slope) = sqrt(RSS/(n-2) / Σ(x-x̄)²)
func RegressionTStat(x, y []float64) (slope, tStat float64) {
	n := len(x)
	if n != len(y) || n < 3 {
		return 0, 0
	}

	var intercept float64
	slope, intercept = LinearRegression(x, y)

	meanX := Mean(x)
	var rss, sxx float64
	for i := range x {
		resid := y[i] - (intercept + slope*x[i])
		rss += resid * resid
		diffX := x[i] - meanX
		sxx += diffX * diffX
	}

	if sxx < 1e-12 {
		return slope, 0
	}

	se := math.Sqrt(rss / float64(n-2) / sxx)
	if se < 1e-12 {
		return slope, 0
	}

	return slope, slope / se
}
