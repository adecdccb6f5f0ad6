package stats

import (
	"math"
	"testing"
)

// 测试辅助函数：比较浮点数是否近似相等
func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestMean(t *testing.T) {
	tests := []struct {
		name     string
		data     []float64
		expected float64
	}{
		{
			name:     "Simple average",
			data:     []float64{1, 2, 3, 4, 5},
			expected: 3.0,
		},
		{
			name:     "Empty array",
			data:     []float64{},
			expected: 0.0,
		},
		{
			name:     "Negative values",
			data:     []float64{-2, -4, -6},
			expected: -4.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Mean(tt.data)
			if !almostEqual(result, tt.expected, 1e-10) {
				t.Errorf("Mean() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestVariance(t *testing.T) {
	tests := []struct {
		name     string
		data     []float64
		expected float64
	}{
		{
			name:     "Simple variance",
			data:     []float64{2, 4, 4, 4, 5, 5, 7, 9},
			expected: 4.0,
		},
		{
			name:     "No variance",
			data:     []float64{5, 5, 5, 5},
			expected: 0.0,
		},
		{
			name:     "Empty array",
			data:     []float64{},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Variance(tt.data)
			if !almostEqual(result, tt.expected, 1e-10) {
				t.Errorf("Variance() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestSampleStdDev(t *testing.T) {
	// Population variance of {2,4,4,4,5,5,7,9} is 4; sample variance is 32/7
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	expected := math.Sqrt(32.0 / 7.0)
	if got := SampleStdDev(data); !almostEqual(got, expected, 1e-10) {
		t.Errorf("SampleStdDev() = %v, want %v", got, expected)
	}

	if got := SampleStdDev([]float64{1}); got != 0 {
		t.Errorf("SampleStdDev() with one point = %v, want 0", got)
	}
}

func TestZScore(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		mean     float64
		std      float64
		expected float64
	}{
		{
			name:     "Two sigma above",
			value:    12,
			mean:     10,
			std:      1,
			expected: 2.0,
		},
		{
			name:     "Two sigma below",
			value:    8,
			mean:     10,
			std:      1,
			expected: -2.0,
		},
		{
			name:     "Zero std is undefined, returns 0",
			value:    12,
			mean:     10,
			std:      0,
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ZScore(tt.value, tt.mean, tt.std)
			if !almostEqual(result, tt.expected, 1e-10) {
				t.Errorf("ZScore() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestPctChange(t *testing.T) {
	changes := PctChange([]float64{100, 110, 99})
	if len(changes) != 2 {
		t.Fatalf("PctChange() length = %d, want 2", len(changes))
	}
	if !almostEqual(changes[0], 0.10, 1e-10) {
		t.Errorf("changes[0] = %v, want 0.10", changes[0])
	}
	if !almostEqual(changes[1], -0.10, 1e-10) {
		t.Errorf("changes[1] = %v, want -0.10", changes[1])
	}

	// Near-zero previous value must not produce Inf
	changes = PctChange([]float64{0, 5})
	if len(changes) != 1 || changes[0] != 0 {
		t.Errorf("PctChange() with zero base = %v, want [0]", changes)
	}

	if got := PctChange([]float64{1}); got != nil {
		t.Errorf("PctChange() with one point = %v, want nil", got)
	}
}

func TestDiff(t *testing.T) {
	out := Diff([]float64{1, 4, 2, 2})
	want := []float64{3, -2, 0}
	if len(out) != len(want) {
		t.Fatalf("Diff() length = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("Diff()[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestCorrelation(t *testing.T) {
	tests := []struct {
		name     string
		x        []float64
		y        []float64
		expected float64
	}{
		{
			name:     "Perfect positive",
			x:        []float64{1, 2, 3, 4, 5},
			y:        []float64{2, 4, 6, 8, 10},
			expected: 1.0,
		},
		{
			name:     "Perfect negative",
			x:        []float64{1, 2, 3, 4, 5},
			y:        []float64{10, 8, 6, 4, 2},
			expected: -1.0,
		},
		{
			name:     "Constant series",
			x:        []float64{1, 2, 3},
			y:        []float64{5, 5, 5},
			expected: 0.0,
		},
		{
			name:     "Length mismatch",
			x:        []float64{1, 2},
			y:        []float64{1, 2, 3},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Correlation(tt.x, tt.y)
			if !almostEqual(result, tt.expected, 1e-10) {
				t.Errorf("Correlation() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestLinearRegression(t *testing.T) {
	// y = 2x + 1 exactly
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{3, 5, 7, 9, 11}

	slope, intercept := LinearRegression(x, y)
	if !almostEqual(slope, 2.0, 1e-10) {
		t.Errorf("slope = %v, want 2.0", slope)
	}
	if !almostEqual(intercept, 1.0, 1e-10) {
		t.Errorf("intercept = %v, want 1.0", intercept)
	}

	// Degenerate x returns the mean of y as intercept
	slope, intercept = LinearRegression([]float64{3, 3, 3}, []float64{1, 2, 3})
	if slope != 0 || !almostEqual(intercept, 2.0, 1e-10) {
		t.Errorf("degenerate regression = (%v, %v), want (0, 2)", slope, intercept)
	}
}

func TestRegressionTStat(t *testing.T) {
	// A clear linear relation with small residuals gives a large |t|
	x := make([]float64, 50)
	y := make([]float64, 50)
	for i := range x {
		x[i] = float64(i)
		y[i] = 3*float64(i) + 0.1*math.Sin(float64(i))
	}

	slope, tStat := RegressionTStat(x, y)
	if !almostEqual(slope, 3.0, 0.01) {
		t.Errorf("slope = %v, want ≈3.0", slope)
	}
	if tStat < 100 {
		t.Errorf("tStat = %v, want strongly positive", tStat)
	}

	// Too few points
	if s, ts := RegressionTStat([]float64{1, 2}, []float64{1, 2}); s != 0 || ts != 0 {
		t.Errorf("RegressionTStat() with 2 points = (%v, %v), want (0, 0)", s, ts)
	}
}

func TestCalculateRollingStats(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}
	s := CalculateRollingStats(data, 3)
	if s.Count != 3 {
		t.Fatalf("Count = %d, want 3", s.Count)
	}
	if !almostEqual(s.Mean, 5.0, 1e-10) {
		t.Errorf("Mean = %v, want 5.0", s.Mean)
	}

	// Period larger than data uses everything
	s = CalculateRollingStats(data, 100)
	if s.Count != 6 {
		t.Errorf("Count = %d, want 6", s.Count)
	}
}
