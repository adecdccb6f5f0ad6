package stats

import (
	"sync"
)

// TimeSeries 管理一个有界时间序列
// 超过 MaxLength 时丢弃最旧的数据点，避免无限增长
type TimeSeries struct {
	Name       string
	Data       []float64
	Timestamps []int64 // Unix nano timestamps
	MaxLength  int
	mu         sync.RWMutex
}

// NewTimeSeries 创建新的时间序列
func NewTimeSeries(name string, maxLength int) *TimeSeries {
	return &TimeSeries{
		Name:       name,
		Data:       make([]float64, 0, maxLength),
		Timestamps: make([]int64, 0, maxLength),
		MaxLength:  maxLength,
	}
}

// Append 添加新数据点（线程安全）
func (ts *TimeSeries) Append(value float64, timestamp int64) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.Data = append(ts.Data, value)
	ts.Timestamps = append(ts.Timestamps, timestamp)

	// 限制长度
	if len(ts.Data) > ts.MaxLength {
		ts.Data = ts.Data[1:]
		ts.Timestamps = ts.Timestamps[1:]
	}
}

// GetLast 获取最近 n 个数据点
func (ts *TimeSeries) GetLast(n int) []float64 {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	if n <= 0 || n > len(ts.Data) {
		n = len(ts.Data)
	}

	if n == 0 {
		return []float64{}
	}

	// 返回副本，避免外部修改
	result := make([]float64, n)
	copy(result, ts.Data[len(ts.Data)-n:])
	return result
}

// GetAll 获取所有数据点
func (ts *TimeSeries) GetAll() []float64 {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	result := make([]float64, len(ts.Data))
	copy(result, ts.Data)
	return result
}

// Len 返回当前数据点数量
func (ts *TimeSeries) Len() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.Data)
}

// Last 获取最新的数据点
func (ts *TimeSeries) Last() (float64, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	if len(ts.Data) == 0 {
		return 0, false
	}
	return ts.Data[len(ts.Data)-1], true
}

// Stats 计算滚动窗口统计
func (ts *TimeSeries) Stats(period int) RollingWindowStats {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	return CalculateRollingStats(ts.Data, period)
}

// Clear 清空时间序列
func (ts *TimeSeries) Clear() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.Data = make([]float64, 0, ts.MaxLength)
	ts.Timestamps = make([]int64, 0, ts.MaxLength)
}
