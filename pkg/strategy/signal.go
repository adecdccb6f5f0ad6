// Package strategy implements the spread mean-reversion strategy engine:
// per-pair Z-score state machines plus the orchestration layer that sizes
// positions and emits trade signals.
package strategy

import (
	"time"

	"github.com/yourusername/statarb-engine/pkg/marketdata"
)

// Direction 信号方向
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// SpreadSide 价差仓位方向
type SpreadSide string

const (
	SideFlat        SpreadSide = "FLAT"
	SideLongSpread  SpreadSide = "LONG_SPREAD"  // 买 B 卖 A（价差过低）
	SideShortSpread SpreadSide = "SHORT_SPREAD" // 卖 B 买 A（价差过高）
)

// ExitReason 平仓触发原因
type ExitReason string

const (
	ExitMeanReversion ExitReason = "MEAN_REVERSION"
	ExitStopLoss      ExitReason = "STOP_LOSS"
	ExitTimeLimit     ExitReason = "TIME_LIMIT"
)

// SignalMeta 信号的类型化元数据
// 开仓和平仓携带不同字段，用变体类型代替字符串 map
type SignalMeta interface {
	PairName() string
	isSignalMeta()
}

// EntryMeta 开仓信号元数据
type EntryMeta struct {
	Pair       string
	ZScore     float64
	HedgeRatio float64
	Side       SpreadSide
}

func (m EntryMeta) PairName() string { return m.Pair }
func (EntryMeta) isSignalMeta()      {}

// ExitMeta 平仓信号元数据
type ExitMeta struct {
	Pair   string
	ZScore float64
	Reason ExitReason
}

func (m ExitMeta) PairName() string { return m.Pair }
func (ExitMeta) isSignalMeta()      {}

// Signal 单腿交易信号，生成后不可变
type Signal struct {
	Symbol    string
	Direction Direction
	Strength  float64 // [0, 1]
	Timestamp time.Time
	Price     float64 // 信号价（市场价，滑点由执行层施加）
	Quantity  int64
	Meta      SignalMeta
}

// MarketData 每个评估 tick 交给策略的数据切片
// Series 只包含截止当前时间戳的数据（无未来数据）
type MarketData struct {
	Timestamp time.Time
	Cash      float64
	Series    map[string]marketdata.PriceSeries
}
