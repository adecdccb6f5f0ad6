package strategy

import (
	"math"
	"time"

	"github.com/yourusername/statarb-engine/pkg/pairs"
	"github.com/yourusername/statarb-engine/pkg/stats"
)

// maxHoldingDays 持仓时间上限（日历日）
const maxHoldingDays = 60

// Thresholds Z-Score 触发阈值
type Thresholds struct {
	Entry    float64 // 入场: |z| >= Entry
	Exit     float64 // 均值回归出场: |z| <= Exit
	StopLoss float64 // 止损: |z| >= StopLoss
}

// SpreadSignal 单配对价差状态机
// FLAT → (入场) → LONG_SPREAD / SHORT_SPREAD → (出场/止损/超时) → FLAT
// Z-Score 使用选对时冻结的 SpreadMean/SpreadStd，保证信号可复现
type SpreadSignal struct {
	Pair       pairs.CandidatePair
	Side       SpreadSide
	EntryTime  time.Time
	EntryZ     float64
	QuantityA  int64
	QuantityB  int64
	EntryPxA   float64
	EntryPxB   float64
	thresholds Thresholds
}

// NewSpreadSignal creates a FLAT state machine for the pair.
func NewSpreadSignal(pair pairs.CandidatePair, th Thresholds) *SpreadSignal {
	return &SpreadSignal{
		Pair:       pair,
		Side:       SideFlat,
		thresholds: th,
	}
}

// ZScore 用冻结统计量计算当前价差 Z-Score
// spread = price_b - β*price_a
func (s *SpreadSignal) ZScore(priceA, priceB float64) float64 {
	spread := priceB - s.Pair.HedgeRatio*priceA
	return stats.ZScore(spread, s.Pair.SpreadMean, s.Pair.SpreadStd)
}

// holdingLimit 持仓时间上限: min(3×半衰期, 60 天)
func (s *SpreadSignal) holdingLimit() time.Duration {
	limitDays := 3 * s.Pair.HalfLifeDays
	if limitDays > maxHoldingDays {
		limitDays = maxHoldingDays
	}
	return time.Duration(limitDays * 24 * float64(time.Hour))
}

// EvaluateEntry 在 FLAT 状态下检查入场条件
// 返回 (目标方向, 信号强度, 是否触发)；不满足则 triggered=false
// 价差标准差退化时不发信号
func (s *SpreadSignal) EvaluateEntry(priceA, priceB float64) (SpreadSide, float64, bool) {
	if s.Side != SideFlat {
		return SideFlat, 0, false
	}
	if s.Pair.SpreadStd < 1e-10 {
		return SideFlat, 0, false
	}

	z := s.ZScore(priceA, priceB)
	entry := s.thresholds.Entry

	switch {
	case z >= entry:
		// 价差过高 ⇒ 做空价差（卖 B 买 A）
		return SideShortSpread, math.Min(math.Abs(z)/entry, 1.0), true
	case z <= -entry:
		// 价差过低 ⇒ 做多价差（买 B 卖 A）
		return SideLongSpread, math.Min(math.Abs(z)/entry, 1.0), true
	default:
		return SideFlat, 0, false
	}
}

// Enter 记录入场成交，状态转为 LONG_SPREAD / SHORT_SPREAD
func (s *SpreadSignal) Enter(side SpreadSide, t time.Time, priceA, priceB float64, qtyA, qtyB int64) {
	s.Side = side
	s.EntryTime = t
	s.EntryZ = s.ZScore(priceA, priceB)
	s.QuantityA = qtyA
	s.QuantityB = qtyB
	s.EntryPxA = priceA
	s.EntryPxB = priceB
}

// EvaluateExit 在持仓状态下检查三个平仓条件
// 返回 (原因, 是否触发)；优先级: 止损 > 均值回归 > 超时
func (s *SpreadSignal) EvaluateExit(t time.Time, priceA, priceB float64) (ExitReason, bool) {
	if s.Side == SideFlat {
		return "", false
	}

	z := s.ZScore(priceA, priceB)
	absZ := math.Abs(z)

	if absZ >= s.thresholds.StopLoss {
		return ExitStopLoss, true
	}
	if absZ <= s.thresholds.Exit {
		return ExitMeanReversion, true
	}
	if t.Sub(s.EntryTime) >= s.holdingLimit() {
		return ExitTimeLimit, true
	}
	return "", false
}

// Reset 平仓后回到 FLAT
func (s *SpreadSignal) Reset() {
	s.Side = SideFlat
	s.EntryTime = time.Time{}
	s.EntryZ = 0
	s.QuantityA = 0
	s.QuantityB = 0
	s.EntryPxA = 0
	s.EntryPxB = 0
}

// entrySignals 生成一对开仓信号，SELL 腿在前（先回笼资金）
// LONG_SPREAD: 买 B 卖 A；SHORT_SPREAD: 卖 B 买 A
func (s *SpreadSignal) entrySignals(side SpreadSide, t time.Time, priceA, priceB float64, qtyA, qtyB int64, strength float64) []Signal {
	meta := EntryMeta{
		Pair:       s.Pair.Name(),
		ZScore:     s.ZScore(priceA, priceB),
		HedgeRatio: s.Pair.HedgeRatio,
		Side:       side,
	}

	legA := Signal{Symbol: s.Pair.SymbolA, Strength: strength, Timestamp: t, Price: priceA, Quantity: qtyA, Meta: meta}
	legB := Signal{Symbol: s.Pair.SymbolB, Strength: strength, Timestamp: t, Price: priceB, Quantity: qtyB, Meta: meta}

	if side == SideLongSpread {
		legB.Direction = DirectionBuy
		legA.Direction = DirectionSell
		return []Signal{legA, legB}
	}
	legB.Direction = DirectionSell
	legA.Direction = DirectionBuy
	return []Signal{legB, legA}
}

// exitSignals 生成一对平仓信号，数量严格等于开仓数量，保证完全对冲解除
func (s *SpreadSignal) exitSignals(reason ExitReason, t time.Time, priceA, priceB float64) []Signal {
	meta := ExitMeta{
		Pair:   s.Pair.Name(),
		ZScore: s.ZScore(priceA, priceB),
		Reason: reason,
	}

	legA := Signal{Symbol: s.Pair.SymbolA, Strength: 1.0, Timestamp: t, Price: priceA, Quantity: s.QuantityA, Meta: meta}
	legB := Signal{Symbol: s.Pair.SymbolB, Strength: 1.0, Timestamp: t, Price: priceB, Quantity: s.QuantityB, Meta: meta}

	// 平仓方向与开仓相反
	if s.Side == SideLongSpread {
		legB.Direction = DirectionSell
		legA.Direction = DirectionBuy
		return []Signal{legB, legA}
	}
	legB.Direction = DirectionBuy
	legA.Direction = DirectionSell
	return []Signal{legA, legB}
}
