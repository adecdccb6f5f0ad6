package strategy

import (
	"context"
	"log"
	"math"
	"sort"
	"time"

	"github.com/yourusername/statarb-engine/pkg/marketdata"
	"github.com/yourusername/statarb-engine/pkg/pairs"
)

// PairSelector 配对选择器接口，便于注入和测试
type PairSelector interface {
	SelectPairs(ctx context.Context, series map[string]marketdata.PriceSeries, asOf time.Time) []pairs.CandidatePair
}

// EngineConfig 策略引擎参数
type EngineConfig struct {
	Thresholds             Thresholds
	RebalanceFrequencyDays int     // 重新选对周期（日历日）
	PositionSizeUSD        float64 // 单配对美元配额
}

// Engine 策略引擎
// 维护活跃配对集合和每对一个的价差状态机；按固定周期重新选对
// 被新候选集淘汰但仍持仓的配对继续管理到自然平仓
// 所有状态都限定在单个 Engine 实例内，多个回测可并行互不干扰
type Engine struct {
	cfg      EngineConfig
	selector PairSelector

	machines      map[string]*SpreadSignal
	active        map[string]bool // 当前候选集中的配对
	lastRebalance time.Time
}

// NewEngine creates an Engine backed by the given selector.
func NewEngine(cfg EngineConfig, selector PairSelector) *Engine {
	return &Engine{
		cfg:      cfg,
		selector: selector,
		machines: make(map[string]*SpreadSignal),
		active:   make(map[string]bool),
	}
}

// GenerateSignals 策略主入口
// market data 只包含截止当前时间戳的数据；返回本 tick 的全部信号
// 无信号时返回空列表（不是错误）
func (e *Engine) GenerateSignals(ctx context.Context, md MarketData) []Signal {
	if e.rebalanceDue(md.Timestamp) {
		e.rebalance(ctx, md)
	}

	// 固定迭代顺序，保证确定性
	names := make([]string, 0, len(e.machines))
	for name := range e.machines {
		names = append(names, name)
	}
	sort.Strings(names)

	var signals []Signal
	for _, name := range names {
		m := e.machines[name]

		priceA, okA := md.Series[m.Pair.SymbolA].LastClose(md.Timestamp)
		priceB, okB := md.Series[m.Pair.SymbolB].LastClose(md.Timestamp)
		if !okA || !okB {
			// 某条腿当前没有可用价格，跳过本 tick
			continue
		}

		if m.Side == SideFlat {
			signals = append(signals, e.evaluateEntry(m, md, priceA, priceB)...)
		} else {
			signals = append(signals, e.evaluateExit(m, md.Timestamp, priceA, priceB)...)
		}
	}
	return signals
}

func (e *Engine) rebalanceDue(t time.Time) bool {
	if e.lastRebalance.IsZero() {
		return true
	}
	period := time.Duration(e.cfg.RebalanceFrequencyDays) * 24 * time.Hour
	return t.Sub(e.lastRebalance) >= period
}

// rebalance 重新选对并替换候选集
// 持仓中的配对保留旧状态机（含冻结的价差统计量），避免仓位统计口径漂移
func (e *Engine) rebalance(ctx context.Context, md MarketData) {
	selected := e.selector.SelectPairs(ctx, md.Series, md.Timestamp)
	e.lastRebalance = md.Timestamp

	e.active = make(map[string]bool, len(selected))
	for _, p := range selected {
		name := p.Name()
		e.active[name] = true

		if m, ok := e.machines[name]; ok && m.Side != SideFlat {
			continue
		}
		e.machines[name] = NewSpreadSignal(p, e.cfg.Thresholds)
	}

	// 淘汰未持仓且不在新候选集中的配对
	for name, m := range e.machines {
		if !e.active[name] && m.Side == SideFlat {
			delete(e.machines, name)
		}
	}

	log.Printf("[StrategyEngine] 重新选对完成: %d 个候选, %d 个状态机在管", len(selected), len(e.machines))
}

// evaluateEntry 入场评估；仓位大小不合格时不发任何信号
func (e *Engine) evaluateEntry(m *SpreadSignal, md MarketData, priceA, priceB float64) []Signal {
	side, strength, triggered := m.EvaluateEntry(priceA, priceB)
	if !triggered {
		return nil
	}

	qtyA, qtyB, ok := e.sizePair(priceA, priceB, m.Pair.HedgeRatio)
	if !ok {
		return nil
	}

	signals := m.entrySignals(side, md.Timestamp, priceA, priceB, qtyA, qtyB, strength)
	m.Enter(side, md.Timestamp, priceA, priceB, qtyA, qtyB)
	return signals
}

// evaluateExit 出场评估；触发后状态机复位，被淘汰的配对随即移出管理
func (e *Engine) evaluateExit(m *SpreadSignal, t time.Time, priceA, priceB float64) []Signal {
	reason, triggered := m.EvaluateExit(t, priceA, priceB)
	if !triggered {
		return nil
	}

	signals := m.exitSignals(reason, t, priceA, priceB)
	name := m.Pair.Name()
	m.Reset()
	if !e.active[name] {
		delete(e.machines, name)
	}
	return signals
}

// sizePair 计算两腿的整数股数
// 采用严格对冲比匹配: qty_b ≈ qty_a × |β|（四舍五入，最少 1 股）
// 任一腿成本超出配额则拒绝（不发信号）
func (e *Engine) sizePair(priceA, priceB, hedgeRatio float64) (qtyA, qtyB int64, ok bool) {
	alloc := e.cfg.PositionSizeUSD
	if alloc <= 0 || priceA <= 0 || priceB <= 0 {
		return 0, 0, false
	}

	qtyA = int64(math.Floor(alloc / 2 / priceA))
	if qtyA < 1 {
		return 0, 0, false
	}

	qtyB = int64(math.Round(float64(qtyA) * math.Abs(hedgeRatio)))
	if qtyB < 1 {
		qtyB = 1
	}

	if float64(qtyA)*priceA > alloc || float64(qtyB)*priceB > alloc {
		return 0, 0, false
	}
	return qtyA, qtyB, true
}

// OnEntryRejected 执行层回报开仓被拒（资金不足等），状态机回滚到 FLAT
func (e *Engine) OnEntryRejected(pairName string) {
	if m, ok := e.machines[pairName]; ok {
		m.Reset()
	}
}

// OpenPositions 返回当前持仓中的配对名，按名称排序
func (e *Engine) OpenPositions() []string {
	var out []string
	for name, m := range e.machines {
		if m.Side != SideFlat {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
