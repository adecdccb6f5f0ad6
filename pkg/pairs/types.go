// Package pairs implements pair discovery: correlation screening,
// cointegration testing and hedge-ratio estimation over historical
// price series.
package pairs

import (
	"fmt"
	"time"
)

// CandidatePair 协整配对候选
// 由 Analyzer 在一次选对扫描中产出；不可变，下一次扫描整体替换
type CandidatePair struct {
	SymbolA             string    `json:"symbol_a"`
	SymbolB             string    `json:"symbol_b"`
	Correlation         float64   `json:"correlation"`           // 收益率 Pearson 相关系数
	CointegrationPValue float64   `json:"cointegration_p_value"` // ADF 检验 p 值
	HedgeRatio          float64   `json:"hedge_ratio"`           // B 对 A 回归斜率
	SpreadMean          float64   `json:"spread_mean"`
	SpreadStd           float64   `json:"spread_std"`
	HalfLifeDays        float64   `json:"half_life_days"` // 均值回归半衰期（bar 间隔数）
	ComputedAt          time.Time `json:"computed_at"`
}

// Name 返回配对的标准名称，如 "AAPL/MSFT"
func (p CandidatePair) Name() string {
	return fmt.Sprintf("%s/%s", p.SymbolA, p.SymbolB)
}

// Valid 检查配对是否满足可交易的基本不变量
func (p CandidatePair) Valid() bool {
	return p.SymbolA != "" && p.SymbolB != "" &&
		p.HalfLifeDays > 0 &&
		p.SpreadStd > 1e-10
}
