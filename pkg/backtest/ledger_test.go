package backtest

import (
	"errors"
	"math"
	"testing"
	"time"
)

func tick(n int) time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestOpenLongDebitsCash(t *testing.T) {
	l := NewLedger(10000, 1.0, 0.001)

	if err := l.OpenLong("AAA", "AAA/BBB", 10, 100, tick(0)); err != nil {
		t.Fatalf("OpenLong() error: %v", err)
	}

	// cost = 10 * 100 * 1.001 + 1 = 1002
	wantCash := 10000 - 1002.0
	if !almostEqual(l.Cash(), wantCash, 1e-9) {
		t.Errorf("Cash() = %v, want %v", l.Cash(), wantCash)
	}

	lot, ok := l.Position("AAA")
	if !ok || lot.Quantity != 10 {
		t.Fatalf("Position() = %+v, %v, want long 10", lot, ok)
	}
	if !almostEqual(lot.EntryPrice, 100.1, 1e-9) {
		t.Errorf("EntryPrice = %v, want 100.1 (slipped)", lot.EntryPrice)
	}
}

func TestOpenShortCreditsCash(t *testing.T) {
	l := NewLedger(10000, 1.0, 0.001)

	if err := l.OpenShort("BBB", "AAA/BBB", 10, 100, tick(0)); err != nil {
		t.Fatalf("OpenShort() error: %v", err)
	}

	// proceeds = 10 * 100 * 0.999 - 1 = 998
	wantCash := 10000 + 998.0
	if !almostEqual(l.Cash(), wantCash, 1e-9) {
		t.Errorf("Cash() = %v, want %v", l.Cash(), wantCash)
	}

	lot, _ := l.Position("BBB")
	if lot.Quantity != -10 {
		t.Errorf("Quantity = %d, want -10", lot.Quantity)
	}
}

func TestOpenLongInsufficientCash(t *testing.T) {
	l := NewLedger(500, 1.0, 0)

	err := l.OpenLong("AAA", "AAA/BBB", 10, 100, tick(0))
	if !errors.Is(err, ErrOrderRejected) {
		t.Fatalf("OpenLong() error = %v, want ErrOrderRejected", err)
	}

	// 全部成交或全部拒绝：现金不能被部分扣减
	if l.Cash() != 500 {
		t.Errorf("Cash() = %v, want 500 untouched", l.Cash())
	}
	if l.OpenPositionCount() != 0 {
		t.Errorf("OpenPositionCount() = %d, want 0", l.OpenPositionCount())
	}
}

func TestCloseLongRealizesPNL(t *testing.T) {
	l := NewLedger(10000, 1.0, 0)

	if err := l.OpenLong("AAA", "AAA/BBB", 10, 100, tick(0)); err != nil {
		t.Fatal(err)
	}
	trade, err := l.Close("AAA", 10, 110, tick(2), "MEAN_REVERSION")
	if err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	// pnl = (10*110 - 1) - (10*100 + 1) = 1099 - 1001 = 98
	if !almostEqual(trade.PNL, 98, 1e-9) {
		t.Errorf("PNL = %v, want 98", trade.PNL)
	}
	if trade.ExitReason != "MEAN_REVERSION" {
		t.Errorf("ExitReason = %q, want MEAN_REVERSION", trade.ExitReason)
	}
	if !almostEqual(trade.DurationHours, 48, 1e-9) {
		t.Errorf("DurationHours = %v, want 48", trade.DurationHours)
	}

	// 现金回到初始值加已实现盈亏
	if !almostEqual(l.Cash(), 10098, 1e-9) {
		t.Errorf("Cash() = %v, want 10098", l.Cash())
	}
	if l.OpenPositionCount() != 0 {
		t.Errorf("OpenPositionCount() = %d, want 0", l.OpenPositionCount())
	}
}

func TestCloseShortRealizesPNL(t *testing.T) {
	l := NewLedger(10000, 1.0, 0)

	if err := l.OpenShort("BBB", "AAA/BBB", 10, 100, tick(0)); err != nil {
		t.Fatal(err)
	}
	trade, err := l.Close("BBB", 10, 90, tick(1), "MEAN_REVERSION")
	if err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	// entry proceeds = 999, cover cost = 901 ⇒ pnl = 98
	if !almostEqual(trade.PNL, 98, 1e-9) {
		t.Errorf("PNL = %v, want 98", trade.PNL)
	}
	if trade.Quantity != -10 {
		t.Errorf("Quantity = %d, want -10 (as held)", trade.Quantity)
	}
	if !almostEqual(l.Cash(), 10098, 1e-9) {
		t.Errorf("Cash() = %v, want 10098", l.Cash())
	}
}

func TestCloseShortGapAllowsNegativeCash(t *testing.T) {
	// 强制平仓不做资金检查：跳空止损时买入回补可以让现金暂时为负
	// 拒绝平仓只会留下裸腿，权益口径仍然守恒
	l := NewLedger(100, 1.0, 0)

	if err := l.OpenShort("GME", "GME/AMC", 10, 100, tick(0)); err != nil {
		t.Fatal(err)
	}
	// cash = 100 + 999 = 1099

	trade, err := l.Close("GME", 10, 250, tick(1), "STOP_LOSS")
	if err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	// entry proceeds = 999, cover cost = 2501 ⇒ pnl = -1502
	if !almostEqual(trade.PNL, -1502, 1e-9) {
		t.Errorf("PNL = %v, want -1502", trade.PNL)
	}
	if l.Cash() >= 0 {
		t.Errorf("Cash() = %v, want negative after gapped cover", l.Cash())
	}
	// 现金 = 初始资金 + 已实现盈亏
	if !almostEqual(l.Cash(), 100+trade.PNL, 1e-9) {
		t.Errorf("Cash() = %v, want %v", l.Cash(), 100+trade.PNL)
	}
	if l.OpenPositionCount() != 0 {
		t.Errorf("OpenPositionCount() = %d, want 0", l.OpenPositionCount())
	}
}

func TestCloseQuantityMismatch(t *testing.T) {
	l := NewLedger(10000, 0, 0)
	if err := l.OpenLong("AAA", "AAA/BBB", 10, 100, tick(0)); err != nil {
		t.Fatal(err)
	}

	if _, err := l.Close("AAA", 5, 100, tick(1), "STOP_LOSS"); err == nil {
		t.Error("Close() with partial quantity succeeded, want error")
	}
	if _, err := l.Close("ZZZ", 10, 100, tick(1), "STOP_LOSS"); err == nil {
		t.Error("Close() with no position succeeded, want error")
	}
}

func TestRollbackOpenRestoresCash(t *testing.T) {
	l := NewLedger(10000, 1.0, 0.001)

	if err := l.OpenShort("BBB", "AAA/BBB", 10, 100, tick(0)); err != nil {
		t.Fatal(err)
	}
	l.RollbackOpen("BBB")

	if !almostEqual(l.Cash(), 10000, 1e-9) {
		t.Errorf("Cash() after rollback = %v, want 10000", l.Cash())
	}
	if l.OpenPositionCount() != 0 {
		t.Errorf("OpenPositionCount() = %d, want 0", l.OpenPositionCount())
	}
	if len(l.Trades()) != 0 {
		t.Errorf("Trades() = %d, want 0 (rollback is not a trade)", len(l.Trades()))
	}
}

func TestMarkEquityValuesSignedPositions(t *testing.T) {
	l := NewLedger(10000, 0, 0)

	if err := l.OpenLong("AAA", "AAA/BBB", 10, 100, tick(0)); err != nil {
		t.Fatal(err)
	}
	if err := l.OpenShort("BBB", "AAA/BBB", 5, 200, tick(0)); err != nil {
		t.Fatal(err)
	}
	// cash = 10000 - 1000 + 1000 = 10000

	point := l.MarkEquity(tick(0), map[string]float64{"AAA": 110, "BBB": 190})
	// equity = 10000 + 10*110 - 5*190 = 10150
	if !almostEqual(point.Value, 10150, 1e-9) {
		t.Errorf("MarkEquity() = %v, want 10150", point.Value)
	}
	if len(l.EquityCurve()) != 1 {
		t.Errorf("EquityCurve() length = %d, want 1", len(l.EquityCurve()))
	}
}
