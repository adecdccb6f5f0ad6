package stats

import (
	"testing"
)

func TestTimeSeriesAppendAndBound(t *testing.T) {
	ts := NewTimeSeries("spread", 3)

	for i := 0; i < 5; i++ {
		ts.Append(float64(i), int64(i))
	}

	// 超过 MaxLength 后丢弃最旧的数据点
	if ts.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", ts.Len())
	}

	all := ts.GetAll()
	want := []float64{2, 3, 4}
	for i := range want {
		if all[i] != want[i] {
			t.Errorf("GetAll()[%d] = %v, want %v", i, all[i], want[i])
		}
	}
}

func TestTimeSeriesGetLast(t *testing.T) {
	ts := NewTimeSeries("spread", 10)
	for i := 0; i < 5; i++ {
		ts.Append(float64(i), int64(i))
	}

	last2 := ts.GetLast(2)
	if len(last2) != 2 || last2[0] != 3 || last2[1] != 4 {
		t.Errorf("GetLast(2) = %v, want [3 4]", last2)
	}

	// n 超过长度时返回全部
	if got := ts.GetLast(100); len(got) != 5 {
		t.Errorf("GetLast(100) length = %d, want 5", len(got))
	}

	// 返回的是副本，修改不影响内部数据
	last2[0] = 999
	if ts.GetAll()[3] == 999 {
		t.Error("GetLast() returned internal slice, want a copy")
	}
}

func TestTimeSeriesLast(t *testing.T) {
	ts := NewTimeSeries("spread", 10)

	if _, ok := ts.Last(); ok {
		t.Error("Last() on empty series, want ok=false")
	}

	ts.Append(7.5, 1)
	v, ok := ts.Last()
	if !ok || v != 7.5 {
		t.Errorf("Last() = (%v, %v), want (7.5, true)", v, ok)
	}
}

func TestTimeSeriesClear(t *testing.T) {
	ts := NewTimeSeries("spread", 10)
	ts.Append(1, 1)
	ts.Append(2, 2)

	ts.Clear()
	if ts.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", ts.Len())
	}
}

func TestTimeSeriesStats(t *testing.T) {
	ts := NewTimeSeries("spread", 10)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		ts.Append(v, 0)
	}

	s := ts.Stats(5)
	if !almostEqual(s.Mean, 3.0, 1e-10) {
		t.Errorf("Stats().Mean = %v, want 3.0", s.Mean)
	}
	if s.Count != 5 {
		t.Errorf("Stats().Count = %d, want 5", s.Count)
	}
}
