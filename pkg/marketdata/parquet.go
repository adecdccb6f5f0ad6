package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
)

// Compile-time interface check.
var _ Store = (*ParquetStore)(nil)

// ParquetStore persists bar data as one Parquet file per symbol.
// Layout: <dir>/<SYMBOL>.parquet
type ParquetStore struct {
	Dir string
}

// NewParquetStore creates a ParquetStore rooted at dir.
func NewParquetStore(dir string) *ParquetStore {
	return &ParquetStore{Dir: dir}
}

// barRecord is the on-disk Parquet schema.
type barRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
}

func (s *ParquetStore) path(symbol string) string {
	return filepath.Join(s.Dir, strings.ToUpper(symbol)+".parquet")
}

// ReadSeries reads the symbol's Parquet file and filters to [start, end].
func (s *ParquetStore) ReadSeries(_ context.Context, symbol string, start, end time.Time) (PriceSeries, error) {
	records, err := parquet.ReadFile[barRecord](s.path(symbol))
	if err != nil {
		return PriceSeries{}, fmt.Errorf("read parquet for %s: %w", symbol, err)
	}

	series := PriceSeries{Symbol: symbol}
	for _, r := range records {
		ts := time.UnixMilli(r.Timestamp).UTC()
		if ts.Before(start) || ts.After(end) {
			continue
		}
		series.Points = append(series.Points, PricePoint{
			Timestamp: ts,
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
		})
	}

	sort.Slice(series.Points, func(i, j int) bool {
		return series.Points[i].Timestamp.Before(series.Points[j].Timestamp)
	})
	return series, nil
}

// WriteSeries merges the incoming points with any existing file, deduplicating
// by timestamp with incoming records winning.
func (s *ParquetStore) WriteSeries(_ context.Context, series PriceSeries) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}

	path := s.path(series.Symbol)
	existing, _ := parquet.ReadFile[barRecord](path)

	seen := make(map[int64]barRecord, len(existing)+len(series.Points))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, p := range series.Points {
		seen[p.Timestamp.UnixMilli()] = barRecord{
			Symbol:    series.Symbol,
			Timestamp: p.Timestamp.UnixMilli(),
			Open:      p.Open,
			High:      p.High,
			Low:       p.Low,
			Close:     p.Close,
			Volume:    p.Volume,
		}
	}

	merged := make([]barRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp < merged[j].Timestamp })

	if err := parquet.WriteFile(path, merged); err != nil {
		return fmt.Errorf("write parquet for %s: %w", series.Symbol, err)
	}
	return nil
}

// ListSymbols lists symbols that have a Parquet file in the data directory.
func (s *ParquetStore) ListSymbols(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".parquet") {
			continue
		}
		symbols = append(symbols, strings.TrimSuffix(name, ".parquet"))
	}
	sort.Strings(symbols)
	return symbols, nil
}
