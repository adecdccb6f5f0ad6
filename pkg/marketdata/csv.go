package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Compile-time interface check.
var _ Store = (*CSVStore)(nil)

// CSVStore reads and writes per-symbol bar files under a data directory.
// Layout: <dir>/<SYMBOL>.csv with header
//
//	timestamp,open,high,low,close,volume
//
// where timestamp is either RFC3339 or a YYYY-MM-DD date.
type CSVStore struct {
	Dir string
}

// NewCSVStore creates a CSVStore rooted at dir.
func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{Dir: dir}
}

func (s *CSVStore) path(symbol string) string {
	return filepath.Join(s.Dir, strings.ToUpper(symbol)+".csv")
}

// ReadSeries loads the bar file for symbol and filters to [start, end].
// Rows that fail to parse are skipped, matching the tolerant row policy of
// tick replay readers; a missing file is an error for the caller to handle.
func (s *CSVStore) ReadSeries(_ context.Context, symbol string, start, end time.Time) (PriceSeries, error) {
	file, err := os.Open(s.path(symbol))
	if err != nil {
		return PriceSeries{}, fmt.Errorf("open bar file for %s: %w", symbol, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return PriceSeries{}, fmt.Errorf("read CSV header for %s: %w", symbol, err)
	}
	if len(header) < 6 {
		return PriceSeries{}, fmt.Errorf("invalid CSV format for %s: expected 6 columns, got %d", symbol, len(header))
	}

	series := PriceSeries{Symbol: symbol}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return PriceSeries{}, fmt.Errorf("read CSV row for %s: %w", symbol, err)
		}

		point, err := parseCSVBar(record)
		if err != nil {
			// Skip invalid rows
			continue
		}
		if point.Timestamp.Before(start) || point.Timestamp.After(end) {
			continue
		}
		series.Points = append(series.Points, point)
	}

	sort.Slice(series.Points, func(i, j int) bool {
		return series.Points[i].Timestamp.Before(series.Points[j].Timestamp)
	})
	return series, nil
}

// parseCSVBar parses one data row into a PricePoint.
func parseCSVBar(record []string) (PricePoint, error) {
	if len(record) < 6 {
		return PricePoint{}, fmt.Errorf("expected 6 fields, got %d", len(record))
	}

	ts, err := parseTimestamp(record[0])
	if err != nil {
		return PricePoint{}, err
	}

	fields := make([]float64, 4)
	for i := 0; i < 4; i++ {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return PricePoint{}, fmt.Errorf("invalid price field %d: %w", i+1, err)
		}
		fields[i] = v
	}

	volume, err := strconv.ParseInt(record[5], 10, 64)
	if err != nil {
		return PricePoint{}, fmt.Errorf("invalid volume: %w", err)
	}

	return PricePoint{
		Timestamp: ts,
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    volume,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// WriteSeries writes the full bar file for a symbol, overwriting any
// existing file.
func (s *CSVStore) WriteSeries(_ context.Context, series PriceSeries) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}

	file, err := os.Create(s.path(series.Symbol))
	if err != nil {
		return fmt.Errorf("create bar file for %s: %w", series.Symbol, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"timestamp", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, p := range series.Points {
		record := []string{
			p.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(p.Open, 'f', -1, 64),
			strconv.FormatFloat(p.High, 'f', -1, 64),
			strconv.FormatFloat(p.Low, 'f', -1, 64),
			strconv.FormatFloat(p.Close, 'f', -1, 64),
			strconv.FormatInt(p.Volume, 10),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ListSymbols lists symbols that have a bar file in the data directory.
func (s *CSVStore) ListSymbols(_ context.Context) ([]string, error) {
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
		if e.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		symbols = append(symbols, strings.TrimSuffix(name, ".csv"))
	}
	sort.Strings(symbols)
	return symbols, nil
}
