package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore keeps all symbols in a single bars table, keyed by
// (symbol, ts). Useful when the universe is wide and per-file stores
// get unwieldy.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol TEXT NOT NULL,
	ts     INTEGER NOT NULL, -- Unix ms
	open   REAL NOT NULL,
	high   REAL NOT NULL,
	low    REAL NOT NULL,
	close  REAL NOT NULL,
	volume INTEGER NOT NULL,
	PRIMARY KEY (symbol, ts)
);
CREATE INDEX IF NOT EXISTS idx_bars_symbol_ts ON bars(symbol, ts);
`

// OpenSQLiteStore opens (creating if needed) the bar database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ReadSeries queries the bars for symbol within [start, end].
func (s *SQLiteStore) ReadSeries(ctx context.Context, symbol string, start, end time.Time) (PriceSeries, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, open, high, low, close, volume
		 FROM bars WHERE symbol = ? AND ts BETWEEN ? AND ?
		 ORDER BY ts ASC`,
		symbol, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return PriceSeries{}, fmt.Errorf("query bars for %s: %w", symbol, err)
	}
	defer rows.Close()

	series := PriceSeries{Symbol: symbol}
	for rows.Next() {
		var ts int64
		var p PricePoint
		if err := rows.Scan(&ts, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return PriceSeries{}, fmt.Errorf("scan bar for %s: %w", symbol, err)
		}
		p.Timestamp = time.UnixMilli(ts).UTC()
		series.Points = append(series.Points, p)
	}
	if err := rows.Err(); err != nil {
		return PriceSeries{}, fmt.Errorf("iterate bars for %s: %w", symbol, err)
	}
	return series, nil
}

// WriteSeries upserts the series points in one transaction. Re-importing
// overlapping data is safe: existing rows are replaced.
func (s *SQLiteStore) WriteSeries(ctx context.Context, series PriceSeries) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO bars (symbol, ts, open, high, low, close, volume)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(symbol, ts) DO UPDATE SET
		   open = excluded.open, high = excluded.high,
		   low = excluded.low, close = excluded.close,
		   volume = excluded.volume`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range series.Points {
		if _, err := stmt.ExecContext(ctx, series.Symbol, p.Timestamp.UnixMilli(),
			p.Open, p.High, p.Low, p.Close, p.Volume); err != nil {
			return fmt.Errorf("upsert bar %s@%s: %w", series.Symbol, p.Timestamp.Format(time.RFC3339), err)
		}
	}
	return tx.Commit()
}

// ListSymbols returns the distinct symbols present in the bars table.
func (s *SQLiteStore) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM bars ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}
