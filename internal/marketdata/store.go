// Package marketdata supplies aligned price pairs from a local SQLite
// store of daily adjusted closes. It is the offline boundary standing
// in for the research price database.
package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/statarb/pairbt/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS symbols (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS daily_prices (
	symbol_id INTEGER NOT NULL REFERENCES symbols(id),
	date TEXT NOT NULL,
	adj_close REAL NOT NULL,
	PRIMARY KEY (symbol_id, date)
);
`

// Store is a SQLite-backed daily price store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the price database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("initializing schema: %w", err))
	}
	return &Store{db: db}, nil
}

// Upsert inserts or replaces daily closes for one ticker.
func (s *Store) Upsert(ctx context.Context, ticker string, points []core.PricePoint) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO symbols (ticker) VALUES (?)`, ticker); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx,
		`SELECT id FROM symbols WHERE ticker = ?`, ticker).Scan(&id); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO daily_prices (symbol_id, date, adj_close) VALUES (?, ?, ?)`)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	defer stmt.Close()
	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, id, p.Date.Format(core.DateLayout), p.Price); err != nil {
			return core.WrapError(core.ErrStorageFailed, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	return nil
}

// Prices returns one ticker's daily closes in [from, to], ascending by
// date. An unknown ticker or empty range returns core.ErrNoData.
func (s *Store) Prices(ctx context.Context, ticker string, from, to time.Time) ([]core.PricePoint, error) {
	rs, err := s.db.QueryContext(ctx, `
		SELECT dp.date, dp.adj_close
		FROM daily_prices dp
		JOIN symbols sym ON sym.id = dp.symbol_id
		WHERE sym.ticker = ? AND dp.date >= ? AND dp.date <= ?
		ORDER BY dp.date`,
		ticker, from.Format(core.DateLayout), to.Format(core.DateLayout))
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	defer rs.Close()

	var out []core.PricePoint
	for rs.Next() {
		var date string
		var p core.PricePoint
		if err := rs.Scan(&date, &p.Price); err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		if p.Date, err = time.Parse(core.DateLayout, date); err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		out = append(out, p)
	}
	if err := rs.Err(); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	if len(out) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("ticker %s in [%s, %s]",
			ticker, from.Format(core.DateLayout), to.Format(core.DateLayout)))
	}
	return out, nil
}

// LoadPair fetches both legs and aligns them on their shared dates.
func (s *Store) LoadPair(ctx context.Context, pair core.Pair, from, to time.Time) (core.PricePair, error) {
	p1, err := s.Prices(ctx, pair.Ticker1, from, to)
	if err != nil {
		return core.PricePair{}, err
	}
	p2, err := s.Prices(ctx, pair.Ticker2, from, to)
	if err != nil {
		return core.PricePair{}, err
	}
	return AlignPair(pair, p1, p2, DefaultMissingThreshold)
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
