package ledger

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
CREATE TABLE IF NOT EXISTS master_log (
	trade_id TEXT PRIMARY KEY,
	entry_date TEXT NOT NULL,
	position TEXT NOT NULL,
	ticker1 TEXT NOT NULL,
	ticker2 TEXT NOT NULL,
	pos1 REAL NOT NULL,
	pos2 REAL NOT NULL,
	entry_ratio REAL NOT NULL,
	exit_date TEXT NOT NULL,
	mean_daily_pnl REAL NOT NULL,
	max_daily_pnl REAL NOT NULL,
	min_daily_pnl REAL NOT NULL,
	days_in_trade INTEGER NOT NULL,
	total_pnl REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_rows (
	trade_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	date TEXT NOT NULL,
	position TEXT NOT NULL,
	ticker1 TEXT NOT NULL,
	ticker2 TEXT NOT NULL,
	zscore REAL NOT NULL,
	shares1 REAL NOT NULL,
	shares2 REAL NOT NULL,
	ratio REAL NOT NULL,
	price1 REAL NOT NULL,
	price2 REAL NOT NULL,
	days INTEGER NOT NULL,
	pnl REAL NOT NULL,
	PRIMARY KEY (trade_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_master_entry_date ON master_log(entry_date);
`

// SQLiteStore keeps ledgers and the master log in a single SQLite
// database. One transaction per trade gives the per-trade atomicity
// the store contract requires.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (and if needed creates) the database at path.
func NewSQLite(path string) (*SQLiteStore, error) {
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
	// the sqlite driver behaves best with a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("initializing schema: %w", err))
	}
	return &SQLiteStore{db: db}, nil
}

// WriteTrade inserts the master row and all ledger rows in one
// transaction. A trade ID already present leaves the database
// untouched.
func (s *SQLiteStore) WriteTrade(ctx context.Context, master core.MasterLogRow, rows []core.LedgerRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO master_log
		(trade_id, entry_date, position, ticker1, ticker2, pos1, pos2, entry_ratio,
		 exit_date, mean_daily_pnl, max_daily_pnl, min_daily_pnl, days_in_trade, total_pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		master.TradeID, master.EntryDate.Format(core.DateLayout), string(master.Position),
		master.Ticker1, master.Ticker2, master.Pos1, master.Pos2, master.EntryRatio,
		master.ExitDate.Format(core.DateLayout), master.MeanDailyPnL, master.MaxDailyPnL,
		master.MinDailyPnL, master.DaysInTrade, master.TotalPnL,
	)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// already recorded: idempotent no-op
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_rows
		(trade_id, seq, date, position, ticker1, ticker2, zscore, shares1, shares2,
		 ratio, price1, price2, days, pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	defer stmt.Close()

	for i, r := range rows {
		_, err := stmt.ExecContext(ctx,
			master.TradeID, i, r.Date.Format(core.DateLayout), string(r.Position),
			r.Ticker1, r.Ticker2, r.ZScore, r.Shares1, r.Shares2,
			r.Ratio, r.Price1, r.Price2, r.DaysInTrade, r.PnL,
		)
		if err != nil {
			return core.WrapError(core.ErrStorageFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	return nil
}

// Ledger returns the trade's daily rows ordered as written.
func (s *SQLiteStore) Ledger(ctx context.Context, tradeID string) ([]core.LedgerRow, error) {
	rs, err := s.db.QueryContext(ctx, `
		SELECT date, position, ticker1, ticker2, zscore, shares1, shares2,
		       ratio, price1, price2, days, pnl
		FROM ledger_rows WHERE trade_id = ? ORDER BY seq`, tradeID)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	defer rs.Close()

	var rows []core.LedgerRow
	for rs.Next() {
		var r core.LedgerRow
		var date, pos string
		if err := rs.Scan(&date, &pos, &r.Ticker1, &r.Ticker2, &r.ZScore, &r.Shares1,
			&r.Shares2, &r.Ratio, &r.Price1, &r.Price2, &r.DaysInTrade, &r.PnL); err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		r.Date, err = time.Parse(core.DateLayout, date)
		if err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		r.Position = core.Position(pos)
		rows = append(rows, r)
	}
	if err := rs.Err(); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	if rows == nil {
		return nil, core.WrapError(core.ErrTradeNotFound, fmt.Errorf("trade %s", tradeID))
	}
	return rows, nil
}

// MasterRows returns master-log rows entered in [from, to], ordered by
// entry date then trade ID.
func (s *SQLiteStore) MasterRows(ctx context.Context, from, to time.Time) ([]core.MasterLogRow, error) {
	rs, err := s.db.QueryContext(ctx, `
		SELECT trade_id, entry_date, position, ticker1, ticker2, pos1, pos2, entry_ratio,
		       exit_date, mean_daily_pnl, max_daily_pnl, min_daily_pnl, days_in_trade, total_pnl
		FROM master_log
		WHERE entry_date >= ? AND entry_date <= ?
		ORDER BY entry_date, trade_id`,
		from.Format(core.DateLayout), to.Format(core.DateLayout))
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	defer rs.Close()

	var out []core.MasterLogRow
	for rs.Next() {
		var m core.MasterLogRow
		var entry, exit, pos string
		if err := rs.Scan(&m.TradeID, &entry, &pos, &m.Ticker1, &m.Ticker2, &m.Pos1, &m.Pos2,
			&m.EntryRatio, &exit, &m.MeanDailyPnL, &m.MaxDailyPnL, &m.MinDailyPnL,
			&m.DaysInTrade, &m.TotalPnL); err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		if m.EntryDate, err = time.Parse(core.DateLayout, entry); err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		if m.ExitDate, err = time.Parse(core.DateLayout, exit); err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		m.Position = core.Position(pos)
		out = append(out, m)
	}
	if err := rs.Err(); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return out, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
