// Package ledger persists per-trade daily ledgers and the master trade
// log. The engines treat it purely as a sink/source: given a trade ID,
// return its ledger rows in entry order; given a date range, return the
// master-log rows entered in range.
package ledger

import (
	"context"
	"time"

	"github.com/statarb/pairbt/internal/core"
)

// Store is the trade persistence boundary. WriteTrade is atomic per
// trade (no partial ledger is ever visible) and idempotent per trade
// ID: rewriting a trade that already exists is a no-op.
type Store interface {
	WriteTrade(ctx context.Context, master core.MasterLogRow, rows []core.LedgerRow) error
	Ledger(ctx context.Context, tradeID string) ([]core.LedgerRow, error)
	MasterRows(ctx context.Context, from, to time.Time) ([]core.MasterLogRow, error)
}
