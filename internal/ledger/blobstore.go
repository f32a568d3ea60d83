package ledger

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/statarb/pairbt/internal/core"
	"github.com/statarb/pairbt/internal/storage/blob"
)

// BlobStore keeps one CSV ledger object and one master-log row object
// per trade on a blob.Storage (local directory or S3 bucket). Trade
// identity lives in the typed master row, not in the object path; the
// path is only an addressing scheme.
type BlobStore struct {
	storage blob.Storage
	logger  *zap.Logger
}

// NewBlobStore creates a store over the given storage backend.
func NewBlobStore(storage blob.Storage, logger ...*zap.Logger) *BlobStore {
	l := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	}
	return &BlobStore{storage: storage, logger: l}
}

func ledgerPath(tradeID string) string {
	return "ledgers/" + tradeID + ".csv"
}

func masterPath(tradeID string) string {
	return "master/" + tradeID + ".csv"
}

// WriteTrade writes the ledger object first and the master row last.
// A trade exists only once its master row is visible, so a failure in
// between leaves no trade observable. A trade ID already present in
// the master index is skipped.
func (s *BlobStore) WriteTrade(ctx context.Context, master core.MasterLogRow, rows []core.LedgerRow) error {
	exists, err := s.storage.Exists(ctx, masterPath(master.TradeID))
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	if exists {
		s.logger.Debug("trade already recorded, skipping", zap.String("trade", master.TradeID))
		return nil
	}

	data, err := EncodeLedger(rows)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	if err := s.storage.Write(ctx, ledgerPath(master.TradeID), data); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}

	row, err := EncodeMasterRow(master)
	if err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	if err := s.storage.Write(ctx, masterPath(master.TradeID), row); err != nil {
		return core.WrapError(core.ErrStorageFailed, err)
	}
	return nil
}

// Ledger returns the trade's daily rows in entry order.
func (s *BlobStore) Ledger(ctx context.Context, tradeID string) ([]core.LedgerRow, error) {
	exists, err := s.storage.Exists(ctx, ledgerPath(tradeID))
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	if !exists {
		return nil, core.WrapError(core.ErrTradeNotFound, nil)
	}
	data, err := s.storage.Read(ctx, ledgerPath(tradeID))
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	rows, err := DecodeLedger(data)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return rows, nil
}

// MasterRows returns every master-log row whose entry date falls in
// [from, to], ordered by entry date then trade ID.
func (s *BlobStore) MasterRows(ctx context.Context, from, to time.Time) ([]core.MasterLogRow, error) {
	paths, err := s.storage.List(ctx, "master/")
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}

	var out []core.MasterLogRow
	for _, p := range paths {
		data, err := s.storage.Read(ctx, p)
		if err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		rows, err := DecodeMasterRows(data)
		if err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		for _, m := range rows {
			if m.EntryDate.Before(from) || m.EntryDate.After(to) {
				continue
			}
			out = append(out, m)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryDate.Equal(out[j].EntryDate) {
			return out[i].EntryDate.Before(out[j].EntryDate)
		}
		return out[i].TradeID < out[j].TradeID
	})
	return out, nil
}
