package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/statarb/pairbt/internal/core"
	"github.com/statarb/pairbt/internal/storage/blob"
)

// Both backends must satisfy the same contract, so the tests run once
// per implementation.
func stores(t *testing.T) map[string]Store {
	t.Helper()

	fs, err := blob.NewLocalFS(t.TempDir())
	if err != nil {
		t.Fatalf("localfs: %v", err)
	}
	sq, err := NewSQLite(filepath.Join(t.TempDir(), "trades.db"))
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	t.Cleanup(func() { sq.Close() })

	return map[string]Store{
		"blob":   NewBlobStore(fs),
		"sqlite": sq,
	}
}

func masterFor(id string, entry time.Time, total float64) core.MasterLogRow {
	return core.MasterLogRow{
		TradeID:   id,
		EntryDate: entry,
		Position:  core.PositionLong,
		Ticker1:   "KO", Ticker2: "PEP",
		Pos1: 100, Pos2: -35.9, EntryRatio: 0.359,
		ExitDate:     entry.AddDate(0, 0, 2),
		MeanDailyPnL: total / 2, MaxDailyPnL: total, MinDailyPnL: 0,
		DaysInTrade: 2, TotalPnL: total,
	}
}

func rowsFor(entry time.Time, total float64) []core.LedgerRow {
	base := core.LedgerRow{
		Position: core.PositionLong, Ticker1: "KO", Ticker2: "PEP",
		Shares1: 100, Shares2: -35.9, Ratio: 0.359, Price1: 47.5, Price2: 132.3,
	}
	r0, r1, r2 := base, base, base
	r0.Date = entry
	r1.Date, r1.DaysInTrade = entry.AddDate(0, 0, 1), 1
	r2.Date, r2.DaysInTrade, r2.PnL = entry.AddDate(0, 0, 2), 2, total
	return []core.LedgerRow{r0, r1, r2}
}

func TestStore_WriteAndReadBack(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			entry := core.Day(2019, time.June, 3)
			master := masterFor("20190603_LongKOPEP", entry, 42.5)
			rows := rowsFor(entry, 42.5)

			if err := s.WriteTrade(ctx, master, rows); err != nil {
				t.Fatalf("write: %v", err)
			}

			got, err := s.Ledger(ctx, master.TradeID)
			if err != nil {
				t.Fatalf("ledger: %v", err)
			}
			if len(got) != len(rows) {
				t.Fatalf("got %d rows, want %d", len(got), len(rows))
			}
			for i := range rows {
				if got[i] != rows[i] {
					t.Errorf("row %d = %+v, want %+v", i, got[i], rows[i])
				}
			}

			ms, err := s.MasterRows(ctx, entry, entry)
			if err != nil {
				t.Fatalf("master rows: %v", err)
			}
			if len(ms) != 1 || ms[0] != master {
				t.Fatalf("master = %+v, want %+v", ms, master)
			}
		})
	}
}

func TestStore_WriteTradeIdempotent(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			entry := core.Day(2019, time.June, 3)
			master := masterFor("20190603_LongKOPEP", entry, 42.5)
			rows := rowsFor(entry, 42.5)

			if err := s.WriteTrade(ctx, master, rows); err != nil {
				t.Fatalf("first write: %v", err)
			}
			// a rerun over the same range writes the same trade again;
			// the first record must win unchanged
			changed := master
			changed.TotalPnL = -1
			if err := s.WriteTrade(ctx, changed, rows[:1]); err != nil {
				t.Fatalf("second write: %v", err)
			}

			got, err := s.Ledger(ctx, master.TradeID)
			if err != nil {
				t.Fatalf("ledger: %v", err)
			}
			if len(got) != len(rows) {
				t.Errorf("ledger rewritten: got %d rows, want %d", len(got), len(rows))
			}
			ms, err := s.MasterRows(ctx, entry, entry)
			if err != nil {
				t.Fatalf("master rows: %v", err)
			}
			if len(ms) != 1 || ms[0].TotalPnL != 42.5 {
				t.Errorf("master rewritten: %+v", ms)
			}
		})
	}
}

func TestStore_LedgerNotFound(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Ledger(context.Background(), "20190603_LongKOPEP")
			if !errors.Is(err, core.ErrTradeNotFound) {
				t.Fatalf("err = %v, want ErrTradeNotFound", err)
			}
		})
	}
}

func TestStore_MasterRowsRangeAndOrder(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			days := []time.Time{
				core.Day(2019, time.June, 3),
				core.Day(2019, time.June, 10),
				core.Day(2019, time.July, 1),
			}
			ids := []string{"20190603_LongKOPEP", "20190610_ShortKOPEP", "20190701_LongKOPEP"}
			// write out of order; reads must come back sorted
			for _, i := range []int{2, 0, 1} {
				if err := s.WriteTrade(ctx, masterFor(ids[i], days[i], 1), rowsFor(days[i], 1)); err != nil {
					t.Fatalf("write %s: %v", ids[i], err)
				}
			}

			ms, err := s.MasterRows(ctx, core.Day(2019, time.June, 1), core.Day(2019, time.June, 30))
			if err != nil {
				t.Fatalf("master rows: %v", err)
			}
			if len(ms) != 2 {
				t.Fatalf("got %d rows in June, want 2", len(ms))
			}
			if ms[0].TradeID != ids[0] || ms[1].TradeID != ids[1] {
				t.Errorf("order = [%s %s], want [%s %s]", ms[0].TradeID, ms[1].TradeID, ids[0], ids[1])
			}

			all, err := s.MasterRows(ctx, core.Day(2019, time.January, 1), core.Day(2019, time.December, 31))
			if err != nil {
				t.Fatalf("master rows: %v", err)
			}
			if len(all) != 3 {
				t.Errorf("got %d rows in full range, want 3", len(all))
			}
		})
	}
}
