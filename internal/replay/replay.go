// Package replay reconstructs portfolio-level daily PnL from
// independently recorded per-trade ledgers.
package replay

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/statarb/pairbt/internal/core"
	"github.com/statarb/pairbt/internal/ledger"
	"github.com/statarb/pairbt/internal/metrics"
)

// DayRecord is one day of reconstructed portfolio PnL.
type DayRecord struct {
	Date       time.Time
	PnL        float64
	OpenTrades int
}

// Options configures a replay engine.
type Options struct {
	// YearScoped reproduces the legacy tracking behavior: the open
	// set is cleared whenever the calendar crosses a year boundary,
	// dropping trades still open across it. Off by default; when on,
	// every dropped trade is logged.
	YearScoped bool
	Logger     *zap.Logger
	Metrics    *metrics.Registry
}

// Engine walks a business-day calendar and reconstructs which trades
// are open each day from the master log and per-trade ledgers.
type Engine struct {
	store      ledger.Store
	logger     *zap.Logger
	metrics    *metrics.Registry
	yearScoped bool
}

// NewEngine creates a replay engine over the given ledger store.
func NewEngine(store ledger.Store, opts Options) *Engine {
	l := opts.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return &Engine{
		store:      store,
		logger:     l,
		metrics:    opts.Metrics,
		yearScoped: opts.YearScoped,
	}
}

// openTrade is the transient per-trade working state: the ledger
// indexed by day plus the known exit day.
type openTrade struct {
	id       string
	exitKey  string
	pnlByDay map[string]float64
}

// dayPnL looks up one day's PnL. The second return reports whether a
// ledger row existed; callers zero-fill misses.
func (t *openTrade) dayPnL(key string) (float64, bool) {
	v, ok := t.pnlByDay[key]
	return v, ok
}

// Replay walks the calendar one day at a time and sums the daily PnL
// of every open trade into a chronological portfolio series. A record
// is emitted for every calendar day, zero-trade days included.
//
// Each day the engine: accrues every tracked trade's PnL for the day
// (a missing ledger row, e.g. a holiday, counts as zero), retires
// trades whose exit date is the day after they contribute, emits the
// day's record, and then starts tracking trades entered on the day —
// a trade first contributes the day after its entry, matching the
// one-bar decision lag of the backtest ledgers.
func (e *Engine) Replay(ctx context.Context, master []core.MasterLogRow, calendar []time.Time) ([]DayRecord, error) {
	entriesByDay := make(map[string][]core.MasterLogRow)
	for _, m := range master {
		k := core.DateKey(m.EntryDate)
		entriesByDay[k] = append(entriesByDay[k], m)
	}

	tracked := make(map[string]*openTrade)
	records := make([]DayRecord, 0, len(calendar))
	currYear := 0

	for _, day := range calendar {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if year := day.Year(); e.yearScoped && year != currYear {
			if currYear != 0 && len(tracked) > 0 {
				for id := range tracked {
					e.logger.Warn("dropping trade open across year boundary",
						zap.String("trade", id), zap.Int("year", year))
				}
				tracked = make(map[string]*openTrade)
			}
			currYear = year
		}

		key := core.DateKey(day)
		rec := DayRecord{Date: day}

		var retired []string
		for id, t := range tracked {
			pnl, ok := t.dayPnL(key)
			if !ok {
				e.logger.Debug("no ledger row for day, zero-filled",
					zap.String("trade", id), zap.String("date", key))
				e.metrics.RecordLedgerGap()
			}
			rec.PnL += pnl
			rec.OpenTrades++

			// a trade contributes on its exit day, then is retired
			if t.exitKey == key {
				retired = append(retired, id)
			}
		}
		for _, id := range retired {
			delete(tracked, id)
		}

		records = append(records, rec)
		e.metrics.RecordReplayDay()

		for _, m := range entriesByDay[key] {
			if _, ok := tracked[m.TradeID]; ok {
				continue
			}
			t, err := e.load(ctx, m)
			if err != nil {
				return nil, err
			}
			tracked[m.TradeID] = t
		}
	}

	e.logger.Info("replay complete",
		zap.Int("days", len(records)),
		zap.Int("trades", len(master)),
		zap.Int("still_tracked", len(tracked)),
	)
	return records, nil
}

// load fetches one trade's ledger and indexes it by day.
func (e *Engine) load(ctx context.Context, m core.MasterLogRow) (*openTrade, error) {
	rows, err := e.store.Ledger(ctx, m.TradeID)
	if err != nil {
		return nil, err
	}
	t := &openTrade{
		id:       m.TradeID,
		exitKey:  core.DateKey(m.ExitDate),
		pnlByDay: make(map[string]float64, len(rows)),
	}
	for _, r := range rows {
		t.pnlByDay[core.DateKey(r.Date)] = r.PnL
	}
	return t, nil
}

// DailyPnL extracts the PnL column from a replayed series.
func DailyPnL(records []DayRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.PnL
	}
	return out
}
