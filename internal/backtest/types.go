package backtest

import (
	"fmt"
	"time"

	"github.com/statarb/pairbt/internal/core"
)

// Config holds the per-pair backtest parameters.
type Config struct {
	ShortWindow   int
	LongWindow    int
	UpperZ        float64 // entry magnitude
	LowerZ        float64 // exit magnitude, typically 0
	CapitalPerLeg float64 // dollar notional sized per leg at entry
}

// Validate checks the parameter invariants before a run.
func (c Config) Validate() error {
	if c.ShortWindow <= 0 || c.LongWindow <= 0 || c.ShortWindow >= c.LongWindow {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf(
			"windows must satisfy 0 < short < long, got short=%d long=%d", c.ShortWindow, c.LongWindow))
	}
	if c.CapitalPerLeg <= 0 {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf(
			"capital per leg must be positive, got %v", c.CapitalPerLeg))
	}
	return nil
}

// Trade is one pair trade from entry to exit. The engine owns it
// exclusively while open; once closed it is emitted and never touched
// again.
type Trade struct {
	ID          string
	Pair        core.Pair
	Position    core.Position
	EntryDate   time.Time
	EntryPrice1 float64
	EntryPrice2 float64
	Shares1     float64
	Shares2     float64
	EntryRatio  float64 // ratio at the bar preceding entry
	ExitDate    time.Time
	DaysInTrade int
	PnLHistory  []float64 // one entry per accrued day, entry day excluded
	TotalPnL    float64
	Rows        []core.LedgerRow
}

// MasterRow summarizes the closed trade for the master log.
func (t *Trade) MasterRow() core.MasterLogRow {
	var mean, max, min float64
	if n := len(t.PnLHistory); n > 0 {
		max = t.PnLHistory[0]
		min = t.PnLHistory[0]
		var sum float64
		for _, p := range t.PnLHistory {
			sum += p
			if p > max {
				max = p
			}
			if p < min {
				min = p
			}
		}
		mean = sum / float64(n)
	}
	return core.MasterLogRow{
		TradeID:      t.ID,
		EntryDate:    t.EntryDate,
		Position:     t.Position,
		Ticker1:      t.Pair.Ticker1,
		Ticker2:      t.Pair.Ticker2,
		Pos1:         t.Shares1,
		Pos2:         t.Shares2,
		EntryRatio:   t.EntryRatio,
		ExitDate:     t.ExitDate,
		MeanDailyPnL: mean,
		MaxDailyPnL:  max,
		MinDailyPnL:  min,
		DaysInTrade:  t.DaysInTrade,
		TotalPnL:     t.TotalPnL,
	}
}

// Result holds the complete output of one pair's backtest.
type Result struct {
	Pair    core.Pair
	Master  []core.MasterLogRow
	Ledgers map[string][]core.LedgerRow // keyed by trade ID
	Trades  []*Trade
}

// tradeID builds the identity of a trade: entry date, side and pair.
// Collisions are impossible within a run because only one trade can be
// open at a time and each close precedes any new entry.
func tradeID(entry time.Time, pos core.Position, pair core.Pair) string {
	return entry.Format(core.DateLayout) + "_" + string(pos) + pair.Ticker1 + pair.Ticker2
}
