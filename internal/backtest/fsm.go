package backtest

import (
	"time"

	"github.com/statarb/pairbt/internal/core"
)

// Bar carries everything the state machine needs to decide and mark at
// one index: the day's prices, the prior day's prices, and the prior
// bar's signal. Decisions always lag the signal by exactly one bar.
type Bar struct {
	Date       time.Time
	Price1     float64
	Price2     float64
	PrevPrice1 float64
	PrevPrice2 float64
	Ratio      float64 // ratio at the preceding bar
	Z          float64 // z-score at the preceding bar
	ZValid     bool
	Last       bool // final bar of the series
}

// State is the per-pair machine state: the position held and, when not
// flat, the open trade. States are values; step never mutates its input.
type State struct {
	Position core.Position
	Open     *Trade
}

// step advances the machine by one bar and returns the new state plus
// every trade closed on this bar, in close order. Transition order
// matches the trading rules: long entry, long exit, short entry, short
// exit, daily accrual, forced close on the final bar. A signal exit, a
// same-bar re-entry on the mirror side and the final-bar forced close
// can all land on one bar, so up to two trades can close.
func step(st State, bar Bar, pair core.Pair, cfg Config) (State, []*Trade) {
	var closed []*Trade

	if bar.ZValid {
		if st.Position == core.PositionFlat && bar.Z < -cfg.UpperZ {
			st = enter(bar, pair, cfg, core.PositionLong)
		}
		if st.Position == core.PositionLong && bar.Z > -cfg.LowerZ && !bar.Date.Equal(st.Open.EntryDate) {
			accrue(st.Open, bar)
			var t *Trade
			st, t = exit(st, bar.Date)
			closed = append(closed, t)
		}
		if st.Position == core.PositionFlat && bar.Z > cfg.UpperZ {
			st = enter(bar, pair, cfg, core.PositionShort)
		}
		if st.Position == core.PositionShort && bar.Z < cfg.LowerZ && !bar.Date.Equal(st.Open.EntryDate) {
			accrue(st.Open, bar)
			var t *Trade
			st, t = exit(st, bar.Date)
			closed = append(closed, t)
		}
	}

	// mark-to-market every day a position stays open past its entry bar
	if st.Position != core.PositionFlat && !bar.Date.Equal(st.Open.EntryDate) {
		accrue(st.Open, bar)
	}

	// the run never leaves an unresolved open trade
	if bar.Last && st.Position != core.PositionFlat {
		var t *Trade
		st, t = exit(st, bar.Date)
		closed = append(closed, t)
	}

	return st, closed
}

// enter opens a new trade sized dollar-neutral off the lagged ratio:
// leg 1 takes the full per-leg notional at today's price, leg 2 hedges
// it with the prior bar's ratio.
func enter(bar Bar, pair core.Pair, cfg Config, pos core.Position) State {
	shares1 := cfg.CapitalPerLeg / bar.Price1
	if pos == core.PositionShort {
		shares1 = -shares1
	}
	t := &Trade{
		ID:          tradeID(bar.Date, pos, pair),
		Pair:        pair,
		Position:    pos,
		EntryDate:   bar.Date,
		EntryPrice1: bar.Price1,
		EntryPrice2: bar.Price2,
		Shares1:     shares1,
		Shares2:     shares1 * bar.Ratio * -1.0,
		EntryRatio:  bar.Ratio,
	}
	t.Rows = append(t.Rows, ledgerRow(t, bar, 0))
	return State{Position: pos, Open: t}
}

// accrue marks the open trade to market for one day: the increment uses
// the previous day's close as cost basis, so per-day PnL is additive
// and sums exactly to the trade total.
func accrue(t *Trade, bar Bar) {
	pnl := (bar.Price1-bar.PrevPrice1)*t.Shares1 + (bar.Price2-bar.PrevPrice2)*t.Shares2
	t.DaysInTrade++
	t.TotalPnL += pnl
	t.PnLHistory = append(t.PnLHistory, pnl)
	t.Rows = append(t.Rows, ledgerRow(t, bar, pnl))
}

// exit closes the open trade and resets the machine to flat.
func exit(st State, date time.Time) (State, *Trade) {
	t := st.Open
	t.ExitDate = date
	return State{Position: core.PositionFlat}, t
}

func ledgerRow(t *Trade, bar Bar, pnl float64) core.LedgerRow {
	return core.LedgerRow{
		Date:        bar.Date,
		Position:    t.Position,
		Ticker1:     t.Pair.Ticker1,
		Ticker2:     t.Pair.Ticker2,
		ZScore:      bar.Z,
		Shares1:     t.Shares1,
		Shares2:     t.Shares2,
		Ratio:       bar.Ratio,
		Price1:      bar.Price1,
		Price2:      bar.Price2,
		DaysInTrade: t.DaysInTrade,
		PnL:         pnl,
	}
}
