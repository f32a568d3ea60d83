package core

import (
	"fmt"
	"time"
)

// DateLayout is the compact day format used in trade IDs, ledger files and
// the master log.
const DateLayout = "20060102"

// Position is the side of a pair trade. Long means long ticker1 / short
// ticker2, Short is the mirror.
type Position string

const (
	PositionFlat  Position = ""
	PositionLong  Position = "Long"
	PositionShort Position = "Short"
)

// Pair identifies the two instruments traded against each other.
type Pair struct {
	Ticker1 string
	Ticker2 string
}

func (p Pair) String() string {
	return p.Ticker1 + "_" + p.Ticker2
}

// PricePoint is one instrument's adjusted close on one trading day.
type PricePoint struct {
	Date  time.Time
	Price float64
}

// PricePair holds two price series aligned on a shared date index.
// Index i refers to the same trading day in Dates, P1 and P2.
type PricePair struct {
	Pair  Pair
	Dates []time.Time
	P1    []float64
	P2    []float64
}

// Len returns the number of aligned trading days.
func (pp PricePair) Len() int {
	return len(pp.Dates)
}

// Validate checks the alignment invariants: equal lengths and strictly
// increasing dates. Engines call this before any state transitions run.
func (pp PricePair) Validate() error {
	if len(pp.P1) != len(pp.Dates) || len(pp.P2) != len(pp.Dates) {
		return WrapError(ErrDataAlignment, fmt.Errorf(
			"length mismatch: dates=%d p1=%d p2=%d", len(pp.Dates), len(pp.P1), len(pp.P2)))
	}
	for i := 1; i < len(pp.Dates); i++ {
		if !pp.Dates[i].After(pp.Dates[i-1]) {
			return WrapError(ErrDataAlignment, fmt.Errorf(
				"dates not strictly increasing at index %d: %s then %s",
				i, pp.Dates[i-1].Format(DateLayout), pp.Dates[i].Format(DateLayout)))
		}
	}
	return nil
}

// Day builds a UTC-midnight date, the normal form for all trading days.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateKey formats a trading day in the compact layout used for lookups.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// LedgerRow is one day of one open trade, from entry through exit.
type LedgerRow struct {
	Date        time.Time
	Position    Position
	Ticker1     string
	Ticker2     string
	ZScore      float64 // prior-day z-score that drove the day's decision
	Shares1     float64
	Shares2     float64
	Ratio       float64 // prior-day price ratio
	Price1      float64
	Price2      float64
	DaysInTrade int
	PnL         float64
}

// MasterLogRow is the master-log entry for one closed trade.
type MasterLogRow struct {
	TradeID      string
	EntryDate    time.Time
	Position     Position
	Ticker1      string
	Ticker2      string
	Pos1         float64
	Pos2         float64
	EntryRatio   float64
	ExitDate     time.Time
	MeanDailyPnL float64
	MaxDailyPnL  float64
	MinDailyPnL  float64
	DaysInTrade  int
	TotalPnL     float64
}

// Pair returns the instrument pair the trade was placed on.
func (m MasterLogRow) Pair() Pair {
	return Pair{Ticker1: m.Ticker1, Ticker2: m.Ticker2}
}
