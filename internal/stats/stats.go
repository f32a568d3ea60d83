// Package stats computes summary statistics over a PnL series, daily
// or per-trade.
package stats

import (
	"math"

	"github.com/statarb/pairbt/internal/core"
)

// Notional is the fixed reference notional used to express the mean
// PnL as a percentage.
const Notional = 100000.0

// Stats holds the aggregate fields for one PnL series.
type Stats struct {
	Count           int
	Wins            int
	WinRate         float64
	TotalPnL        float64
	MeanPnL         float64
	MeanPctNotional float64 // mean as percent of the fixed notional, 4 decimals
	MaxPnL          float64
	MinPnL          float64
	MeanWinner      float64
	MeanLoser       float64 // losers are PnL <= 0
}

// Compute reduces a PnL series to its summary statistics. With
// excludeZero set, zero entries are dropped first — used for daily
// series, where non-trading days are legitimately zero and would
// dilute the win rate. An empty series (after filtering) returns
// core.ErrEmptySeries; callers must guard or accept the failure as
// "no statistics available". Every field is a plain reduction, so the
// result is identical under any reordering of the input.
func Compute(series []float64, excludeZero bool) (Stats, error) {
	var vals []float64
	if excludeZero {
		for _, v := range series {
			if v != 0 {
				vals = append(vals, v)
			}
		}
	} else {
		vals = series
	}
	if len(vals) == 0 {
		return Stats{}, core.ErrEmptySeries
	}

	s := Stats{
		Count:  len(vals),
		MaxPnL: vals[0],
		MinPnL: vals[0],
	}
	var winSum, loseSum float64
	var losers int
	for _, v := range vals {
		s.TotalPnL += v
		if v > s.MaxPnL {
			s.MaxPnL = v
		}
		if v < s.MinPnL {
			s.MinPnL = v
		}
		if v > 0 {
			s.Wins++
			winSum += v
		} else {
			losers++
			loseSum += v
		}
	}

	s.WinRate = float64(s.Wins) / float64(s.Count)
	s.MeanPnL = s.TotalPnL / float64(s.Count)
	s.MeanPctNotional = round4(s.MeanPnL / Notional * 100.0)
	if s.Wins > 0 {
		s.MeanWinner = winSum / float64(s.Wins)
	}
	if losers > 0 {
		s.MeanLoser = loseSum / float64(losers)
	}
	return s, nil
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
