package marketdata

import (
	"fmt"
	"math"

	"github.com/statarb/pairbt/internal/core"
)

// DefaultMissingThreshold is the maximum number of trading days either
// leg may lose in the date intersection before the pair is rejected.
const DefaultMissingThreshold = 10

// AlignPair inner-joins two price series on date, producing one pair
// aligned on the shared trading days. Prices are rounded to cents. If
// either leg loses more than threshold days in the join, the pair is
// missing too much data to trade and is rejected with a DataAlignment
// error.
func AlignPair(pair core.Pair, s1, s2 []core.PricePoint, threshold int) (core.PricePair, error) {
	byDate := make(map[string]float64, len(s2))
	for _, p := range s2 {
		byDate[core.DateKey(p.Date)] = p.Price
	}

	pp := core.PricePair{Pair: pair}
	for _, p := range s1 {
		p2, ok := byDate[core.DateKey(p.Date)]
		if !ok {
			continue
		}
		pp.Dates = append(pp.Dates, p.Date)
		pp.P1 = append(pp.P1, roundCents(p.Price))
		pp.P2 = append(pp.P2, roundCents(p2))
	}

	if len(s1)-pp.Len() > threshold || len(s2)-pp.Len() > threshold {
		return core.PricePair{}, core.WrapError(core.ErrDataAlignment, fmt.Errorf(
			"pair %s missing data: aligned=%d leg1=%d leg2=%d threshold=%d",
			pair, pp.Len(), len(s1), len(s2), threshold))
	}
	if err := pp.Validate(); err != nil {
		return core.PricePair{}, err
	}
	return pp, nil
}

func roundCents(x float64) float64 {
	return math.Round(x*100) / 100
}
