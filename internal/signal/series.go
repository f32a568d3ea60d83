package signal

import (
	"fmt"
	"math"

	"github.com/statarb/pairbt/internal/core"
)

// Series holds the rolling signal derived from an aligned price pair.
// All slices are indexed identically to the input; positions before a
// window has enough history hold NaN.
type Series struct {
	Ratio   []float64
	MAShort []float64
	MALong  []float64
	Std     []float64
	Z       []float64

	shortWindow int
	longWindow  int
}

// Compute derives the ratio, short/long moving averages, long rolling
// standard deviation and z-score for an aligned price pair.
// The standard deviation is the sample deviation over the long window.
func Compute(pp core.PricePair, shortWindow, longWindow int) (*Series, error) {
	if shortWindow <= 0 || longWindow <= 0 || shortWindow >= longWindow {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf(
			"lookback windows must satisfy 0 < short < long, got short=%d long=%d", shortWindow, longWindow))
	}
	if err := pp.Validate(); err != nil {
		return nil, err
	}

	n := pp.Len()
	s := &Series{
		Ratio:       make([]float64, n),
		MAShort:     nan(n),
		MALong:      nan(n),
		Std:         nan(n),
		Z:           nan(n),
		shortWindow: shortWindow,
		longWindow:  longWindow,
	}

	for i := 0; i < n; i++ {
		s.Ratio[i] = pp.P1[i] / pp.P2[i]
	}

	rollingMean(s.Ratio, shortWindow, s.MAShort)
	rollingMean(s.Ratio, longWindow, s.MALong)
	rollingStd(s.Ratio, longWindow, s.Std)

	for i := longWindow - 1; i < n; i++ {
		if s.Std[i] == 0 || math.IsNaN(s.Std[i]) {
			continue
		}
		s.Z[i] = (s.MAShort[i] - s.MALong[i]) / s.Std[i]
	}

	return s, nil
}

// Len returns the series length.
func (s *Series) Len() int {
	return len(s.Ratio)
}

// ZScore returns the z-score at index i and whether it is defined.
// An undefined z-score (short history, zero deviation) must not
// trigger a trade decision.
func (s *Series) ZScore(i int) (float64, bool) {
	if i < 0 || i >= len(s.Z) || math.IsNaN(s.Z[i]) {
		return 0, false
	}
	return s.Z[i], true
}

func nan(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// rollingMean fills dst from index window-1 onward with the trailing mean.
func rollingMean(src []float64, window int, dst []float64) {
	if len(src) < window {
		return
	}
	var sum float64
	for i := 0; i < window; i++ {
		sum += src[i]
	}
	dst[window-1] = sum / float64(window)
	for i := window; i < len(src); i++ {
		sum += src[i] - src[i-window]
		dst[i] = sum / float64(window)
	}
}

// rollingStd fills dst from index window-1 onward with the trailing
// sample standard deviation.
func rollingStd(src []float64, window int, dst []float64) {
	if window < 2 || len(src) < window {
		return
	}
	for i := window - 1; i < len(src); i++ {
		win := src[i-window+1 : i+1]
		var sum float64
		for _, v := range win {
			sum += v
		}
		mean := sum / float64(window)
		var sq float64
		for _, v := range win {
			d := v - mean
			sq += d * d
		}
		dst[i] = math.Sqrt(sq / float64(window-1))
	}
}
