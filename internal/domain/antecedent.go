package domain

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrInvalidWindow reports antecedent window parameters that violate the
// contract: period must be positive, delay non-negative.
var ErrInvalidWindow = errors.New("invalid antecedent window parameters")

// Reducer collapses the depths inside an antecedent window to one value.
// It must be order-stable; the slice it receives is scratch and must not be
// retained.
type Reducer func(window []float64) float64

// Built-in reducers.
var (
	Sum  Reducer = floats.Sum
	Max  Reducer = func(window []float64) float64 { return floats.Max(window) }
	Mean Reducer = func(window []float64) float64 { return stat.Mean(window, nil) }
)

// AntecedentSeries holds one aggregate per source record, aligned by index
// and timestamp. A nil entry means insufficient history, a distinct sentinel
// that propagates through classification and joins rather than coercing to
// zero. The first period+delay-1 entries are always nil.
type AntecedentSeries []*float64

// Antecedent computes, for every record of a validated series, the reduction
// of the trailing window [i-delay-period+1, i-delay] (inclusive, 0-based).
// period is the window width in hours; delay shifts the window's end into
// the past, with 0 meaning the window ends at the current hour.
//
// Calling with an unvalidated series is undefined behavior; run Validate
// first. A nil depth inside a window yields a nil aggregate rather than a
// panic.
func Antecedent(series HourlySeries, period, delay int, reduce Reducer) (AntecedentSeries, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: period %d must be positive", ErrInvalidWindow, period)
	}
	if delay < 0 {
		return nil, fmt.Errorf("%w: delay %d must be non-negative", ErrInvalidWindow, delay)
	}
	if reduce == nil {
		reduce = Sum
	}

	out := make(AntecedentSeries, len(series))
	window := make([]float64, 0, period)
	for i := range series {
		lo := i - delay - period + 1
		hi := i - delay
		if lo < 0 {
			continue
		}

		window = window[:0]
		defined := true
		for j := lo; j <= hi; j++ {
			if series[j].Precip == nil {
				defined = false
				break
			}
			window = append(window, *series[j].Precip)
		}
		if !defined {
			continue
		}

		v := reduce(window)
		out[i] = &v
	}
	return out, nil
}
