// Package ta holds helpers for reading go-talib output series.
package ta

import "math"

// Last returns the newest value, 0 for an empty series.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// Prev returns the value before the newest one, 0 when there is none.
func Prev(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	return series[len(series)-2]
}

// CrossOver reports a strictly below to strictly above transition of a over b on the newest bar.
func CrossOver(a, b []float64) bool {
	if len(a) < 2 || len(b) < 2 {
		return false
	}
	return Prev(a) < Prev(b) && Last(a) > Last(b)
}

// CrossUnder is the mirror of CrossOver.
func CrossUnder(a, b []float64) bool {
	if len(a) < 2 || len(b) < 2 {
		return false
	}
	return Prev(a) > Prev(b) && Last(a) < Last(b)
}

// Finite reports whether all values are usable numbers.
func Finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Flat reports whether the last n values of series are all equal.
func Flat(series []float64, n int) bool {
	if n > len(series) {
		n = len(series)
	}
	tail := series[len(series)-n:]
	for _, v := range tail {
		if v != tail[0] {
			return false
		}
	}
	return true
}
