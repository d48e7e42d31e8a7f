package dataprocessing

import (
	"math"
	"time"
)

// Policy is how one channel's missing values are filled
type Policy int

const (
	// PolicyLinear interpolates linearly in time between valid neighbours and holds the
	// last valid value past the end. Values before the first valid one stay missing.
	PolicyLinear Policy = iota
	// PolicyForwardFill holds the last known value
	PolicyForwardFill
	// PolicyHeadBackFill fills only the first rows from the next valid value
	PolicyHeadBackFill
)

// String returns the policy name used in logs
func (p Policy) String() string {
	switch p {
	case PolicyLinear:
		return "linear"
	case PolicyForwardFill:
		return "forward_fill"
	case PolicyHeadBackFill:
		return "head_back_fill"
	default:
		return "unknown"
	}
}

// headBackFillRows is the number of leading rows the boundary back-fill may touch
const headBackFillRows = 2

// Apply fills values in place according to the policy and returns the number of cells filled
func (p Policy) Apply(times []time.Time, values []float64) int {
	switch p {
	case PolicyLinear:
		return InterpolateForward(times, values)
	case PolicyForwardFill:
		return ForwardFill(values)
	case PolicyHeadBackFill:
		return BackFillHead(values, headBackFillRows)
	}
	return 0
}

// InterpolateForward fills gaps by linear interpolation weighted by elapsed time.
// A trailing gap repeats the last valid value; a leading gap is left untouched.
func InterpolateForward(times []time.Time, values []float64) int {
	filled := 0
	prev := -1
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			span := times[i].Sub(times[prev]).Seconds()
			for j := prev + 1; j < i; j++ {
				if span <= 0 {
					values[j] = values[prev]
				} else {
					frac := times[j].Sub(times[prev]).Seconds() / span
					values[j] = values[prev] + (v-values[prev])*frac
				}
				filled++
			}
		}
		prev = i
	}
	if prev >= 0 {
		for j := prev + 1; j < len(values); j++ {
			values[j] = values[prev]
			filled++
		}
	}
	return filled
}

// ForwardFill replaces each missing value with the last known one
func ForwardFill(values []float64) int {
	filled := 0
	last := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) {
			if !math.IsNaN(last) {
				values[i] = last
				filled++
			}
			continue
		}
		last = v
	}
	return filled
}

// BackFill replaces each missing value with the next known one
func BackFill(values []float64) int {
	filled := 0
	next := math.NaN()
	for i := len(values) - 1; i >= 0; i-- {
		if math.IsNaN(values[i]) {
			if !math.IsNaN(next) {
				values[i] = next
				filled++
			}
			continue
		}
		next = values[i]
	}
	return filled
}

// BackFillHead fills missing values among the first n rows from the next valid value in the series
func BackFillHead(values []float64, n int) int {
	if n > len(values) {
		n = len(values)
	}
	filled := 0
	for i := 0; i < n; i++ {
		if !math.IsNaN(values[i]) {
			continue
		}
		for j := i + 1; j < len(values); j++ {
			if !math.IsNaN(values[j]) {
				values[i] = values[j]
				filled++
				break
			}
		}
	}
	return filled
}

// Binarize maps a pump channel to 0/1: missing becomes 0 and any non-zero value becomes 1
func Binarize(values []float64) {
	for i, v := range values {
		switch {
		case math.IsNaN(v), v == 0:
			values[i] = 0
		default:
			values[i] = 1
		}
	}
}

// countMissing returns the number of NaN cells
func countMissing(values []float64) int {
	n := 0
	for _, v := range values {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}
