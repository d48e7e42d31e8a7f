package dataprocessing

import (
	"math"

	"tankevents/pkg/contracts/domain"
)

// accumulator is a NaN-skipping running mean/min/max
type accumulator struct {
	n   int
	sum float64
	min float64
	max float64
}

func (a *accumulator) add(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	if a.n == 0 || v < a.min {
		a.min = v
	}
	if a.n == 0 || v > a.max {
		a.max = v
	}
	a.n++
	a.sum += v
}

func (a *accumulator) mean() float64 {
	if a.n == 0 {
		return math.NaN()
	}
	return a.sum / float64(a.n)
}

func (a *accumulator) stats() domain.Stats {
	if a.n == 0 {
		return domain.Stats{Mean: math.NaN(), Min: math.NaN(), Max: math.NaN()}
	}
	return domain.Stats{Mean: a.mean(), Min: a.min, Max: a.max}
}

func statsDefined(s domain.Stats) bool {
	return !math.IsNaN(s.Mean) && !math.IsNaN(s.Min) && !math.IsNaN(s.Max)
}
