package dataprocessing

import (
	"math"

	"tankevents/pkg/contracts/domain"
)

// levelPercentScale converts a level delta to the rate-of-change unit and a one-percent mass to a usable volume
const levelPercentScale = 100.0

// LevelRateOfChange returns the previous row's level and (level - previous) * 100 for every row.
// The first row, and any row next to a missing level, is NaN.
func LevelRateOfChange(level []float64) (lag, roc []float64) {
	lag = make([]float64, len(level))
	roc = make([]float64, len(level))
	for i := range level {
		if i == 0 {
			lag[i] = math.NaN()
			roc[i] = math.NaN()
			continue
		}
		lag[i] = level[i-1]
		roc[i] = (level[i] - level[i-1]) * levelPercentScale
	}
	return lag, roc
}

// DeriveVolumes sets the mass per level percent and the usable volume of every sample.
// A zero or missing level yields NaN for both.
func DeriveVolumes(samples []domain.Sample) {
	for i := range samples {
		s := &samples[i]
		if s.Level == 0 || math.IsNaN(s.Level) {
			s.OnePercentDelta = math.NaN()
			s.UsableVolume = math.NaN()
			continue
		}
		s.OnePercentDelta = s.Mass / s.Level
		s.UsableVolume = s.OnePercentDelta * levelPercentScale
	}
}

// TankMeanVolume is the mean usable volume over the whole series, skipping undefined rows
func TankMeanVolume(samples []domain.Sample) float64 {
	var acc accumulator
	for _, s := range samples {
		acc.add(s.UsableVolume)
	}
	return acc.mean()
}
