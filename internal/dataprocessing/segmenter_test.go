package dataprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tankevents/pkg/contracts/domain"
)

func samplesWithPump(states ...int) []domain.Sample {
	times := tenMinuteTimes(len(states))
	samples := make([]domain.Sample, len(states))
	for i, s := range states {
		samples[i] = domain.Sample{Time: times[i], PumpRunning: s, Level: 50}
	}
	return samples
}

func TestSegmentEvents_Boundaries(t *testing.T) {
	samples := samplesWithPump(0, 0, 1, 1, 1, 0)
	times := tenMinuteTimes(6)

	runs := SegmentEvents(samples)

	require.Len(t, runs, 3)
	assert.Equal(t, EventRun{EventID: times[0], State: 0, Start: 0, End: 2}, runs[0])
	assert.Equal(t, EventRun{EventID: times[2], State: 1, Start: 2, End: 5}, runs[1])
	assert.Equal(t, EventRun{EventID: times[5], State: 0, Start: 5, End: 6}, runs[2])

	wantIDs := []int{0, 0, 2, 2, 2, 5}
	for i, s := range samples {
		assert.Equal(t, times[wantIDs[i]], s.EventID, "row %d", i)
	}
}

func TestSegmentEvents_Partition(t *testing.T) {
	tests := []struct {
		name   string
		states []int
		runs   int
	}{
		{"single row", []int{1}, 1},
		{"constant", []int{0, 0, 0, 0}, 1},
		{"alternating", []int{0, 1, 0, 1, 0}, 5},
		{"first row running", []int{1, 1, 0, 0, 0, 1}, 3},
		{"unknown state is its own run", []int{0, 2, 2, 0}, 3},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := samplesWithPump(tt.states...)
			runs := SegmentEvents(samples)
			require.Len(t, runs, tt.runs)

			next := 0
			for k, run := range runs {
				// contiguous and covering every row exactly once
				assert.Equal(t, next, run.Start)
				assert.Positive(t, run.Len())
				next = run.End

				for i := run.Start; i < run.End; i++ {
					assert.Equal(t, run.State, samples[i].PumpRunning)
					assert.Equal(t, run.EventID, samples[i].EventID)
				}
				assert.Equal(t, samples[run.Start].Time, run.EventID)

				// maximal: neighbouring runs differ in state
				if k > 0 {
					assert.NotEqual(t, runs[k-1].State, run.State)
				}
			}
			assert.Equal(t, len(samples), next)
		})
	}
}

func TestLevelRateOfChange(t *testing.T) {
	lag, roc := LevelRateOfChange([]float64{50, 51, nan, 53})
	assertFloats(t, []float64{nan, 50, 51, nan}, lag)
	assertFloats(t, []float64{nan, 100, nan, nan}, roc)
}

func TestDeriveVolumes(t *testing.T) {
	samples := []domain.Sample{
		{Level: 50, Mass: 10000},
		{Level: 0, Mass: 10000},
		{Level: nan, Mass: 10000},
	}
	DeriveVolumes(samples)

	assert.InDelta(t, 200.0, samples[0].OnePercentDelta, 1e-9)
	assert.InDelta(t, 20000.0, samples[0].UsableVolume, 1e-9)
	for _, s := range samples[1:] {
		assert.True(t, math.IsNaN(s.OnePercentDelta))
		assert.True(t, math.IsNaN(s.UsableVolume))
	}

	assert.InDelta(t, 20000.0, TankMeanVolume(samples), 1e-9)
	assert.True(t, math.IsNaN(TankMeanVolume(samples[1:])))
}
