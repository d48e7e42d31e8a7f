package dataprocessing

import (
	stderrors "errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tankevents/internal/errors"
	"tankevents/pkg/contracts/domain"
)

func TestSliceTank(t *testing.T) {
	tank := domain.TankDefinition{ID: "12"}

	t.Run("missing required columns", func(t *testing.T) {
		table := buildTable(nil, tank, pumpRows(0, 1))
		delete(table.Columns, tank.Columns().Density)

		_, err := SliceTank(table, tank)
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrDataShape))
		assert.Contains(t, err.Error(), "Density 12")
	})

	t.Run("missing extra pump column is ignored", func(t *testing.T) {
		table := buildTable(nil, tank, pumpRows(0, 1))
		series, err := SliceTank(table, domain.TankDefinition{ID: "12", ExtraPumps: []string{"12B"}})
		require.NoError(t, err)
		assert.Empty(t, series.ExtraPumps)

		samples, _, err := Clean(series)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1}, pumpStates(samples))
	})

	t.Run("empty table", func(t *testing.T) {
		_, err := SliceTank(domain.NewWideTable(nil), tank)
		assert.True(t, stderrors.Is(err, errors.ErrDataShape))
	})

	t.Run("sorts rows and drops duplicate timestamps", func(t *testing.T) {
		times := []time.Time{
			day0.Add(20 * time.Minute),
			day0,
			day0.Add(10 * time.Minute),
			day0.Add(10 * time.Minute),
		}
		table := domain.NewWideTable(times)
		buildTable(table, tank, []row{
			{level: 3, pump: 1},
			{level: 1, pump: 0},
			{level: 2, pump: 0},
			{level: 99, pump: 1},
		})

		series, err := SliceTank(table, tank)
		require.NoError(t, err)
		assert.Equal(t, tenMinuteTimes(3), series.Times)
		assertFloats(t, []float64{1, 2, 3}, series.Level)
		assertFloats(t, []float64{nan, nan, nan}, series.Discharge)

		// the source table is not modified
		series.Level[0] = 42
		assert.Equal(t, 3.0, table.Columns[tank.Columns().Level][0])
	})
}

func TestClean_NoMissingValuesInAggregatedChannels(t *testing.T) {
	tank := domain.TankDefinition{ID: "8944"}
	rows := []row{
		{level: 40, temp: 20, density: 0.9, mass: 40000, pump: 0},
		{level: 41, temp: nan, density: 0.9, mass: 41000, pump: nan},
		{level: nan, temp: 22, density: nan, mass: nan, pump: 1},
		{level: nan, temp: nan, density: 0.92, mass: nan, pump: nan},
		{level: 44, temp: 23, density: 0.92, mass: 44000, pump: 0},
		{level: nan, temp: nan, density: nan, mass: nan, pump: nan},
	}
	table := buildTable(nil, tank, rows)
	table.SetColumn(tank.Columns().Discharge, []float64{nan, 10, nan, 30, nan, nan})

	series, err := SliceTank(table, tank)
	require.NoError(t, err)
	samples, stats, err := Clean(series)
	require.NoError(t, err)
	require.Len(t, samples, len(rows))
	assert.Positive(t, stats.Total())

	for i, s := range samples {
		for name, v := range map[string]float64{
			"level":       s.Level,
			"temperature": s.Temperature,
			"density":     s.Density,
			"mass":        s.Mass,
			"lag":         s.LevelLag1,
			"roc":         s.LevelROC,
		} {
			assert.False(t, math.IsNaN(v), "row %d %s is missing", i, name)
		}
		if i > 0 {
			assert.False(t, math.IsNaN(s.DischargeOutput), "row %d discharge is missing", i)
		}
	}

	assert.Equal(t, []int{0, 0, 1, 1, 0, 0}, pumpStates(samples))
	assert.InDelta(t, 42.0, samples[2].Level, 1e-9)
	assert.InDelta(t, 43.0, samples[3].Level, 1e-9)
	assert.InDelta(t, 44.0, samples[5].Level, 1e-9)
	assert.InDelta(t, 30.0, samples[3].DischargeOutput, 1e-9)
	assert.InDelta(t, 20.0, samples[2].DischargeOutput, 1e-9)
	assert.True(t, math.IsNaN(samples[0].DischargeOutput))

	// lag and rate of change come from the raw level and are back filled at the start
	assert.InDelta(t, 40.0, samples[0].LevelLag1, 1e-9)
	assert.InDelta(t, 40.0, samples[1].LevelLag1, 1e-9)
	assert.InDelta(t, 100.0, samples[0].LevelROC, 1e-9)
	assert.InDelta(t, 100.0, samples[1].LevelROC, 1e-9)
}

func TestClean_PumpChannel(t *testing.T) {
	tests := []struct {
		name    string
		tank    domain.TankDefinition
		pump    []float64
		extras  map[string][]float64
		want    []int
		wantErr bool
	}{
		{
			name: "leading gap takes first known state",
			tank: domain.TankDefinition{ID: "30C"},
			pump: []float64{nan, nan, 1, 1, 0},
			want: []int{1, 1, 1, 1, 0},
		},
		{
			name:    "pump without any reading",
			tank:    domain.TankDefinition{ID: "30C"},
			pump:    []float64{nan, nan, nan},
			wantErr: true,
		},
		{
			name: "extra pumps are ORed into the flag",
			tank: domain.TankDefinition{ID: "40E", ExtraPumps: []string{"40E-2", "40E-3"}},
			pump: []float64{0, 0, 0, 0, nan, 0},
			extras: map[string][]float64{
				"40E-2": {nan, 1, nan, 0, 0, nan},
				"40E-3": {nan, nan, nan, nan, nan, nan},
			},
			want: []int{1, 1, 1, 0, 0, 0},
		},
		{
			name: "extra pump values are coerced to 0/1",
			tank: domain.TankDefinition{ID: "40W", ExtraPumps: []string{"40W-2"}},
			pump: []float64{nan, 0, 1, 0},
			extras: map[string][]float64{
				"40W-2": {0, 5, 0, nan},
			},
			want: []int{0, 1, 1, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := buildTable(nil, tt.tank, pumpRows(tt.pump...))
			for name, values := range tt.extras {
				table.SetColumn(name, values)
			}

			series, err := SliceTank(table, tt.tank)
			require.NoError(t, err)
			samples, _, err := Clean(series)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, stderrors.Is(err, errors.ErrDataShape))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, pumpStates(samples))
		})
	}
}

func TestClean_NoLevelData(t *testing.T) {
	tank := domain.TankDefinition{ID: "2230E"}
	rows := pumpRows(0, 1, 0)
	for i := range rows {
		rows[i].level = nan
	}
	series, err := SliceTank(buildTable(nil, tank, rows), tank)
	require.NoError(t, err)

	_, _, err = Clean(series)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "level channel has no data")
}

func pumpStates(samples []domain.Sample) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		out[i] = s.PumpRunning
	}
	return out
}
