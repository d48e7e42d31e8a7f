package dataprocessing

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tankevents/pkg/contracts/domain"
)

var (
	nan = math.NaN()
	// a Sunday
	day0 = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
)

func tenMinuteTimes(n int) []time.Time {
	times := make([]time.Time, n)
	for i := range times {
		times[i] = day0.Add(time.Duration(i) * 10 * time.Minute)
	}
	return times
}

// row is one raw reading of a single tank
type row struct {
	level, temp, density, mass, pump float64
}

// buildTable writes one tank's rows into a wide table at 10 minute spacing
func buildTable(table *domain.WideTable, tank domain.TankDefinition, rows []row) *domain.WideTable {
	if table == nil {
		table = domain.NewWideTable(tenMinuteTimes(len(rows)))
	}
	cols := tank.Columns()
	level := make([]float64, len(rows))
	temp := make([]float64, len(rows))
	density := make([]float64, len(rows))
	mass := make([]float64, len(rows))
	pump := make([]float64, len(rows))
	gcas := make([]float64, len(rows))
	for i, r := range rows {
		level[i], temp[i], density[i], mass[i], pump[i] = r.level, r.temp, r.density, r.mass, r.pump
		gcas[i] = 1
	}
	table.SetColumn(cols.Level, level)
	table.SetColumn(cols.Temperature, temp)
	table.SetColumn(cols.Density, density)
	table.SetColumn(cols.Mass, mass)
	table.SetColumn(cols.Pump, pump)
	table.SetColumn(cols.GCAS, gcas)
	return table
}

// pumpRows returns rows with constant readings and the given pump pattern
func pumpRows(pattern ...float64) []row {
	rows := make([]row, len(pattern))
	for i, p := range pattern {
		rows[i] = row{level: 50, temp: 20, density: 0.9, mass: 50000, pump: p}
	}
	return rows
}

// assertFloats compares slices treating NaN as equal to NaN
func assertFloats(t *testing.T, want, got []float64) {
	t.Helper()
	if !assert.Len(t, got, len(want)) {
		return
	}
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.True(t, math.IsNaN(got[i]), "index %d: want NaN, got %v", i, got[i])
			continue
		}
		assert.InDelta(t, want[i], got[i], 1e-9, "index %d", i)
	}
}
