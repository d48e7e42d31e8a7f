package dataprocessing

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tankevents/internal/config"
	"tankevents/pkg/contracts/domain"
)

func eventRecord(tank string, eventType domain.EventType, start time.Time, level domain.Stats) domain.EventRecord {
	return domain.EventRecord{
		EventSummary: domain.EventSummary{
			EventID:             start,
			Type:                eventType,
			TimeFirst:           start,
			TimeLast:            start.Add(time.Hour),
			Level:               level,
			TotalVolume:         120000,
			DischargeOutputMean: 55,
		},
		Tank:             tank,
		Duration:         "1 hours 0 minutes",
		Seconds:          3600,
		Minutes:          60,
		Hours:            1,
		EventRateApprox:  2500,
		Quantity:         1225060,
		EventRatePerHour: 1225060,
		EventRatePerMin:  1225060.0 / 60,
	}
}

func TestCombiner_Combine(t *testing.T) {
	combiner := NewCombiner(config.Default().Report)
	ok := domain.Stats{Mean: 50, Min: 40, Max: 60}
	cars := 0.5

	unloading := eventRecord("12", domain.EventTypeUnloading, day0, ok)
	unloading.RailCars = &cars

	results := []domain.TankResult{
		{
			Tank: "12",
			Events: []domain.EventRecord{
				unloading,
				eventRecord("12", domain.EventTypeDischarge, day0.Add(5*time.Hour), ok),
				eventRecord("12", domain.EventTypeDischarge, day0.Add(2*time.Hour), ok),
				eventRecord("12", domain.EventTypeDischarge, day0.Add(8*time.Hour), domain.Stats{Mean: 105, Min: 95, Max: 110}),
			},
			Density: []domain.DensitySummary{{Tank: "12", Day: day0}},
		},
		{Tank: "8944", Err: errors.New("missing columns: Level 8944")},
		{
			Tank:   "2230E",
			Events: []domain.EventRecord{eventRecord("2230E", domain.EventTypeDischarge, day0, domain.Stats{Mean: math.NaN(), Min: math.NaN(), Max: math.NaN()})},
		},
	}

	report := combiner.Combine(results)

	assert.Equal(t, 2, report.TanksProcessed)
	assert.Equal(t, 1, report.TanksFailed)
	assert.Equal(t, 1, report.EventsDropped)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "8944", report.Failures[0].Tank)
	assert.Len(t, report.Density, 1)

	require.Len(t, report.Records, 4)
	order := make([]string, len(report.Records))
	for i, r := range report.Records {
		order[i] = r.Tank + "/" + string(r.Type) + "/" + r.EventID.Format("15:04")
	}
	assert.Equal(t, []string{
		"12/Discharge/02:00",
		"12/Discharge/05:00",
		"12/Unloading/00:00",
		"2230E/Discharge/00:00",
	}, order)

	first := report.Records[0]
	assert.InDelta(t, 120.0, first.TotalVolume, 1e-9)
	assert.InDelta(t, 2.5, first.EventRateApprox, 1e-9)
	assert.InDelta(t, 1225.06, first.Quantity, 1e-9)
	assert.InDelta(t, 1225.06, first.EventRatePerHour, 1e-9)
	assert.InDelta(t, 1225.06/60, first.EventRatePerMin, 1e-9)
	assert.Equal(t, 0.0, first.RailCars)
	assert.Equal(t, 55.0, first.DischargePumpPct)
	assert.Equal(t, "10", first.Week)
	assert.Equal(t, "Lima", first.Site)
	assert.Equal(t, 1702, first.PlantCode)

	assert.Equal(t, 0.5, report.Records[2].RailCars)
}

func TestLevelPlausible(t *testing.T) {
	tests := []struct {
		name  string
		stats domain.Stats
		want  bool
	}{
		{"in range", domain.Stats{Mean: 50, Min: 0, Max: 100}, true},
		{"mean above 100", domain.Stats{Mean: 105, Min: 50, Max: 60}, false},
		{"negative min", domain.Stats{Mean: 10, Min: -0.1, Max: 20}, false},
		{"max above 100", domain.Stats{Mean: 90, Min: 80, Max: 100.5}, false},
		{"undefined", domain.Stats{Mean: math.NaN(), Min: math.NaN(), Max: math.NaN()}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelPlausible(tt.stats))
		})
	}
}

func TestWeekNumber(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"2024-01-01", "00"},
		{"2024-01-07", "01"},
		{"2024-03-10", "10"},
		{"2023-12-31", "53"},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			d, err := time.Parse("2006-01-02", tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.want, WeekNumber(d))
		})
	}
}
