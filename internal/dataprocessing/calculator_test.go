package dataprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tankevents/internal/config"
	"tankevents/pkg/contracts/domain"
)

func newTestCalculator() Calculator {
	return NewCalculator(config.Default().Report)
}

func summaryFor(eventType domain.EventType, minutes float64, levelMin, levelMax float64) domain.EventSummary {
	until := day0.Add(time.Duration(minutes * float64(time.Minute)))
	return domain.EventSummary{
		EventID:             day0,
		Type:                eventType,
		TimeFirst:           day0,
		TimeLast:            until.Add(-10 * time.Minute),
		Until:               until,
		Level:               domain.Stats{Mean: (levelMin + levelMax) / 2, Min: levelMin, Max: levelMax},
		TotalVolume:         100000,
		OnePercentDeltaMean: 1000,
		DensityMean:         0.8,
		DischargeOutputMean: 35,
	}
}

func TestCalculator_GroundedTank(t *testing.T) {
	calc := newTestCalculator()
	tank := domain.TankDefinition{ID: "2631"}

	records := calc.Calculate(tank, 100000, []domain.EventSummary{
		summaryFor(domain.EventTypeUnloading, 30, 40, 50),
	})
	require.Len(t, records, 1)
	rec := records[0]

	assert.Equal(t, "2631", rec.Tank)
	assert.Equal(t, "30 minutes", rec.Duration)
	assert.InDelta(t, 1800.0, rec.Seconds, 1e-9)
	assert.InDelta(t, 30.0, rec.Minutes, 1e-9)
	assert.InDelta(t, 0.5, rec.Hours, 1e-9)

	// 10 levels x 0.8 density x 1000 kg per level percent
	assert.InDelta(t, 8000.0, rec.Quantity, 1e-9)
	assert.InDelta(t, 8000.0, rec.EventRate, 1e-9)
	assert.InDelta(t, 8000.0/30, rec.EventRatePerMin, 1e-9)
	assert.InDelta(t, 16000.0, rec.EventRatePerHour, 1e-9)
	// (10/100) / (1/100000) / 1800 * 60
	assert.InDelta(t, 10000.0/30, rec.EventRateApprox, 1e-9)

	require.NotNil(t, rec.RailCars)
	assert.InDelta(t, 8000.0/79000, *rec.RailCars, 1e-12)
}

func TestCalculator_UngroundedTank(t *testing.T) {
	calc := newTestCalculator()
	tank := domain.TankDefinition{ID: "12", UngroundedConstant: 122506}

	records := calc.Calculate(tank, 100000, []domain.EventSummary{
		summaryFor(domain.EventTypeDischarge, 90, 40, 50),
	})
	require.Len(t, records, 1)

	assert.InDelta(t, 10*122506.0, records[0].Quantity, 1e-6)
	assert.Equal(t, "1 hours 30 minutes", records[0].Duration)
	assert.Nil(t, records[0].RailCars, "discharge events carry no rail cars")
}

func TestCalculator_RailCarCapacity(t *testing.T) {
	calc := newTestCalculator()
	tank := domain.TankDefinition{ID: "rail", UngroundedConstant: 79000}

	records := calc.Calculate(tank, 100000, []domain.EventSummary{
		summaryFor(domain.EventTypeUnloading, 45, 60, 61),
	})
	require.Len(t, records, 1)
	require.NotNil(t, records[0].RailCars)
	assert.InDelta(t, 79000.0, records[0].Quantity, 1e-9)
	assert.InDelta(t, 1.0, *records[0].RailCars, 1e-12)
}

func TestCalculator_MinimumDuration(t *testing.T) {
	calc := newTestCalculator()
	tank := domain.TankDefinition{ID: "30E"}

	tests := []struct {
		name    string
		minutes float64
		kept    bool
	}{
		{"zero length", 0, false},
		{"ten minutes", 10, false},
		{"exactly twenty minutes", 20, false},
		{"just over twenty minutes", 20.5, true},
		{"one day", 24 * 60, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := calc.Calculate(tank, 100000, []domain.EventSummary{
				summaryFor(domain.EventTypeDischarge, tt.minutes, 40, 41),
			})
			if tt.kept {
				require.Len(t, records, 1)
				assert.Greater(t, records[0].Minutes, 20.0)
			} else {
				assert.Empty(t, records)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0 minutes"},
		{59, "0 minutes"},
		{1800, "30 minutes"},
		{3599, "59 minutes"},
		{3600, "1 hours 0 minutes"},
		{5400, "1 hours 30 minutes"},
		{26*3600 + 5*60 + 30, "26 hours 5 minutes"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(tt.seconds))
		})
	}
}
