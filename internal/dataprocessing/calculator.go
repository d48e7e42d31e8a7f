package dataprocessing

import (
	"fmt"
	"math"

	"tankevents/internal/config"
	"tankevents/pkg/contracts/domain"
)

// Calculator turns event summaries into records with durations, quantities and rates
type Calculator struct {
	// MinEventMinutes is exclusive: an event must last strictly longer to be kept
	MinEventMinutes float64
	RailCarCapacity float64
}

// NewCalculator builds a calculator from the report configuration
func NewCalculator(cfg config.ReportConfig) Calculator {
	return Calculator{
		MinEventMinutes: cfg.MinEventMinutes,
		RailCarCapacity: cfg.RailCarCapacity,
	}
}

// Calculate computes the record of every summary and drops events that are too short.
// tankMeanVolume is the tank-wide mean usable volume used by the approximate rate.
func (c Calculator) Calculate(tank domain.TankDefinition, tankMeanVolume float64, summaries []domain.EventSummary) []domain.EventRecord {
	records := make([]domain.EventRecord, 0, len(summaries))
	for _, s := range summaries {
		rec := c.record(tank, tankMeanVolume, s)
		if !(rec.Minutes > c.MinEventMinutes) {
			continue
		}
		records = append(records, rec)
	}
	return records
}

func (c Calculator) record(tank domain.TankDefinition, tankMeanVolume float64, s domain.EventSummary) domain.EventRecord {
	seconds := s.Until.Sub(s.TimeFirst).Seconds()
	minutes := seconds / 60
	hours := seconds / 3600
	levelRange := s.Level.Max - s.Level.Min

	rec := domain.EventRecord{
		EventSummary: s,
		Tank:         tank.ID,
		Duration:     FormatDuration(seconds),
		Seconds:      seconds,
		Minutes:      minutes,
		Hours:        hours,
	}

	rec.EventRateApprox = (levelRange / 100) / (1 / tankMeanVolume) / seconds * 60
	rec.EventRate = levelRange * s.DensityMean * s.OnePercentDeltaMean
	rec.EventRatePerMin = rec.EventRate / minutes
	rec.EventRatePerHour = rec.EventRate / hours

	if tank.IsUngrounded() {
		rec.Quantity = levelRange * tank.UngroundedConstant
	} else {
		rec.Quantity = levelRange * s.DensityMean * s.OnePercentDeltaMean
	}

	if s.Type == domain.EventTypeUnloading && c.RailCarCapacity > 0 {
		cars := rec.Quantity / c.RailCarCapacity
		rec.RailCars = &cars
	}
	return rec
}

// FormatDuration renders seconds as "H hours M minutes", or "M minutes" under one hour
func FormatDuration(seconds float64) string {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	hours := int(math.Floor(seconds / 3600))
	minutes := int(math.Floor(seconds/60)) % 60
	if hours >= 1 {
		return fmt.Sprintf("%d hours %d minutes", hours, minutes)
	}
	return fmt.Sprintf("%d minutes", minutes)
}
