package dataprocessing

import (
	"fmt"
	"sort"
	"time"

	"tankevents/internal/config"
	"tankevents/pkg/contracts/domain"
)

// Combiner folds per-tank results into the final report
type Combiner struct {
	Site      string
	PlantCode int
}

// NewCombiner builds a combiner from the report configuration
func NewCombiner(cfg config.ReportConfig) Combiner {
	return Combiner{Site: cfg.Site, PlantCode: cfg.PlantCode}
}

// Combine converts records to metric tons, attaches report metadata and drops records whose level
// statistics fall outside [0, 100]. Output keeps the order of results, discharge before unloading
// within a tank, then event start.
func (c Combiner) Combine(results []domain.TankResult) *domain.BatchReport {
	report := &domain.BatchReport{
		Records: []domain.ResultRecord{},
		Density: []domain.DensitySummary{},
	}

	for _, res := range results {
		if res.Failed() {
			report.TanksFailed++
			report.Failures = append(report.Failures, domain.TankFailure{Tank: res.Tank, Message: res.Err.Error()})
			continue
		}
		report.TanksProcessed++
		report.Density = append(report.Density, res.Density...)

		events := append([]domain.EventRecord(nil), res.Events...)
		sort.SliceStable(events, func(i, j int) bool {
			if events[i].Type != events[j].Type {
				return events[i].Type == domain.EventTypeDischarge
			}
			return events[i].EventID.Before(events[j].EventID)
		})

		for _, ev := range events {
			if !LevelPlausible(ev.Level) {
				report.EventsDropped++
				continue
			}
			report.Records = append(report.Records, c.result(ev))
		}
	}
	return report
}

func (c Combiner) result(ev domain.EventRecord) domain.ResultRecord {
	railCars := 0.0
	if ev.RailCars != nil {
		railCars = *ev.RailCars
	}
	return domain.ResultRecord{
		EventID:          ev.EventID,
		Duration:         ev.Duration,
		TimeFirst:        ev.TimeFirst,
		TimeLast:         ev.TimeLast,
		Level:            ev.Level,
		Temperature:      ev.Temperature,
		Seconds:          ev.Seconds,
		TotalVolume:      toMetricTons(ev.TotalVolume),
		EventRateApprox:  toMetricTons(ev.EventRateApprox),
		Minutes:          ev.Minutes,
		Hours:            ev.Hours,
		Quantity:         toMetricTons(ev.Quantity),
		EventRatePerHour: toMetricTons(ev.EventRatePerHour),
		EventRatePerMin:  toMetricTons(ev.EventRatePerMin),
		Type:             ev.Type,
		Tank:             ev.Tank,
		RailCars:         railCars,
		DischargePumpPct: ev.DischargeOutputMean,
		Week:             WeekNumber(ev.EventID),
		Site:             c.Site,
		PlantCode:        c.PlantCode,
	}
}

func toMetricTons(kg float64) float64 {
	return kg / config.KilogramsPerMetricTon
}

// LevelPlausible reports whether no level statistic lies outside [0, 100]. NaN is not out of range.
func LevelPlausible(s domain.Stats) bool {
	for _, v := range []float64{s.Mean, s.Min, s.Max} {
		if v < 0 || v > 100 {
			return false
		}
	}
	return true
}

// WeekNumber returns the Sunday-based week of the year as two digits. Days before the
// first Sunday are in week 00.
func WeekNumber(t time.Time) string {
	yday := t.YearDay() - 1
	week := (yday + 7 - int(t.Weekday())) / 7
	return fmt.Sprintf("%02d", week)
}
