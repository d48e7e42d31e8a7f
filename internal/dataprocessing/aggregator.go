package dataprocessing

import (
	"sort"
	"time"

	"tankevents/pkg/contracts/domain"
)

// Aggregate reduces each run to an EventSummary and splits the summaries by event type.
// Runs whose pump state is neither stopped nor running are ignored. Every summary's Until
// is the start of the next run in the series.
func Aggregate(samples []domain.Sample, runs []EventRun) (discharge, unloading []domain.EventSummary) {
	for i, run := range runs {
		eventType, ok := domain.EventTypeForState(run.State)
		if !ok || run.Len() == 0 {
			continue
		}

		summary := summarize(samples[run.Start:run.End])
		summary.EventID = run.EventID
		summary.Type = eventType
		summary.Until = summary.TimeLast
		if i+1 < len(runs) {
			summary.Until = runs[i+1].EventID
		}

		switch eventType {
		case domain.EventTypeDischarge:
			discharge = append(discharge, summary)
		case domain.EventTypeUnloading:
			unloading = append(unloading, summary)
		}
	}
	return discharge, unloading
}

func summarize(rows []domain.Sample) domain.EventSummary {
	var level, roc, temp, volume, opd, density, duty accumulator
	first, last := rows[0].Time, rows[0].Time
	for _, r := range rows {
		if r.Time.Before(first) {
			first = r.Time
		}
		if r.Time.After(last) {
			last = r.Time
		}
		level.add(r.Level)
		roc.add(r.LevelROC)
		temp.add(r.Temperature)
		volume.add(r.UsableVolume)
		opd.add(r.OnePercentDelta)
		density.add(r.Density)
		duty.add(r.DischargeOutput)
	}

	return domain.EventSummary{
		TimeFirst:           first,
		TimeLast:            last,
		Rows:                len(rows),
		Level:               level.stats(),
		LevelROC:            roc.stats(),
		Temperature:         temp.stats(),
		TotalVolume:         volume.mean(),
		OnePercentDeltaMean: opd.mean(),
		DensityMean:         density.mean(),
		DischargeOutputMean: duty.mean(),
	}
}

// SummarizeDensity groups a tank's samples by the calendar day of their event and reduces the
// mass per level percent and usable volume. Days with any undefined statistic are dropped.
func SummarizeDensity(tank string, samples []domain.Sample) []domain.DensitySummary {
	type dayGroup struct {
		opd, volume, density accumulator
	}
	groups := make(map[time.Time]*dayGroup)
	for _, s := range samples {
		y, m, d := s.EventID.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, s.EventID.Location())
		g, ok := groups[day]
		if !ok {
			g = &dayGroup{}
			groups[day] = g
		}
		g.opd.add(s.OnePercentDelta)
		g.volume.add(s.UsableVolume)
		g.density.add(s.Density)
	}

	out := make([]domain.DensitySummary, 0, len(groups))
	for day, g := range groups {
		row := domain.DensitySummary{
			Tank:            tank,
			Day:             day,
			OnePercentDelta: g.opd.stats(),
			UsableVolume:    g.volume.stats(),
			DensityMean:     g.density.mean(),
			Year:            day.Year(),
			Month:           int(day.Month()),
			DayOfMonth:      day.Day(),
		}
		if !statsDefined(row.OnePercentDelta) || !statsDefined(row.UsableVolume) || g.density.n == 0 {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}
