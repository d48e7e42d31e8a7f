package dataprocessing

import (
	"time"

	"tankevents/pkg/contracts/domain"
)

// EventRun is a maximal run of rows sharing one pump state. End is exclusive.
type EventRun struct {
	EventID time.Time
	State   int
	Start   int
	End     int
}

// Len returns the number of rows in the run
func (r EventRun) Len() int {
	return r.End - r.Start
}

// SegmentEvents stamps every sample with the timestamp of the row that started its run and
// returns the runs in row order. The first row always starts a run; after that a run starts
// wherever the pump state differs from the previous row.
func SegmentEvents(samples []domain.Sample) []EventRun {
	var runs []EventRun
	for i := range samples {
		if i == 0 || samples[i].PumpRunning != samples[i-1].PumpRunning {
			if len(runs) > 0 {
				runs[len(runs)-1].End = i
			}
			runs = append(runs, EventRun{
				EventID: samples[i].Time,
				State:   samples[i].PumpRunning,
				Start:   i,
			})
		}
		samples[i].EventID = runs[len(runs)-1].EventID
	}
	if len(runs) > 0 {
		runs[len(runs)-1].End = len(samples)
	}
	return runs
}
