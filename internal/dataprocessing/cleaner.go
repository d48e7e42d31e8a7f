package dataprocessing

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"tankevents/internal/errors"
	"tankevents/pkg/contracts/domain"
)

// TankSeries is one tank's channels sliced out of the wide table, ordered by time.
// Slices are copies, so cleaning never mutates the source table.
type TankSeries struct {
	Tank        domain.TankDefinition
	Times       []time.Time
	Level       []float64
	Temperature []float64
	Density     []float64
	Mass        []float64
	GCAS        []float64
	Pump        []float64
	Discharge   []float64
	ExtraPumps  map[string][]float64
}

// Len returns the number of rows
func (s *TankSeries) Len() int {
	return len(s.Times)
}

// ImputeStats counts the cells filled per channel
type ImputeStats map[string]int

// Total returns the number of filled cells over all channels
func (s ImputeStats) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

// SliceTank extracts a tank's columns from the wide table. Rows are sorted by time and
// duplicate timestamps keep their first occurrence. A missing Discharge column becomes all-null
// and a declared extra pump without a column is left out.
func SliceTank(table *domain.WideTable, tank domain.TankDefinition) (*TankSeries, error) {
	if table == nil || table.Len() == 0 {
		return nil, errors.NewDataShapeError("wide table has no rows").WithContext("tank", tank.ID)
	}

	cols := tank.Columns()
	var missing []string
	for _, name := range cols.Required() {
		if !table.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.NewDataShapeError(fmt.Sprintf("missing columns: %s", strings.Join(missing, ", "))).
			WithContext("tank", tank.ID).
			WithContext("missing", missing)
	}

	order := timeOrder(table.Times)
	pick := func(name string) []float64 {
		src, ok := table.Column(name)
		out := make([]float64, len(order))
		for i, row := range order {
			if ok && row < len(src) {
				out[i] = src[row]
			} else {
				out[i] = math.NaN()
			}
		}
		return out
	}

	series := &TankSeries{
		Tank:        tank,
		Times:       make([]time.Time, len(order)),
		Level:       pick(cols.Level),
		Temperature: pick(cols.Temperature),
		Density:     pick(cols.Density),
		Mass:        pick(cols.Mass),
		GCAS:        pick(cols.GCAS),
		Pump:        pick(cols.Pump),
		Discharge:   pick(cols.Discharge),
		ExtraPumps:  make(map[string][]float64, len(tank.ExtraPumps)),
	}
	for i, row := range order {
		series.Times[i] = table.Times[row]
	}
	for _, name := range tank.ExtraPumps {
		if table.Has(name) {
			series.ExtraPumps[name] = pick(name)
		}
	}
	return series, nil
}

// timeOrder returns row indexes sorted by time with duplicate timestamps removed
func timeOrder(times []time.Time) []int {
	idx := make([]int, len(times))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return times[idx[a]].Before(times[idx[b]])
	})

	out := idx[:0]
	for i, row := range idx {
		if i > 0 && times[row].Equal(times[out[len(out)-1]]) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// channel is one imputation step: the ordered policies applied to a named column
type channel struct {
	name     string
	values   []float64
	policies []Policy
}

// Clean imputes the series and returns one Sample per row with the level lag and rate of change set.
//
// The steps run in a fixed order: extra pumps are merged into the pump flag, the pump flag is
// forward filled, lag and rate of change are taken from the raw level, the first rows of those
// two are back filled, and then every continuous channel is interpolated in time.
func Clean(s *TankSeries) ([]domain.Sample, ImputeStats, error) {
	if s.Len() == 0 {
		return nil, nil, errors.NewDataShapeError("tank has no rows").WithContext("tank", s.Tank.ID)
	}
	if countMissing(s.Level) == s.Len() {
		return nil, nil, errors.NewDataShapeError("level channel has no data").WithContext("tank", s.Tank.ID)
	}

	stats := ImputeStats{}
	pump := append([]float64(nil), s.Pump...)

	if len(s.Tank.ExtraPumps) > 0 {
		stats["pump"] += ForwardFill(pump)
		Binarize(pump)
		for _, name := range s.Tank.ExtraPumps {
			values, ok := s.ExtraPumps[name]
			if !ok {
				continue
			}
			extra := append([]float64(nil), values...)
			stats[name] = ForwardFill(extra) + BackFill(extra)
			Binarize(extra)
			for i := range pump {
				pump[i] = float64(int(pump[i]) | int(extra[i]))
			}
		}
	}

	stats["pump"] += ForwardFill(pump)
	if countMissing(pump) == len(pump) {
		return nil, nil, errors.NewDataShapeError("pump channel has no data").WithContext("tank", s.Tank.ID)
	}
	// leading rows before the first reading take the first known state
	stats["pump"] += BackFill(pump)

	lag, roc := LevelRateOfChange(s.Level)

	channels := []channel{
		{"level_lag1", lag, []Policy{PolicyHeadBackFill, PolicyLinear}},
		{"level_roc", roc, []Policy{PolicyHeadBackFill, PolicyLinear}},
		{"level", append([]float64(nil), s.Level...), []Policy{PolicyLinear}},
		{"temperature", append([]float64(nil), s.Temperature...), []Policy{PolicyLinear}},
		{"density", append([]float64(nil), s.Density...), []Policy{PolicyLinear}},
		{"mass", append([]float64(nil), s.Mass...), []Policy{PolicyLinear}},
		{"discharge_output", append([]float64(nil), s.Discharge...), []Policy{PolicyLinear}},
		{"gcas", append([]float64(nil), s.GCAS...), []Policy{PolicyForwardFill}},
	}
	filled := make(map[string][]float64, len(channels))
	for _, ch := range channels {
		for _, p := range ch.policies {
			stats[ch.name] += p.Apply(s.Times, ch.values)
		}
		filled[ch.name] = ch.values
	}

	samples := make([]domain.Sample, s.Len())
	for i, t := range s.Times {
		samples[i] = domain.Sample{
			Time:            t,
			Level:           filled["level"][i],
			Temperature:     filled["temperature"][i],
			Density:         filled["density"][i],
			Mass:            filled["mass"][i],
			GCAS:            filled["gcas"][i],
			PumpRunning:     int(math.Round(pump[i])),
			DischargeOutput: filled["discharge_output"][i],
			LevelLag1:       filled["level_lag1"][i],
			LevelROC:        filled["level_roc"][i],
		}
	}

	for name, n := range stats {
		if n == 0 {
			delete(stats, name)
		}
	}
	return samples, stats, nil
}
