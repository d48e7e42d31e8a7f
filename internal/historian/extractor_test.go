package historian

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tankevents/internal/errors"
	"tankevents/internal/infrastructure"
	"tankevents/internal/roster"
	"tankevents/pkg/contracts/domain"
)

type fakeFetcher struct {
	mu     sync.Mutex
	data   map[string][]Point
	fail   map[string]error
	called []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, tag string, _ Window) ([]Point, error) {
	f.mu.Lock()
	f.called = append(f.called, tag)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.fail[tag]; ok {
		return nil, err
	}
	return f.data[tag], nil
}

var t0 = time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

func at(minutes int, v float64) Point {
	return Point{Time: t0.Add(time.Duration(minutes) * time.Minute), Value: v}
}

func TestTagsFor(t *testing.T) {
	mappings := []roster.TagMapping{
		{Tank: "12", Level: "L12.PV", Temperature: "T12.PV", Pump: "P12.RUN"},
		{Tank: "14", Level: "L14.PV", Discharge: "D14.RUN"},
	}
	tanks := []domain.TankDefinition{
		{ID: "12", ExtraPumps: []string{"P12B.RUN"}},
		{ID: "14", ExtraPumps: []string{"P12B.RUN"}},
	}

	got := TagsFor(mappings, tanks)
	assert.Equal(t, []roster.ColumnTag{
		{Tag: "T12.PV", Column: "Temp. 12"},
		{Tag: "L12.PV", Column: "Level 12"},
		{Tag: "P12.RUN", Column: "12"},
		{Tag: "L14.PV", Column: "Level 14"},
		{Tag: "D14.RUN", Column: "Discharge 14"},
		{Tag: "P12B.RUN", Column: "P12B.RUN"},
	}, got)
}

func TestJoin(t *testing.T) {
	tags := []roster.ColumnTag{{Tag: "a", Column: "A"}, {Tag: "b", Column: "B"}, {Tag: "c", Column: "C"}}
	series := [][]Point{
		{at(0, 1), at(4, 3)},
		{at(2, 20), at(4, 40)},
		nil,
	}

	table := Join(tags, series)
	require.Equal(t, 3, table.Len())
	assert.Equal(t, []time.Time{t0, t0.Add(2 * time.Minute), t0.Add(4 * time.Minute)}, table.Times)

	a, _ := table.Column("A")
	assert.Equal(t, 1.0, a[0])
	assert.True(t, math.IsNaN(a[1]))
	assert.Equal(t, 3.0, a[2])

	b, _ := table.Column("B")
	assert.True(t, math.IsNaN(b[0]))
	assert.Equal(t, []float64{20, 40}, b[1:])

	c, ok := table.Column("C")
	require.True(t, ok)
	for _, v := range c {
		assert.True(t, math.IsNaN(v))
	}
}

func TestExtractor_Extract(t *testing.T) {
	fetcher := &fakeFetcher{
		data: map[string][]Point{
			"L12.PV": {at(0, 50), at(2, 51)},
			"T12.PV": {at(0, 30)},
		},
		fail: map[string]error{"P12.RUN": errors.NewNetworkError("timeout", nil)},
	}
	tags := []roster.ColumnTag{
		{Tag: "L12.PV", Column: "Level 12"},
		{Tag: "T12.PV", Column: "Temp. 12"},
		{Tag: "P12.RUN", Column: "12"},
	}

	ex := NewExtractor(fetcher, 2, infrastructure.NewLogger(io.Discard, "error"))
	table, stats, err := ex.Extract(context.Background(), tags, testWindow())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Tags)
	assert.Equal(t, []string{"P12.RUN"}, stats.FailedTags)
	assert.Equal(t, 2, stats.Rows)
	assert.ElementsMatch(t, []string{"L12.PV", "T12.PV", "P12.RUN"}, fetcher.called)

	pump, ok := table.Column("12")
	require.True(t, ok)
	assert.True(t, math.IsNaN(pump[0]) && math.IsNaN(pump[1]))

	temp, _ := table.Column("Temp. 12")
	assert.Equal(t, 30.0, temp[0])
	assert.True(t, math.IsNaN(temp[1]))
}

func TestExtractor_NoData(t *testing.T) {
	fetcher := &fakeFetcher{fail: map[string]error{"L12.PV": fmt.Errorf("down")}}
	ex := NewExtractor(fetcher, 1, infrastructure.NewLogger(io.Discard, "error"))

	_, stats, err := ex.Extract(context.Background(), []roster.ColumnTag{
		{Tag: "L12.PV", Column: "Level 12"},
		{Tag: "T12.PV", Column: "Temp. 12"},
	}, testWindow())

	require.Error(t, err)
	assert.Equal(t, errors.ErrTypeDataShape, errors.TypeOf(err))
	assert.Equal(t, []string{"L12.PV"}, stats.FailedTags)
}

func TestExtractor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &fakeFetcher{data: map[string][]Point{"L12.PV": {at(0, 1)}}}
	ex := NewExtractor(fetcher, 1, infrastructure.NewLogger(io.Discard, "error"))

	_, _, err := ex.Extract(ctx, []roster.ColumnTag{{Tag: "L12.PV", Column: "Level 12"}}, testWindow())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
