package historian

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tankevents/internal/errors"
	"tankevents/internal/infrastructure"
	"tankevents/internal/roster"
	"tankevents/pkg/contracts/domain"
)

// Fetcher retrieves the points of one tag
type Fetcher interface {
	Fetch(ctx context.Context, tag string, w Window) ([]Point, error)
}

// ExtractStats summarizes one extraction
type ExtractStats struct {
	Tags       int           `json:"tags"`
	FailedTags []string      `json:"failed_tags,omitempty"`
	Rows       int           `json:"rows"`
	Duration   time.Duration `json:"duration"`
}

// Extractor fetches tags concurrently and outer-joins them on timestamp
type Extractor struct {
	fetcher     Fetcher
	concurrency int
	logger      *slog.Logger
}

// NewExtractor creates an extractor running at most concurrency fetches at once
func NewExtractor(fetcher Fetcher, concurrency int, logger *slog.Logger) *Extractor {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Extractor{
		fetcher:     fetcher,
		concurrency: concurrency,
		logger:      infrastructure.WithComponent(logger, "extractor"),
	}
}

// TagsFor lists the tags to extract: every mapped channel, then each declared extra pump
// stored under its own name. Duplicated columns are requested once.
func TagsFor(mappings []roster.TagMapping, tanks []domain.TankDefinition) []roster.ColumnTag {
	seen := make(map[string]bool)
	var out []roster.ColumnTag
	add := func(c roster.ColumnTag) {
		if seen[c.Column] {
			return
		}
		seen[c.Column] = true
		out = append(out, c)
	}
	for _, m := range mappings {
		for _, c := range m.Columns() {
			add(c)
		}
	}
	for _, t := range tanks {
		for _, pump := range t.ExtraPumps {
			add(roster.ColumnTag{Tag: pump, Column: pump})
		}
	}
	return out
}

// Extract fetches every tag over the window and joins the results into a wide table.
// A tag that fails becomes an all-null column. The extraction fails only when it is
// cancelled or when no tag returned any data.
func (e *Extractor) Extract(ctx context.Context, tags []roster.ColumnTag, w Window) (*domain.WideTable, ExtractStats, error) {
	start := time.Now()
	stats := ExtractStats{Tags: len(tags)}

	ctx, span := infrastructure.StartSpan(ctx, "historian.extract")
	defer span.End()

	e.logger.InfoContext(ctx, "Starting historian extraction",
		slog.Int("tags", len(tags)),
		slog.Time("start", w.Start),
		slog.Time("end", w.End))

	series := make([][]Point, len(tags))
	var (
		mu       sync.Mutex
		failures []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, tag := range tags {
		g.Go(func() error {
			points, err := e.fetcher.Fetch(gctx, tag.Tag, w)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				e.logger.WarnContext(ctx, "Tag extraction failed, column left empty",
					slog.String("tag", tag.Tag),
					slog.String("column", tag.Column),
					slog.String("error_type", string(errors.TypeOf(err))),
					slog.String("error", err.Error()))
				mu.Lock()
				failures = append(failures, err)
				stats.FailedTags = append(stats.FailedTags, tag.Tag)
				mu.Unlock()
				return nil
			}
			series[i] = points
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, stats, fmt.Errorf("historian extraction cancelled: %w", err)
	}
	sort.Strings(stats.FailedTags)

	table := Join(tags, series)
	stats.Rows = table.Len()
	stats.Duration = time.Since(start)

	if table.Len() == 0 {
		err := errors.NewDataShapeError("historian returned no data for the window")
		if len(failures) > 0 {
			err.Cause = failures[0]
		}
		return nil, stats, err
	}

	e.logger.InfoContext(ctx, "Historian extraction complete",
		slog.Int("rows", stats.Rows),
		slog.Int("failed_tags", len(stats.FailedTags)),
		slog.Duration("duration", stats.Duration))

	return table, stats, nil
}

// Join outer-joins the series on timestamp. series[i] belongs to tags[i]; a nil series gives
// an all-null column.
func Join(tags []roster.ColumnTag, series [][]Point) *domain.WideTable {
	stamps := make(map[time.Time]struct{})
	for _, points := range series {
		for _, p := range points {
			stamps[p.Time] = struct{}{}
		}
	}
	times := make([]time.Time, 0, len(stamps))
	for t := range stamps {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	index := make(map[time.Time]int, len(times))
	for i, t := range times {
		index[t] = i
	}

	table := domain.NewWideTable(times)
	for i, tag := range tags {
		col := make([]float64, len(times))
		for j := range col {
			col[j] = math.NaN()
		}
		for _, p := range series[i] {
			col[index[p.Time]] = p.Value
		}
		table.SetColumn(tag.Column, col)
	}
	return table
}
