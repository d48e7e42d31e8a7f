package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"tankevents/internal/config"
	"tankevents/internal/errors"
	"tankevents/internal/infrastructure"
	"tankevents/pkg/contracts/domain"
)

// ProgressFunc is called after each tank finishes, from the worker that processed it
type ProgressFunc func(done, total int, result domain.TankResult)

// Pipeline runs the per-tank transformation over a roster and folds the results into a report
type Pipeline struct {
	calculator Calculator
	combiner   Combiner
	workers    int
	logger     *slog.Logger
	metrics    *infrastructure.PipelineMetrics
	progress   ProgressFunc
	now        func() time.Time
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the pipeline logger
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithMetrics sets the instruments tank outcomes are recorded on
func WithMetrics(m *infrastructure.PipelineMetrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithProgress registers a per-tank progress callback
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// WithClock overrides the report timestamp source
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// NewPipeline creates a pipeline for the given report configuration
func NewPipeline(cfg config.ReportConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		calculator: NewCalculator(cfg),
		combiner:   NewCombiner(cfg),
		workers:    cfg.Workers,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.workers < 1 {
		p.workers = 1
	}
	if p.logger == nil {
		p.logger = infrastructure.GetLogger()
	}
	p.logger = infrastructure.WithComponent(p.logger, "pipeline")
	return p
}

// ProcessTank is the pure per-tank transformation: slice, clean, derive, segment, aggregate, calculate.
func (p *Pipeline) ProcessTank(table *domain.WideTable, tank domain.TankDefinition) ([]domain.EventRecord, []domain.DensitySummary, int, error) {
	series, err := SliceTank(table, tank)
	if err != nil {
		return nil, nil, 0, err
	}

	samples, _, err := Clean(series)
	if err != nil {
		return nil, nil, series.Len(), err
	}
	DeriveVolumes(samples)
	runs := SegmentEvents(samples)

	discharge, unloading := Aggregate(samples, runs)
	meanVolume := TankMeanVolume(samples)

	events := p.calculator.Calculate(tank, meanVolume, discharge)
	events = append(events, p.calculator.Calculate(tank, meanVolume, unloading)...)

	return events, SummarizeDensity(tank.ID, samples), len(samples), nil
}

// Run processes every tank and combines the results. A failing tank is logged and reported
// in the batch without affecting the others. Only cancellation of ctx fails the run.
func (p *Pipeline) Run(ctx context.Context, table *domain.WideTable, tanks []domain.TankDefinition) (*domain.BatchReport, error) {
	if table == nil || table.Len() == 0 {
		return nil, errors.NewDataShapeError("no historian data to process")
	}

	start := time.Now()
	ctx, span := infrastructure.StartSpan(ctx, "pipeline.run",
		attribute.Int("tanks", len(tanks)),
		attribute.Int("rows", table.Len()))
	defer span.End()

	p.logger.InfoContext(ctx, "Starting event pipeline",
		slog.Int("tanks", len(tanks)),
		slog.Int("rows", table.Len()),
		slog.Int("workers", p.workers))

	results := make([]domain.TankResult, len(tanks))
	var done atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, tank := range tanks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.runTank(gctx, table, tank)
			if p.progress != nil {
				p.progress(int(done.Add(1)), len(tanks), results[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		infrastructure.RecordError(ctx, err)
		p.metrics.RecordRun(ctx, time.Since(start), 0, err)
		return nil, fmt.Errorf("pipeline cancelled: %w", err)
	}

	report := p.combiner.Combine(results)
	report.GeneratedAt = p.now()

	p.metrics.RecordRun(ctx, time.Since(start), report.EventsDropped, nil)
	p.logger.InfoContext(ctx, "Event pipeline complete",
		slog.Int("records", len(report.Records)),
		slog.Int("tanks_processed", report.TanksProcessed),
		slog.Int("tanks_failed", report.TanksFailed),
		slog.Int("events_dropped", report.EventsDropped),
		slog.Duration("duration", time.Since(start)))

	return report, nil
}

// runTank isolates one tank: errors and panics become a failed TankResult
func (p *Pipeline) runTank(ctx context.Context, table *domain.WideTable, tank domain.TankDefinition) (result domain.TankResult) {
	start := time.Now()
	logger := infrastructure.WithTank(p.logger, tank.ID)
	result.Tank = tank.ID

	defer func() {
		if r := recover(); r != nil {
			result.Events, result.Density = nil, nil
			result.Err = errors.NewAppError(errors.ErrTypeInternal, fmt.Sprintf("panic: %v", r), nil).
				WithContext("stack", string(debug.Stack()))
		}
		result.Duration = time.Since(start)
		p.metrics.RecordTank(ctx, tank.ID, result.Duration, len(result.Events), result.Err)

		if result.Err != nil {
			infrastructure.WithError(logger, result.Err).ErrorContext(ctx, "Tank skipped",
				slog.String("error_type", string(errors.TypeOf(result.Err))),
				slog.Int("rows", result.Rows))
			return
		}
		logger.DebugContext(ctx, "Tank processed",
			slog.Int("events", len(result.Events)),
			slog.Int("rows", result.Rows),
			slog.Duration("duration", result.Duration))
	}()

	result.Events, result.Density, result.Rows, result.Err = p.ProcessTank(table, tank)
	return result
}
