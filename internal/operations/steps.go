package operations

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"tankevents/internal/config"
	"tankevents/internal/dataprocessing"
	"tankevents/internal/exporter"
	"tankevents/internal/historian"
	"tankevents/internal/infrastructure"
	"tankevents/internal/roster"
	"tankevents/pkg/contracts/domain"
)

// FileSource reads the wide table from a CSV export
type FileSource struct {
	Path string
}

// Load implements TableSource
func (s FileSource) Load(_ context.Context, _ time.Time) (*domain.WideTable, error) {
	return dataprocessing.ReadWideTableFile(s.Path)
}

// HistorianSource extracts the run date's tags from the historian
type HistorianSource struct {
	Extractor *historian.Extractor
	Tags      []roster.ColumnTag

	// DumpPath, when set, names the file the joined extract is also written to
	DumpPath func(day time.Time) string
}

// Load implements TableSource
func (s HistorianSource) Load(ctx context.Context, day time.Time) (*domain.WideTable, error) {
	table, _, err := s.Extractor.Extract(ctx, s.Tags, historian.DayWindow(day))
	if err != nil {
		return nil, err
	}
	if s.DumpPath != nil {
		if err := dumpTable(s.DumpPath(day), table); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func dumpTable(path string, table *domain.WideTable) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create extract dump: %w", err)
	}
	defer f.Close()
	if err := dataprocessing.WriteWideTable(f, table); err != nil {
		return err
	}
	return f.Close()
}

// ExtractStep loads the wide table of the run date
type ExtractStep struct {
	BaseStage
	source TableSource
	logger *slog.Logger
}

// NewExtractStep creates the extract step. source may be nil when every run names an input file.
func NewExtractStep(source TableSource, logger *slog.Logger) *ExtractStep {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &ExtractStep{
		BaseStage: NewBaseStage(StageIDExtract, StageNameExtract, nil),
		source:    source,
		logger:    infrastructure.WithComponent(logger, "extract"),
	}
}

func (s *ExtractStep) sourceFor(state *OperationState) TableSource {
	if v, ok := state.GetContext(ContextKeyInputPath); ok {
		if path, _ := v.(string); path != "" {
			return FileSource{Path: path}
		}
	}
	return s.source
}

// Validate requires a source for the run
func (s *ExtractStep) Validate(state *OperationState) error {
	if s.sourceFor(state) == nil {
		return NewValidationError(s.ID(), "no input file given and the historian is not configured")
	}
	if state.RunDate().IsZero() {
		return NewValidationError(s.ID(), "run date is not set")
	}
	return nil
}

// Execute implements Step
func (s *ExtractStep) Execute(ctx context.Context, state *OperationState) error {
	table, err := s.sourceFor(state).Load(ctx, state.RunDate())
	if err != nil {
		return NewExecutionError(s.ID(), err)
	}

	state.SetContext(ContextKeyTable, table)
	if step := state.GetStage(s.ID()); step != nil {
		step.SetMetadata("rows", table.Len())
		step.SetMetadata("columns", len(table.Columns))
	}
	s.logger.InfoContext(ctx, "Wide table loaded",
		slog.Int("rows", table.Len()),
		slog.Int("columns", len(table.Columns)))
	return nil
}

// TransformStep runs the event pipeline over every rostered tank
type TransformStep struct {
	BaseStage
	report      config.ReportConfig
	tanks       []domain.TankDefinition
	broadcaster *StatusBroadcaster
	metrics     *infrastructure.PipelineMetrics
	logger      *slog.Logger
}

// NewTransformStep creates the transform step
func NewTransformStep(report config.ReportConfig, tanks []domain.TankDefinition, broadcaster *StatusBroadcaster,
	metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *TransformStep {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &TransformStep{
		BaseStage:   NewBaseStage(StageIDTransform, StageNameTransform, []string{StageIDExtract}),
		report:      report,
		tanks:       tanks,
		broadcaster: broadcaster,
		metrics:     metrics,
		logger:      logger,
	}
}

// Validate requires an extracted table and a roster
func (s *TransformStep) Validate(state *OperationState) error {
	if state.Table() == nil {
		return NewValidationError(s.ID(), "no wide table was extracted")
	}
	if len(s.tanks) == 0 {
		return NewValidationError(s.ID(), "tank roster is empty")
	}
	return nil
}

// Execute implements Step
func (s *TransformStep) Execute(ctx context.Context, state *OperationState) error {
	tracker := NewProgressTracker(s.ID(), len(s.tanks))
	progress := func(done, total int, result domain.TankResult) {
		tracker.Update(done, result.Tank)
		if s.broadcaster == nil {
			return
		}
		s.broadcaster.UpdateStepWithMetadata(state.ID, s.ID(), int(tracker.Percentage()),
			fmt.Sprintf("Processed tank %s (%d/%d)", result.Tank, done, total),
			map[string]interface{}{
				"tank":   result.Tank,
				"events": len(result.Events),
				"failed": result.Failed(),
				"eta":    tracker.ETA(),
			})
	}

	pipeline := dataprocessing.NewPipeline(s.report,
		dataprocessing.WithLogger(s.logger),
		dataprocessing.WithMetrics(s.metrics),
		dataprocessing.WithProgress(progress))

	report, err := pipeline.Run(ctx, state.Table(), s.tanks)
	if err != nil {
		return NewExecutionError(s.ID(), err)
	}

	state.SetContext(ContextKeyReport, report)
	if step := state.GetStage(s.ID()); step != nil {
		step.SetMetadata("records", len(report.Records))
		step.SetMetadata("tanks_failed", report.TanksFailed)
	}
	return nil
}

// ExportStep writes the report files
type ExportStep struct {
	BaseStage
	csv      *exporter.CSVWriter
	workbook *exporter.WorkbookWriter
}

// NewExportStep creates the export step. workbook may be nil to skip the XLSX file.
func NewExportStep(csv *exporter.CSVWriter, workbook *exporter.WorkbookWriter) *ExportStep {
	return &ExportStep{
		BaseStage: NewBaseStage(StageIDExport, StageNameExport, []string{StageIDTransform}),
		csv:       csv,
		workbook:  workbook,
	}
}

// Validate requires a transformed report
func (s *ExportStep) Validate(state *OperationState) error {
	if state.Report() == nil {
		return NewValidationError(s.ID(), "no report to export")
	}
	return nil
}

// Execute implements Step
func (s *ExportStep) Execute(ctx context.Context, state *OperationState) error {
	report := state.Report()
	day := state.RunDate()

	var artifacts []string
	path, err := s.csv.WriteDailyResults(day, report.Records)
	if err != nil {
		return NewExecutionError(s.ID(), err)
	}
	artifacts = append(artifacts, path)

	path, err = s.csv.WriteGCASSummary(day, report.Density)
	if err != nil {
		return NewExecutionError(s.ID(), err)
	}
	artifacts = append(artifacts, path)

	if s.workbook != nil {
		path, err = s.workbook.Write(day, report)
		if err != nil {
			return NewExecutionError(s.ID(), err)
		}
		artifacts = append(artifacts, path)
	}

	state.SetContext(ContextKeyArtifacts, artifacts)
	return nil
}
