package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"tankevents/internal/config"
	apperrors "tankevents/internal/errors"
	"tankevents/internal/exporter"
	"tankevents/internal/historian"
	"tankevents/internal/infrastructure"
	"tankevents/internal/operations"
	"tankevents/internal/roster"
	"tankevents/pkg/contracts/domain"
)

// RunDateLayout is the date format accepted for run requests
const RunDateLayout = "2006-01-02"

// RunRequest asks for one report run
type RunRequest struct {
	// Date is the run day; empty means yesterday
	Date string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	// Input names a wide-table CSV to use instead of the historian.
	// Relative names resolve against the data directory.
	Input string `json:"input,omitempty" validate:"omitempty,max=512"`
}

// RunService owns the operation manager the API and CLI drive runs through
type RunService struct {
	manager   *operations.Manager
	paths     config.PathsConfig
	tanks     []domain.TankDefinition
	historian bool
	logger    *slog.Logger
}

// Dependencies carries what NewRunService wires together
type Dependencies struct {
	Config  *config.Config
	Hub     operations.WebSocketHub
	Metrics *infrastructure.PipelineMetrics
	Logger  *slog.Logger
}

// NewRunService loads the tank roster and tag mapping and registers the
// extract, transform and export steps. The historian source is only wired
// when credentials and a tag mapping are available.
func NewRunService(deps Dependencies) (*RunService, error) {
	cfg := deps.Config
	logger := infrastructure.WithComponent(deps.Logger, "run_service")
	if deps.Metrics == nil {
		deps.Metrics = infrastructure.NoopPipelineMetrics()
	}

	tanks, err := roster.LoadTanks(cfg.Paths.RosterFile(), cfg.Report.UngroundedTanks)
	if err != nil {
		return nil, err
	}

	source, err := newHistorianSource(cfg, tanks, deps.Metrics, logger)
	if err != nil {
		return nil, err
	}

	opConfig := operations.NewConfig()
	opConfig.SetStageTimeout(operations.StageIDExtract, config.ExtractTimeout)
	opConfig.SetStageTimeout(operations.StageIDTransform, config.TransformTimeout)
	opConfig.SetStageTimeout(operations.StageIDExport, config.ExportTimeout)

	manager := operations.NewManager(deps.Hub, operations.NewRegistry(), opConfig, deps.Logger)

	var workbook *exporter.WorkbookWriter
	if cfg.Report.Workbook {
		workbook = exporter.NewWorkbookWriter(cfg.Paths, deps.Logger)
	}

	var tableSource operations.TableSource
	if source != nil {
		tableSource = source
	}
	steps := []operations.Step{
		operations.NewExtractStep(tableSource, deps.Logger),
		operations.NewTransformStep(cfg.Report, tanks, manager.GetBroadcaster(), deps.Metrics, deps.Logger),
		operations.NewExportStep(exporter.NewCSVWriter(cfg.Paths, deps.Logger), workbook),
	}
	for _, step := range steps {
		if err := manager.RegisterStage(step); err != nil {
			return nil, fmt.Errorf("failed to register step %s: %w", step.ID(), err)
		}
	}

	logger.Info("Run service initialized",
		slog.Int("tanks", len(tanks)),
		slog.Bool("historian", source != nil),
		slog.String("output_dir", cfg.Paths.Output()))

	return &RunService{
		manager:   manager,
		paths:     cfg.Paths,
		tanks:     tanks,
		historian: source != nil,
		logger:    logger,
	}, nil
}

// historianSource opens a fresh historian session for every run so that a
// long-lived server never reuses an expired password grant
type historianSource struct {
	cfg      config.HistorianConfig
	paths    config.PathsConfig
	tags     []roster.ColumnTag
	metrics  *infrastructure.PipelineMetrics
	logger   *slog.Logger
	newFetch func(ctx context.Context) (historian.Fetcher, error)
}

func newHistorianSource(cfg *config.Config, tanks []domain.TankDefinition, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) (*historianSource, error) {
	if err := cfg.Historian.ValidateCredentials(); err != nil {
		logger.Warn("Historian not configured, runs need an input file",
			slog.String("reason", err.Error()))
		return nil, nil
	}

	mappings, err := roster.LoadTags(cfg.Paths.TagsFile())
	if err != nil {
		if apperrors.TypeOf(err) == apperrors.ErrTypeNotFound {
			logger.Warn("Tag mapping not found, runs need an input file",
				slog.String("path", cfg.Paths.TagsFile()))
			return nil, nil
		}
		return nil, err
	}

	s := &historianSource{
		cfg:     cfg.Historian,
		paths:   cfg.Paths,
		tags:    historian.TagsFor(mappings, tanks),
		metrics: metrics,
		logger:  logger,
	}
	s.newFetch = func(ctx context.Context) (historian.Fetcher, error) {
		return historian.NewClient(ctx, s.cfg,
			historian.WithClientLogger(s.logger),
			historian.WithClientMetrics(s.metrics))
	}
	return s, nil
}

// Load implements operations.TableSource
func (s *historianSource) Load(ctx context.Context, day time.Time) (*domain.WideTable, error) {
	fetcher, err := s.newFetch(ctx)
	if err != nil {
		return nil, err
	}

	source := operations.HistorianSource{
		Extractor: historian.NewExtractor(fetcher, s.cfg.MaxConcurrency, s.logger),
		Tags:      s.tags,
		DumpPath:  s.paths.RawExtractCSV,
	}
	return source.Load(ctx, day)
}

// StartRun validates the request and starts a background run
func (s *RunService) StartRun(ctx context.Context, req RunRequest) (string, error) {
	opReq, err := s.operationRequest(req)
	if err != nil {
		return "", err
	}

	id, err := s.manager.Start(ctx, opReq)
	if err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "Run started",
		slog.String("operation_id", id),
		slog.String("date", req.Date),
		slog.String("input", opReq.InputPath))
	return id, nil
}

// ExecuteRun runs a report to completion in the caller's goroutine
func (s *RunService) ExecuteRun(ctx context.Context, req RunRequest) (*operations.OperationResponse, error) {
	opReq, err := s.operationRequest(req)
	if err != nil {
		return nil, err
	}
	return s.manager.Execute(ctx, opReq)
}

func (s *RunService) operationRequest(req RunRequest) (operations.OperationRequest, error) {
	var opReq operations.OperationRequest
	if req.Date != "" {
		day, err := time.ParseInLocation(RunDateLayout, req.Date, time.Local)
		if err != nil {
			return opReq, apperrors.NewAppValidationError(fmt.Sprintf("invalid run date %q", req.Date))
		}
		opReq.Date = day
	}

	if req.Input != "" {
		path := req.Input
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.paths.DataDir, path)
		}
		if !config.FileExists(path) {
			return opReq, apperrors.NewAppValidationError(fmt.Sprintf("input file %s does not exist", req.Input))
		}
		opReq.InputPath = path
	} else if !s.historian {
		return opReq, apperrors.NewAppValidationError("the historian is not configured; an input file is required")
	}
	return opReq, nil
}

// GetRun returns the status of an active or recent run
func (s *RunService) GetRun(id string) (*operations.OperationResponse, error) {
	return s.manager.GetOperation(id)
}

// ListRuns returns active and recent runs, oldest first
func (s *RunService) ListRuns() []*operations.OperationResponse {
	return s.manager.ListOperations()
}

// CancelRun cancels a running run
func (s *RunService) CancelRun(id string) error {
	return s.manager.CancelOperation(id)
}

// LatestReport returns the most recent successful report
func (s *RunService) LatestReport() (operations.ReportSummary, *domain.BatchReport, bool) {
	return s.manager.LatestReport()
}

// Tanks returns the rostered tanks
func (s *RunService) Tanks() []domain.TankDefinition {
	return s.tanks
}

// HistorianEnabled reports whether runs can extract from the historian
func (s *RunService) HistorianEnabled() bool {
	return s.historian
}

// Shutdown waits for the running report, cancelling it once ctx expires
func (s *RunService) Shutdown(ctx context.Context) error {
	return s.manager.Shutdown(ctx)
}
