package operations

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"tankevents/internal/infrastructure"
	"tankevents/pkg/contracts/domain"
)

// Manager orchestrates operation execution
type Manager struct {
	registry    *Registry
	config      *Config
	broadcaster *StatusBroadcaster
	logger      *slog.Logger
	now         func() time.Time

	mu         sync.RWMutex
	operations map[string]*OperationState
	history    []string
	latest     *completedReport
	wg         sync.WaitGroup
}

type completedReport struct {
	summary ReportSummary
	report  *domain.BatchReport
}

// NewManager creates a new operation manager
func NewManager(hub WebSocketHub, registry *Registry, config *Config, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = infrastructure.WithComponent(logger, "operations")

	return &Manager{
		registry:    registry,
		config:      config,
		broadcaster: NewStatusBroadcaster(hub, logger),
		logger:      logger,
		now:         time.Now,
		operations:  make(map[string]*OperationState),
	}
}

// RegisterStage registers a Step with the operation
func (m *Manager) RegisterStage(step Step) error {
	return m.registry.Register(step)
}

// GetBroadcaster returns the status broadcaster
func (m *Manager) GetBroadcaster() *StatusBroadcaster {
	return m.broadcaster
}

// Execute runs an operation to completion
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	state, steps, err := m.prepare(req, false)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	state.setCancel(cancel)

	err = m.run(ctx, state, steps)
	return m.createResponse(state), err
}

// Start validates the request and runs the operation in the background, returning its ID.
// Only one operation runs at a time.
func (m *Manager) Start(ctx context.Context, req OperationRequest) (string, error) {
	state, steps, err := m.prepare(req, true)
	if err != nil {
		return "", err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	state.setCancel(cancel)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		if err := m.run(runCtx, state, steps); err != nil {
			m.logger.WarnContext(runCtx, "Background operation failed",
				slog.String("operation_id", state.ID),
				slog.String("error", err.Error()))
		}
	}()
	return state.ID, nil
}

// Wait blocks until every background operation has finished
func (m *Manager) Wait() {
	m.wg.Wait()
}

// prepare creates and stores the state of a new operation. An exclusive operation is refused
// while another one is still running.
func (m *Manager) prepare(req OperationRequest, exclusive bool) (*OperationState, []Step, error) {
	if m.registry.Count() == 0 {
		return nil, nil, NewFatalError("no steps registered", nil)
	}
	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		return nil, nil, NewFatalError("invalid step registry", err)
	}

	if req.ID == "" {
		req.ID = infrastructure.NewRunID()
	}
	day := req.Date
	if day.IsZero() {
		y, mo, d := m.now().AddDate(0, 0, -1).Date()
		day = time.Date(y, mo, d, 0, 0, 0, 0, m.now().Location())
	}

	state := NewOperationState(req.ID)
	state.SetContext(ContextKeyRunDate, day)
	if req.InputPath != "" {
		state.SetContext(ContextKeyInputPath, req.InputPath)
	}
	for _, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if exclusive {
		for _, op := range m.operations {
			if !op.GetStatus().IsTerminal() {
				return nil, nil, ErrOperationInProgress
			}
		}
	}
	if _, exists := m.operations[req.ID]; exists {
		return nil, nil, NewValidationError("", fmt.Sprintf("operation %s already exists", req.ID))
	}
	m.operations[req.ID] = state
	m.history = append(m.history, req.ID)
	m.trimHistory()

	return state, steps, nil
}

// trimHistory drops the oldest finished operations beyond the configured history size
func (m *Manager) trimHistory() {
	for len(m.history) > m.config.HistorySize && m.config.HistorySize > 0 {
		oldest := m.history[0]
		if op, ok := m.operations[oldest]; ok && !op.GetStatus().IsTerminal() {
			return
		}
		delete(m.operations, oldest)
		m.broadcaster.Forget(oldest)
		m.history = m.history[1:]
	}
}

func (m *Manager) run(ctx context.Context, state *OperationState, steps []Step) error {
	ctx = infrastructure.WithRunID(infrastructure.EnsureTraceID(ctx), state.ID)
	ctx, span := infrastructure.StartSpan(ctx, "operation.execute",
		attribute.String("operation.id", state.ID),
		attribute.String("run.date", state.RunDate().Format("2006-01-02")))
	defer span.End()

	m.logger.InfoContext(ctx, "Operation started",
		slog.String("operation_id", state.ID),
		slog.Time("run_date", state.RunDate()),
		slog.Int("step_count", len(steps)))

	m.broadcaster.CreateOperation(state.ID, steps)
	state.Start()
	m.broadcaster.StartOperation(state.ID)

	err := m.executeSequential(ctx, state, steps)

	switch {
	case err != nil && ctx.Err() != nil:
		state.Cancel()
		m.broadcaster.CancelOperation(state.ID)
	case err != nil:
		state.Fail(err)
		m.broadcaster.FailOperation(state.ID, err)
	default:
		state.Complete()
		m.recordReport(state)
		m.broadcaster.CompleteOperation(state.ID, "Operation completed successfully")
	}
	if err != nil {
		infrastructure.RecordError(ctx, err)
	}

	m.logger.InfoContext(ctx, "Operation finished",
		slog.String("operation_id", state.ID),
		slog.String("status", string(state.GetStatus())),
		slog.Duration("duration", state.Duration()))
	return err
}

// executeSequential executes steps in dependency order
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	var firstErr error
	for i, step := range steps {
		if ctx.Err() != nil {
			m.skipRemaining(state, steps[i:], "Operation cancelled")
			return NewCancellationError(step.ID())
		}

		stepState := state.GetStage(step.ID())
		if stepState.GetStatus() == StepStatusSkipped {
			continue
		}

		if err := m.checkDependencies(state, step); err != nil {
			stepState.Skip(err.Error())
			m.broadcaster.SkipStep(state.ID, step.ID(), err.Error())
			continue
		}

		m.logger.InfoContext(ctx, "Executing step",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("step_number", i+1),
			slog.Int("total_steps", len(steps)))

		if err := m.executeStage(ctx, state, step); err != nil {
			m.logger.ErrorContext(ctx, "Step failed",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
			reason := fmt.Sprintf("Step %s failed", step.ID())
			if !m.config.ContinueOnError || ctx.Err() != nil {
				m.skipRemaining(state, steps[i+1:], reason)
				return err
			}
			m.skipDependents(state, step.ID(), reason)
		}
	}
	return firstErr
}

// executeStage executes a single Step with its timeout and retry policy
func (m *Manager) executeStage(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStage(step.ID())

	if err := step.Validate(state); err != nil {
		stepState.Fail(err)
		m.broadcaster.FailStep(state.ID, step.ID(), err)
		return err
	}

	timeout := m.config.GetStageTimeout(step.ID())
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stageCtx, span := infrastructure.StartSpan(stageCtx, "operation.step",
		attribute.String("step.id", step.ID()))
	defer span.End()

	retry := m.config.RetryConfig
	for attempt := 1; ; attempt++ {
		stepState.Start()
		m.broadcaster.UpdateStepProgress(state.ID, step.ID(), 0, "Step started")

		start := time.Now()
		err := step.Execute(stageCtx, state)
		if err == nil {
			stepState.Complete()
			m.broadcaster.CompleteStep(state.ID, step.ID(), "Step completed successfully")
			m.logger.InfoContext(ctx, "Step completed",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.Int("attempt", attempt),
				slog.Duration("duration", time.Since(start)))
			return nil
		}

		if stageCtx.Err() != nil && ctx.Err() == nil {
			err = NewTimeoutError(step.ID(), timeout.String())
		}
		if !IsRetryable(err) || attempt >= retry.MaxAttempts || stageCtx.Err() != nil {
			stepState.Fail(err)
			m.broadcaster.FailStep(state.ID, step.ID(), err)
			infrastructure.RecordError(stageCtx, err)
			return err
		}

		delay := m.calculateRetryDelay(attempt, retry)
		m.logger.WarnContext(ctx, "Step failed, retrying",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", retry.MaxAttempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-time.After(delay):
		case <-stageCtx.Done():
			err = NewTimeoutError(step.ID(), timeout.String())
			if ctx.Err() != nil {
				err = NewCancellationError(step.ID())
			}
			stepState.Fail(err)
			m.broadcaster.FailStep(state.ID, step.ID(), err)
			return err
		}
	}
}

// checkDependencies verifies that all dependencies completed
func (m *Manager) checkDependencies(state *OperationState, step Step) error {
	for _, dep := range step.GetDependencies() {
		depState := state.GetStage(dep)
		if depState == nil || depState.GetStatus() != StepStatusCompleted {
			return NewDependencyError(step.ID(), dep)
		}
	}
	return nil
}

func (m *Manager) skipRemaining(state *OperationState, steps []Step, reason string) {
	for _, step := range steps {
		stepState := state.GetStage(step.ID())
		if stepState != nil && stepState.GetStatus() == StepStatusPending {
			stepState.Skip(reason)
			m.broadcaster.SkipStep(state.ID, step.ID(), reason)
		}
	}
}

// skipDependents skips every pending step that transitively depends on stepID
func (m *Manager) skipDependents(state *OperationState, stepID, reason string) {
	for _, dependent := range m.registry.GetDependents(stepID) {
		m.skipRemaining(state, []Step{dependent}, reason)
		m.skipDependents(state, dependent.ID(), reason)
	}
}

// calculateRetryDelay grows the delay geometrically from InitialDelay, capped at MaxDelay
func (m *Manager) calculateRetryDelay(attempt int, config RetryConfig) time.Duration {
	delay := float64(config.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= config.Multiplier
	}
	if d := time.Duration(delay); d < config.MaxDelay {
		return d
	}
	return config.MaxDelay
}

func (m *Manager) recordReport(state *OperationState) {
	report := state.Report()
	if report == nil {
		return
	}
	summary := ReportSummary{
		OperationID:    state.ID,
		RunDate:        state.RunDate().Format("2006-01-02"),
		GeneratedAt:    report.GeneratedAt,
		Records:        len(report.Records),
		DensityRows:    len(report.Density),
		TanksProcessed: report.TanksProcessed,
		TanksFailed:    report.TanksFailed,
		EventsDropped:  report.EventsDropped,
		Failures:       report.Failures,
		Artifacts:      state.Artifacts(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest = &completedReport{summary: summary, report: report}
}

// LatestReport returns the report of the most recent successful operation
func (m *Manager) LatestReport() (ReportSummary, *domain.BatchReport, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest == nil {
		return ReportSummary{}, nil, false
	}
	return m.latest.summary, m.latest.report, true
}

func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	clone := state.Clone()
	resp := &OperationResponse{
		ID:        clone.ID,
		Status:    clone.Status,
		Duration:  state.Duration(),
		Steps:     clone.Steps,
		Artifacts: state.Artifacts(),
		Error:     clone.Error,
	}
	if snapshot, ok := m.broadcaster.GetSnapshot(clone.ID); ok {
		resp.Progress = snapshot.Progress
	}
	return resp
}

// GetOperation returns the status of an active or recent operation
func (m *Manager) GetOperation(id string) (*OperationResponse, error) {
	m.mu.RLock()
	state, exists := m.operations[id]
	m.mu.RUnlock()
	if !exists {
		return nil, ErrOperationNotFound
	}
	return m.createResponse(state), nil
}

// ListOperations returns active and recent operations, oldest first
func (m *Manager) ListOperations() []*OperationResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*OperationResponse, 0, len(m.history))
	for _, id := range m.history {
		if state, ok := m.operations[id]; ok {
			out = append(out, m.createResponse(state))
		}
	}
	return out
}

// CancelOperation cancels a running operation
func (m *Manager) CancelOperation(id string) error {
	m.mu.RLock()
	state, exists := m.operations[id]
	m.mu.RUnlock()
	if !exists {
		return ErrOperationNotFound
	}
	if state.GetStatus().IsTerminal() {
		return &OperationError{Type: ErrorTypeInvalidState, Message: fmt.Sprintf("operation %s has already finished", id)}
	}
	state.requestCancel()
	return nil
}

// Shutdown waits for background operations and stops the broadcaster
func (m *Manager) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.mu.RLock()
		for _, op := range m.operations {
			op.requestCancel()
		}
		m.mu.RUnlock()
		<-done
	}
	m.broadcaster.Stop()
	return nil
}
