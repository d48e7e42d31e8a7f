package operations

import (
	"context"
	"sync"
	"time"
)

// Step is one unit of a report run: extract, transform or export
type Step interface {
	ID() string
	Name() string

	// Execute does the work, reading and writing the run's shared state
	Execute(ctx context.Context, state *OperationState) error

	// Validate is called before every attempt; a failure fails the step without retry
	Validate(state *OperationState) error

	// GetDependencies lists step IDs that must complete first
	GetDependencies() []string
}

// StepStatus is the lifecycle position of a step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState is the runtime record of one step. Attempts counts retries.
type StepState struct {
	mu        sync.RWMutex
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Status    StepStatus             `json:"status"`
	Attempts  int                    `json:"attempts"`
	StartTime *time.Time             `json:"start_time,omitempty"`
	EndTime   *time.Time             `json:"end_time,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewStepState creates a pending step record
func NewStepState(id, name string) *StepState {
	return &StepState{
		ID:       id,
		Name:     name,
		Status:   StepStatusPending,
		Metadata: make(map[string]interface{}),
	}
}

// Start begins a new attempt
func (s *StepState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.StartTime, s.EndTime = &now, nil
	s.Status = StepStatusRunning
	s.Attempts++
}

func (s *StepState) finish(status StepStatus, message, errText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = status
	s.Message = message
	s.Error = errText
}

// Complete marks the step done
func (s *StepState) Complete() {
	s.finish(StepStatusCompleted, "", "")
}

// Fail marks the step failed with err
func (s *StepState) Fail(err error) {
	var text string
	if err != nil {
		text = err.Error()
	}
	s.finish(StepStatusFailed, "", text)
}

// Skip marks a step that never ran because of reason
func (s *StepState) Skip(reason string) {
	s.finish(StepStatusSkipped, reason, "")
}

// SetMetadata records a step output such as row or record counts
func (s *StepState) SetMetadata(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Metadata[key] = value
}

// GetStatus returns the current status
func (s *StepState) GetStatus() StepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

func (s *StepState) clone() *StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := &StepState{
		ID:        s.ID,
		Name:      s.Name,
		Status:    s.Status,
		Attempts:  s.Attempts,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Message:   s.Message,
		Error:     s.Error,
		Metadata:  make(map[string]interface{}, len(s.Metadata)),
	}
	for k, v := range s.Metadata {
		c.Metadata[k] = v
	}
	return c
}

// BaseStage carries the identity and dependencies of a step. Embed it and
// implement Execute.
type BaseStage struct {
	id           string
	name         string
	dependencies []string
}

// NewBaseStage creates a base stage
func NewBaseStage(id, name string, dependencies []string) BaseStage {
	return BaseStage{id: id, name: name, dependencies: append([]string(nil), dependencies...)}
}

func (b *BaseStage) ID() string                { return b.id }
func (b *BaseStage) Name() string              { return b.name }
func (b *BaseStage) GetDependencies() []string { return b.dependencies }

// Validate accepts any state
func (b *BaseStage) Validate(state *OperationState) error {
	return nil
}
