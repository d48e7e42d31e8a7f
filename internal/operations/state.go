package operations

import (
	"sync"
	"time"

	"tankevents/pkg/contracts/domain"
)

// OperationStatusValue represents the overall operation status enum
type OperationStatusValue string

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusFailed    OperationStatusValue = "failed"
	OperationStatusCancelled OperationStatusValue = "cancelled"
)

// IsTerminal reports whether the status can no longer change
func (s OperationStatusValue) IsTerminal() bool {
	return s == OperationStatusCompleted || s == OperationStatusFailed || s == OperationStatusCancelled
}

// OperationState represents the complete state of a operation execution
type OperationState struct {
	mu sync.RWMutex

	ID        string               `json:"id"`
	Status    OperationStatusValue `json:"status"`
	StartTime time.Time            `json:"start_time"`
	EndTime   *time.Time           `json:"end_time,omitempty"`

	Steps map[string]*StepState `json:"steps"`

	// Context passes data between steps
	Context map[string]interface{} `json:"-"`

	Error string `json:"error,omitempty"`

	cancel func()
}

// NewOperationState creates a new operation state
func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		Context:   make(map[string]interface{}),
	}
}

// Start marks the operation as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the operation as completed
func (p *OperationState) Complete() {
	p.finish(OperationStatusCompleted, nil)
}

// Fail marks the operation as failed
func (p *OperationState) Fail(err error) {
	p.finish(OperationStatusFailed, err)
}

// Cancel marks the operation as cancelled
func (p *OperationState) Cancel() {
	p.finish(OperationStatusCancelled, nil)
}

func (p *OperationState) finish(status OperationStatusValue, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Status.IsTerminal() {
		return
	}
	now := time.Now()
	p.EndTime = &now
	p.Status = status
	if err != nil {
		p.Error = err.Error()
	}
}

func (p *OperationState) setCancel(cancel func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancel = cancel
}

// requestCancel cancels the operation's context if it is running
func (p *OperationState) requestCancel() {
	p.mu.RLock()
	cancel := p.cancel
	p.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// GetStatus returns the operation status
func (p *OperationState) GetStatus() OperationStatusValue {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// GetStage returns the state of a specific Step
func (p *OperationState) GetStage(stageID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Steps[stageID]
}

// SetStage updates the state of a specific Step
func (p *OperationState) SetStage(stageID string, state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Steps[stageID] = state
}

// GetContext retrieves a value from the operation context
func (p *OperationState) GetContext(key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.Context[key]
	return val, ok
}

// SetContext sets a value in the operation context
func (p *OperationState) SetContext(key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Context[key] = value
}

// RunDate returns the day the run reports on
func (p *OperationState) RunDate() time.Time {
	v, _ := p.GetContext(ContextKeyRunDate)
	day, _ := v.(time.Time)
	return day
}

// Table returns the extracted wide table, if any
func (p *OperationState) Table() *domain.WideTable {
	v, _ := p.GetContext(ContextKeyTable)
	table, _ := v.(*domain.WideTable)
	return table
}

// Report returns the transformed report, if any
func (p *OperationState) Report() *domain.BatchReport {
	v, _ := p.GetContext(ContextKeyReport)
	report, _ := v.(*domain.BatchReport)
	return report
}

// Artifacts returns the files written by the export step
func (p *OperationState) Artifacts() []string {
	v, _ := p.GetContext(ContextKeyArtifacts)
	paths, _ := v.([]string)
	return paths
}

// Duration returns the duration of the operation execution
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}

// Clone copies the state without its context
func (p *OperationState) Clone() *OperationState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	clone := &OperationState{
		ID:        p.ID,
		Status:    p.Status,
		StartTime: p.StartTime,
		Steps:     make(map[string]*StepState, len(p.Steps)),
		Context:   make(map[string]interface{}),
		Error:     p.Error,
	}
	if p.EndTime != nil {
		end := *p.EndTime
		clone.EndTime = &end
	}
	for k, v := range p.Steps {
		clone.Steps[k] = v.clone()
	}
	return clone
}
