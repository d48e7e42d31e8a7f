package operations

import (
	"time"

	"tankevents/pkg/contracts/domain"
)

// Step identifiers
const (
	StageIDExtract   = "extract"
	StageIDTransform = "transform"
	StageIDExport    = "export"
)

// Step names
const (
	StageNameExtract   = "Historian Extraction"
	StageNameTransform = "Event Transformation"
	StageNameExport    = "Report Export"
)

// Context keys for operation state
const (
	ContextKeyRunDate      = "run_date"
	ContextKeyInputPath    = "input_path"
	ContextKeyTable        = "table"
	ContextKeyReport       = "report"
	ContextKeyArtifacts    = "artifacts"
	ContextKeyExtractStats = "extract_stats"
)

// WebSocket event types
const (
	EventTypeOperationSnapshot = "operation:snapshot"
	EventTypeTankProgress      = "operation:progress"
)

// Default timeouts
const (
	DefaultStageTimeout     = 30 * time.Minute
	DefaultExtractTimeout   = 20 * time.Minute
	DefaultTransformTimeout = 10 * time.Minute
	DefaultExportTimeout    = 5 * time.Minute
)

// RetryConfig defines retry behavior for steps
type RetryConfig struct {
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
}

// NewRetryConfig returns the default retry configuration
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// OperationRequest asks for one run. A zero Date means yesterday; a non-empty InputPath
// reads the wide table from that CSV instead of the historian.
type OperationRequest struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	InputPath string    `json:"input_path,omitempty"`
}

// OperationResponse represents the response from a operation execution
type OperationResponse struct {
	ID        string                `json:"id"`
	Status    OperationStatusValue  `json:"status"`
	Progress  int                   `json:"progress"`
	Duration  time.Duration         `json:"duration"`
	Steps     map[string]*StepState `json:"steps"`
	Artifacts []string              `json:"artifacts,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// ReportSummary describes a completed report without its records
type ReportSummary struct {
	OperationID    string               `json:"operation_id"`
	RunDate        string               `json:"run_date"`
	GeneratedAt    time.Time            `json:"generated_at"`
	Records        int                  `json:"records"`
	DensityRows    int                  `json:"density_rows"`
	TanksProcessed int                  `json:"tanks_processed"`
	TanksFailed    int                  `json:"tanks_failed"`
	EventsDropped  int                  `json:"events_dropped"`
	Failures       []domain.TankFailure `json:"failures,omitempty"`
	Artifacts      []string             `json:"artifacts,omitempty"`
}
