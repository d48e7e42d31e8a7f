package operations

import (
	"time"
)

// Config represents the operation execution configuration
type Config struct {
	// Step-specific timeouts
	StageTimeouts map[string]time.Duration `json:"stage_timeouts"`

	// Retry configuration for retryable step errors
	RetryConfig RetryConfig `json:"retry_config"`

	// Whether to run later steps after a failure
	ContinueOnError bool `json:"continue_on_error"`

	// Completed runs kept for status queries
	HistorySize int `json:"history_size"`
}

// NewConfig returns the default operation configuration
func NewConfig() *Config {
	return &Config{
		StageTimeouts: map[string]time.Duration{
			StageIDExtract:   DefaultExtractTimeout,
			StageIDTransform: DefaultTransformTimeout,
			StageIDExport:    DefaultExportTimeout,
		},
		RetryConfig: NewRetryConfig(),
		HistorySize: 20,
	}
}

// GetStageTimeout returns the timeout for a specific Step
func (c *Config) GetStageTimeout(stageID string) time.Duration {
	if timeout, ok := c.StageTimeouts[stageID]; ok && timeout > 0 {
		return timeout
	}
	return DefaultStageTimeout
}

// SetStageTimeout sets the timeout for a specific Step
func (c *Config) SetStageTimeout(stageID string, timeout time.Duration) {
	if c.StageTimeouts == nil {
		c.StageTimeouts = make(map[string]time.Duration)
	}
	c.StageTimeouts[stageID] = timeout
}
