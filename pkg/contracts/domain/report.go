package domain

import (
	"time"
)

// TankResult is the outcome of processing one tank. Exactly one of Events or Err is meaningful.
type TankResult struct {
	Tank     string           `json:"tank"`
	Events   []EventRecord    `json:"events,omitempty"`
	Density  []DensitySummary `json:"density,omitempty"`
	Rows     int              `json:"rows"`
	Duration time.Duration    `json:"duration"`
	Err      error            `json:"-"`
}

// Failed reports whether the tank was skipped
func (r TankResult) Failed() bool {
	return r.Err != nil
}

// TankFailure records a skipped tank
type TankFailure struct {
	Tank    string `json:"tank"`
	Message string `json:"message"`
}

// BatchReport is the fold of all tank results of one run
type BatchReport struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Records     []ResultRecord   `json:"records"`
	Density     []DensitySummary `json:"density"`
	Failures    []TankFailure    `json:"failures,omitempty"`

	TanksProcessed int `json:"tanks_processed"`
	TanksFailed    int `json:"tanks_failed"`
	EventsDropped  int `json:"events_dropped"`
}
