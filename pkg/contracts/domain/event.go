package domain

import (
	"time"
)

// EventType classifies an event by pump state
type EventType string

const (
	EventTypeDischarge EventType = "Discharge"
	EventTypeUnloading EventType = "Unloading"
)

// Pump states
const (
	PumpStopped = 0
	PumpRunning = 1
)

// EventTypeForState maps a pump state to its event type
func EventTypeForState(state int) (EventType, bool) {
	switch state {
	case PumpStopped:
		return EventTypeDischarge, true
	case PumpRunning:
		return EventTypeUnloading, true
	default:
		return "", false
	}
}

// Stats holds the mean, min and max of one channel over an event
type Stats struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// EventSummary is one aggregated event group
type EventSummary struct {
	EventID   time.Time `json:"event_id"`
	Type      EventType `json:"type"`
	TimeFirst time.Time `json:"time_first"`
	TimeLast  time.Time `json:"time_last"`
	Rows      int       `json:"rows"`

	// Until is the first timestamp of the following event, or TimeLast for the final event of a series
	Until time.Time `json:"until"`

	Level       Stats `json:"level"`
	LevelROC    Stats `json:"level_roc"`
	Temperature Stats `json:"temperature"`

	TotalVolume         float64 `json:"total_volume"`
	OnePercentDeltaMean float64 `json:"one_percent_delta_mean"`
	DensityMean         float64 `json:"density_mean"`
	DischargeOutputMean float64 `json:"discharge_output_mean"`
}

// EventRecord is a summarized event with its durations, quantity and rates.
// Mass-denominated fields are in kilograms.
type EventRecord struct {
	EventSummary

	Tank     string `json:"tank"`
	Duration string `json:"duration"`

	Seconds float64 `json:"seconds"`
	Minutes float64 `json:"minutes"`
	Hours   float64 `json:"hours"`

	EventRateApprox  float64 `json:"event_rate_approx"`
	EventRate        float64 `json:"event_rate"`
	EventRatePerMin  float64 `json:"event_rate_per_min"`
	EventRatePerHour float64 `json:"event_rate_per_hour"`
	Quantity         float64 `json:"quantity"`

	// RailCars is set for unloading events only
	RailCars *float64 `json:"rail_cars,omitempty"`
}

// ResultRecord is one reported row. Mass-denominated fields are in metric tons.
type ResultRecord struct {
	EventID   time.Time `json:"event_id"`
	Duration  string    `json:"duration"`
	TimeFirst time.Time `json:"time_first"`
	TimeLast  time.Time `json:"time_last"`

	Level       Stats `json:"level"`
	Temperature Stats `json:"temperature"`

	Seconds          float64   `json:"seconds"`
	TotalVolume      float64   `json:"total_volume"`
	EventRateApprox  float64   `json:"event_rate_approx"`
	Minutes          float64   `json:"minutes"`
	Hours            float64   `json:"hours"`
	Quantity         float64   `json:"quantity"`
	EventRatePerHour float64   `json:"event_rate_per_hour"`
	EventRatePerMin  float64   `json:"event_rate_per_min"`
	Type             EventType `json:"event_type"`
	Tank             string    `json:"tank"`
	RailCars         float64   `json:"rail_cars"`
	DischargePumpPct float64   `json:"discharge_pump_pct"`
	Week             string    `json:"week"`
	Site             string    `json:"site"`
	PlantCode        int       `json:"plant_code"`
}

// DensitySummary is one row of the daily GCAS density summary for a tank
type DensitySummary struct {
	Tank            string    `json:"tank"`
	Day             time.Time `json:"day"`
	OnePercentDelta Stats     `json:"one_percent_delta"`
	UsableVolume    Stats     `json:"usable_volume"`
	DensityMean     float64   `json:"density_mean"`
	Year            int       `json:"year"`
	Month           int       `json:"month"`
	DayOfMonth      int       `json:"day_of_month"`
}
