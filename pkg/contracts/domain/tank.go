package domain

import (
	"math"
	"sort"
	"time"
)

// Wide-table column naming. Every tank contributes its channels to a single table keyed by Time.
const (
	TimeColumn = "Time"

	levelPrefix     = "Level "
	tempPrefix      = "Temp. "
	densityPrefix   = "Density "
	massPrefix      = "Kilos "
	gcasPrefix      = "GCAS "
	dischargePrefix = "Discharge "
)

// TankDefinition is the static configuration of one monitored tank
type TankDefinition struct {
	ID         string   `json:"id" validate:"required"`
	ExtraPumps []string `json:"extra_pumps,omitempty"`

	// UngroundedConstant is the fixed mass per level percent of an ungrounded tank, 0 otherwise.
	UngroundedConstant float64 `json:"ungrounded_constant,omitempty" validate:"min=0"`
}

// IsUngrounded reports whether the tank uses a fixed volume constant instead of the density formula
func (t TankDefinition) IsUngrounded() bool {
	return t.UngroundedConstant > 0
}

// TankColumns lists the wide-table column names carrying a tank's channels
type TankColumns struct {
	Level       string
	Temperature string
	Density     string
	Mass        string
	GCAS        string
	Pump        string
	Discharge   string
}

// Columns returns the wide-table column names for this tank
func (t TankDefinition) Columns() TankColumns {
	return TankColumns{
		Level:       levelPrefix + t.ID,
		Temperature: tempPrefix + t.ID,
		Density:     densityPrefix + t.ID,
		Mass:        massPrefix + t.ID,
		GCAS:        gcasPrefix + t.ID,
		Pump:        t.ID,
		Discharge:   dischargePrefix + t.ID,
	}
}

// Required returns the columns a tank cannot be processed without
func (c TankColumns) Required() []string {
	return []string{c.Level, c.Temperature, c.Density, c.Mass, c.GCAS, c.Pump}
}

// Sample is one cleaned, timestamped row of a tank series.
// Float channels use NaN for a missing value.
type Sample struct {
	Time            time.Time `json:"time"`
	Level           float64   `json:"level"`
	Temperature     float64   `json:"temperature"`
	Density         float64   `json:"density"`
	Mass            float64   `json:"mass"`
	GCAS            float64   `json:"gcas"`
	PumpRunning     int       `json:"pump_running"`
	DischargeOutput float64   `json:"discharge_output"`

	// Derived channels
	LevelLag1       float64 `json:"level_lag1"`
	LevelROC        float64 `json:"level_roc"`
	OnePercentDelta float64 `json:"one_percent_delta"`
	UsableVolume    float64 `json:"usable_volume"`

	// EventID is the timestamp of the first row of the enclosing pump-state run
	EventID time.Time `json:"event_id"`
}

// WideTable is the joined extraction output: one Time column and one float column per tag.
type WideTable struct {
	Times   []time.Time          `json:"times"`
	Columns map[string][]float64 `json:"columns"`
}

// NewWideTable creates an empty table over the given timestamps
func NewWideTable(times []time.Time) *WideTable {
	return &WideTable{
		Times:   times,
		Columns: make(map[string][]float64),
	}
}

// Len returns the number of rows
func (w *WideTable) Len() int {
	return len(w.Times)
}

// Has reports whether a column exists
func (w *WideTable) Has(name string) bool {
	_, ok := w.Columns[name]
	return ok
}

// Column returns a column's values
func (w *WideTable) Column(name string) ([]float64, bool) {
	col, ok := w.Columns[name]
	return col, ok
}

// SetColumn stores a column. Short columns are padded with NaN.
func (w *WideTable) SetColumn(name string, values []float64) {
	col := make([]float64, len(w.Times))
	for i := range col {
		if i < len(values) {
			col[i] = values[i]
		} else {
			col[i] = math.NaN()
		}
	}
	w.Columns[name] = col
}

// NullColumn stores an all-NaN column
func (w *WideTable) NullColumn(name string) {
	w.SetColumn(name, nil)
}

// ColumnNames returns the column names sorted alphabetically, excluding Time
func (w *WideTable) ColumnNames() []string {
	names := make([]string, 0, len(w.Columns))
	for name := range w.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
