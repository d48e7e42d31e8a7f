package roster

import (
	"fmt"
	"io"

	"tankevents/internal/errors"
	"tankevents/pkg/contracts/domain"
)

// Tag mapping column headers
const (
	headerTankNumber  = "tank number"
	headerTemperature = "tit"
	headerLevel       = "lit"
	headerPump        = "unload pump"
	headerDensity     = "density"
	headerMass        = "kilo"
	headerGCAS        = "gcas"
	headerDischarge   = "discharge"
)

// TagMapping holds the historian tag names of one tank's channels
type TagMapping struct {
	Tank        string `json:"tank" validate:"required"`
	Temperature string `json:"temperature"`
	Level       string `json:"level"`
	Pump        string `json:"pump"`
	Density     string `json:"density"`
	Mass        string `json:"mass"`
	GCAS        string `json:"gcas"`
	Discharge   string `json:"discharge,omitempty"`
}

// ColumnTag pairs a historian tag with the wide-table column it is stored under
type ColumnTag struct {
	Tag    string
	Column string
}

// Columns returns the tank's non-empty tags with their wide-table column names
func (m TagMapping) Columns() []ColumnTag {
	cols := domain.TankDefinition{ID: m.Tank}.Columns()
	all := []ColumnTag{
		{m.Temperature, cols.Temperature},
		{m.Level, cols.Level},
		{m.Pump, cols.Pump},
		{m.Density, cols.Density},
		{m.Mass, cols.Mass},
		{m.GCAS, cols.GCAS},
		{m.Discharge, cols.Discharge},
	}
	out := all[:0]
	for _, c := range all {
		if c.Tag != "" {
			out = append(out, c)
		}
	}
	return out
}

// LoadTags reads the tag mapping file. See ParseTags.
func LoadTags(path string) ([]TagMapping, error) {
	f, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTags(f)
}

// ParseTags reads the tag mapping with columns Tank number, tIT, LIT, Unload Pump, Density, Kilo, GCAS
// and an optional Discharge column.
func ParseTags(r io.Reader) ([]TagMapping, error) {
	h, records, err := readAll(r)
	if err != nil {
		return nil, err
	}
	if err := h.require(headerTankNumber, headerTemperature, headerLevel, headerPump, headerDensity, headerMass, headerGCAS); err != nil {
		return nil, err
	}

	mappings := make([]TagMapping, 0, len(records))
	for i, record := range records {
		m := TagMapping{
			Tank:        h.get(record, headerTankNumber),
			Temperature: h.get(record, headerTemperature),
			Level:       h.get(record, headerLevel),
			Pump:        h.get(record, headerPump),
			Density:     h.get(record, headerDensity),
			Mass:        h.get(record, headerMass),
			GCAS:        h.get(record, headerGCAS),
			Discharge:   h.get(record, headerDischarge),
		}
		if m.Tank == "" {
			continue
		}
		if err := validate.Struct(m); err != nil {
			return nil, errors.NewAppValidationError(fmt.Sprintf("line %d: %v", i+2, err))
		}
		mappings = append(mappings, m)
	}
	if len(mappings) == 0 {
		return nil, errors.NewDataShapeError("tag mapping lists no tanks")
	}
	return mappings, nil
}
