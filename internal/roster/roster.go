// Package roster loads the tank roster and the historian tag mapping.
package roster

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"

	"tankevents/internal/errors"
	"tankevents/pkg/contracts/domain"
)

// Roster column headers
const (
	headerTank       = "tank"
	headerExtraPumps = "extra pumps"
)

// extraPumpSeparator splits the Extra Pumps cell
const extraPumpSeparator = ","

var validate = validator.New()

// header maps lower-cased, trimmed header names to their index
type header map[string]int

func newHeader(names []string) header {
	h := make(header, len(names))
	for i, name := range names {
		name = strings.TrimPrefix(name, "\ufeff")
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return h
}

func (h header) require(names ...string) error {
	var missing []string
	for _, name := range names {
		if _, ok := h[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.NewDataShapeError(fmt.Sprintf("missing csv headers: %s", strings.Join(missing, ", ")))
	}
	return nil
}

func (h header) get(record []string, name string) string {
	if idx, ok := h[name]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

func readAll(r io.Reader) (header, [][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	names, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil, errors.NewDataShapeError("csv file is empty")
		}
		return nil, nil, errors.NewParsingError("failed to read csv header", err)
	}
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, errors.NewParsingError("failed to read csv records", err)
	}
	return newHeader(names), records, nil
}

func openCSV(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(path)
		}
		return nil, errors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	return f, nil
}

// LoadTanks reads the tank roster file. See ParseTanks.
func LoadTanks(path string, ungrounded map[string]float64) ([]domain.TankDefinition, error) {
	f, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTanks(f, ungrounded)
}

// ParseTanks reads a roster with a Tank column and an optional Extra Pumps column holding
// comma separated pump column names. Tanks listed in ungrounded get their fixed constant.
// Rows keep file order; blank tank ids are skipped and a repeated id is an error.
func ParseTanks(r io.Reader, ungrounded map[string]float64) ([]domain.TankDefinition, error) {
	h, records, err := readAll(r)
	if err != nil {
		return nil, err
	}
	if err := h.require(headerTank); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(records))
	tanks := make([]domain.TankDefinition, 0, len(records))
	for i, record := range records {
		id := h.get(record, headerTank)
		if id == "" {
			continue
		}
		if seen[id] {
			return nil, errors.NewAppValidationError(fmt.Sprintf("line %d: tank %s listed twice", i+2, id))
		}
		seen[id] = true

		tank := domain.TankDefinition{
			ID:                 id,
			ExtraPumps:         splitPumps(h.get(record, headerExtraPumps)),
			UngroundedConstant: ungrounded[id],
		}
		if err := validate.Struct(tank); err != nil {
			return nil, errors.NewAppValidationError(fmt.Sprintf("line %d: %v", i+2, err))
		}
		tanks = append(tanks, tank)
	}

	if len(tanks) == 0 {
		return nil, errors.NewDataShapeError("tank roster lists no tanks")
	}
	return tanks, nil
}

func splitPumps(cell string) []string {
	if cell == "" || strings.EqualFold(cell, "nan") {
		return nil
	}
	var pumps []string
	for _, p := range strings.Split(cell, extraPumpSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			pumps = append(pumps, p)
		}
	}
	return pumps
}
