package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"tankevents/internal/errors"
	"tankevents/pkg/contracts/domain"
)

// TimeLayout is the timestamp format used when writing tables and reports
const TimeLayout = "2006-01-02 15:04:05"

var timeLayouts = []string{
	TimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
}

// ParseTime accepts the timestamp formats produced by the historian and by spreadsheet exports
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseValue converts a cell to a float. Booleans map to 0/1; blanks and anything unparseable are NaN.
func ParseValue(s string) float64 {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "na":
		return math.NaN()
	case "true", "on":
		return 1
	case "false", "off":
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// FormatValue renders a float for CSV output; NaN becomes an empty cell
func FormatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ReadWideTable parses a CSV whose header holds a Time column and one column per tag
func ReadWideTable(r io.Reader) (*domain.WideTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.NewDataShapeError("wide table is empty")
		}
		return nil, errors.NewParsingError("failed to read wide table header", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	timeIdx := -1
	for i, name := range header {
		header[i] = strings.TrimSpace(name)
		if strings.EqualFold(header[i], domain.TimeColumn) {
			timeIdx = i
		}
	}
	if timeIdx < 0 {
		return nil, errors.NewDataShapeError("wide table has no Time column")
	}

	var times []time.Time
	columns := make(map[string][]float64, len(header)-1)
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.NewParsingError(fmt.Sprintf("line %d", line), err)
		}
		if timeIdx >= len(record) || strings.TrimSpace(record[timeIdx]) == "" {
			continue
		}
		t, err := ParseTime(record[timeIdx])
		if err != nil {
			return nil, errors.NewParsingError(fmt.Sprintf("line %d", line), err)
		}
		times = append(times, t)
		for i, name := range header {
			if i == timeIdx || name == "" {
				continue
			}
			v := math.NaN()
			if i < len(record) {
				v = ParseValue(record[i])
			}
			columns[name] = append(columns[name], v)
		}
	}

	table := domain.NewWideTable(times)
	for name, values := range columns {
		table.SetColumn(name, values)
	}
	for i, name := range header {
		if i != timeIdx && name != "" && !table.Has(name) {
			table.NullColumn(name)
		}
	}
	return table, nil
}

// ReadWideTableFile opens and parses a wide-table CSV
func ReadWideTableFile(path string) (*domain.WideTable, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(path)
		}
		return nil, errors.NewStorageError("failed to open wide table", err)
	}
	defer f.Close()
	return ReadWideTable(f)
}

// WriteWideTable writes the table with Time first and the remaining columns sorted by name
func WriteWideTable(w io.Writer, table *domain.WideTable) error {
	writer := csv.NewWriter(w)
	names := table.ColumnNames()

	if err := writer.Write(append([]string{domain.TimeColumn}, names...)); err != nil {
		return errors.NewStorageError("failed to write wide table header", err)
	}
	row := make([]string, len(names)+1)
	for i, t := range table.Times {
		row[0] = t.Format(TimeLayout)
		for j, name := range names {
			row[j+1] = FormatValue(table.Columns[name][i])
		}
		if err := writer.Write(row); err != nil {
			return errors.NewStorageError("failed to write wide table row", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return errors.NewStorageError("failed to flush wide table", err)
	}
	return nil
}
