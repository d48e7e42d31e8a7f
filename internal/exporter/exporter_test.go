package exporter

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tankevents/internal/config"
	"tankevents/internal/infrastructure"
	"tankevents/pkg/contracts/domain"
)

var runDate = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func testPaths(t *testing.T) config.PathsConfig {
	t.Helper()
	dir := t.TempDir()
	return config.PathsConfig{DataDir: dir, OutputDir: filepath.Join(dir, "out")}
}

func unloadingRecord() domain.ResultRecord {
	start := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC)
	return domain.ResultRecord{
		EventID:          start,
		Duration:         "1 hours 30 minutes",
		TimeFirst:        start,
		TimeLast:         start.Add(80 * time.Minute),
		Level:            domain.Stats{Mean: 45.5, Min: 40, Max: 51.25},
		Temperature:      domain.Stats{Mean: 30, Min: math.NaN(), Max: 31},
		Seconds:          5400,
		TotalVolume:      122.506,
		EventRateApprox:  54.447,
		Minutes:          90,
		Hours:            1.5,
		Quantity:         79,
		EventRatePerHour: 52.666,
		EventRatePerMin:  0.8777,
		Type:             domain.EventTypeUnloading,
		Tank:             "2631",
		RailCars:         1,
		DischargePumpPct: 0,
		Week:             "10",
		Site:             "Lima",
		PlantCode:        1702,
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVWriter_WriteDailyResults(t *testing.T) {
	paths := testPaths(t)
	w := NewCSVWriter(paths, infrastructure.NewLogger(io.Discard, "error"))

	path, err := w.WriteDailyResults(runDate, []domain.ResultRecord{unloadingRecord()})
	require.NoError(t, err)
	assert.Equal(t, paths.DailyResultsCSV(runDate), path)
	assert.Equal(t, "Daily Results 2024-03-10.csv", filepath.Base(path))

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, ResultHeaders, rows[0])
	assert.Len(t, rows[0], 25)

	row := rows[1]
	cell := func(name string) string {
		for i, h := range rows[0] {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("no column %q", name)
		return ""
	}
	assert.Equal(t, "2024-03-10 06:00:00", cell("Event_Id"))
	assert.Equal(t, "1 hours 30 minutes", cell("Time (Duration)"))
	assert.Equal(t, "2024-03-10 07:20:00", cell("Time (Last)"))
	assert.Equal(t, "51.25", cell("Level (Max*)"))
	assert.Equal(t, "", cell("Temp. (Min*)"))
	assert.Equal(t, "5400", cell("Seconds"))
	assert.Equal(t, "122.506", cell("Total Volume"))
	assert.Equal(t, "Unloading", cell("Event Type"))
	assert.Equal(t, "1", cell("TFMEUnloadSpotRail"))
	assert.Equal(t, "10", cell("TFMEWeek_"))
	assert.Equal(t, "Lima", cell("Site"))
	assert.Equal(t, "1702", cell("Plant Code"))
}

func TestCSVWriter_EmptyReportHasHeader(t *testing.T) {
	w := NewCSVWriter(testPaths(t), infrastructure.NewLogger(io.Discard, "error"))

	path, err := w.WriteDailyResults(runDate, nil)
	require.NoError(t, err)
	rows := readCSV(t, path)
	require.Len(t, rows, 1)
	assert.Equal(t, ResultHeaders, rows[0])
}

func TestCSVWriter_WriteGCASSummary(t *testing.T) {
	paths := testPaths(t)
	w := NewCSVWriter(paths, infrastructure.NewLogger(io.Discard, "error"))

	day := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	path, err := w.WriteGCASSummary(runDate, []domain.DensitySummary{{
		Tank:            "12",
		Day:             day,
		OnePercentDelta: domain.Stats{Mean: 1200, Min: 1100, Max: 1300},
		UsableVolume:    domain.Stats{Mean: 120000, Min: 110000, Max: 130000},
		DensityMean:     1.05,
		Year:            2024,
		Month:           3,
		DayOfMonth:      9,
	}})
	require.NoError(t, err)
	assert.Equal(t, "GCAS Density 2024-03-10.csv", filepath.Base(path))

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, DensityHeaders, rows[0])
	assert.Equal(t, []string{"12", "2024-03-09", "1200", "120000", "110000", "1100", "1300", "130000", "1.05", "2024", "3", "9"}, rows[1])
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	paths := testPaths(t)
	w := NewCSVWriter(paths, nil)

	path, err := w.WriteCSV("notes.csv", WriteOptions{
		Headers:   []string{"a", "b"},
		Records:   [][]string{{"1", "x,y"}},
		BOMPrefix: true,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(paths.Output(), "notes.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\ufeffa,b\n1,\"x,y\"\n", string(data))
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1.5, "1.5"},
		{0.1 + 0.2, "0.30000000000000004"},
		{-3, "-3"},
		{122506, "122506"},
		{math.NaN(), ""},
		{math.Inf(1), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatFloat(tt.in))
	}
	assert.Equal(t, "", formatTime(time.Time{}))
}

func TestWorkbookWriter_Write(t *testing.T) {
	paths := testPaths(t)
	w := NewWorkbookWriter(paths, infrastructure.NewLogger(io.Discard, "error"))

	report := &domain.BatchReport{
		Records: []domain.ResultRecord{unloadingRecord()},
		Density: []domain.DensitySummary{{Tank: "12", Day: runDate, Year: 2024, Month: 3, DayOfMonth: 10, DensityMean: 1.02}},
	}
	path, err := w.Write(runDate, report)
	require.NoError(t, err)
	assert.Equal(t, "Daily Results 2024-03-10.xlsx", filepath.Base(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{EventsSheet, GCASSheet}, f.GetSheetList())

	rows, err := f.GetRows(EventsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ResultHeaders, rows[0])
	assert.Equal(t, "2631", rows[1][19])
	assert.Equal(t, "Unloading", rows[1][18])

	styleID, err := f.GetCellStyle(EventsSheet, "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)

	gcas, err := f.GetRows(GCASSheet)
	require.NoError(t, err)
	require.Len(t, gcas, 2)
	assert.Equal(t, "12", gcas[1][0])
	assert.Equal(t, "2024-03-10", gcas[1][1])
}
