package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"tankevents/internal/config"
	"tankevents/internal/errors"
	"tankevents/internal/infrastructure"
	"tankevents/pkg/contracts/domain"
)

// Workbook sheet names
const (
	EventsSheet = "Events"
	GCASSheet   = "GCAS"
)

// WorkbookWriter writes the daily report as an XLSX workbook
type WorkbookWriter struct {
	paths  config.PathsConfig
	logger *slog.Logger
}

// NewWorkbookWriter creates a workbook writer
func NewWorkbookWriter(paths config.PathsConfig, logger *slog.Logger) *WorkbookWriter {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &WorkbookWriter{paths: paths, logger: infrastructure.WithComponent(logger, "exporter")}
}

// Write saves the report's records and density summary to the run date's workbook and returns its path
func (w *WorkbookWriter) Write(date time.Time, report *domain.BatchReport) (string, error) {
	path := w.paths.DailyResultsWorkbook(date)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", errors.NewStorageError("failed to create directory", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", errors.NewStorageError("failed to create header style", err)
	}

	if err := f.SetSheetName("Sheet1", EventsSheet); err != nil {
		return "", errors.NewStorageError("failed to rename sheet", err)
	}
	events := make([][]interface{}, len(report.Records))
	for i, r := range report.Records {
		events[i] = resultValues(r)
	}
	if err := writeSheet(f, EventsSheet, ResultHeaders, events, header); err != nil {
		return "", err
	}

	if _, err := f.NewSheet(GCASSheet); err != nil {
		return "", errors.NewStorageError("failed to add sheet", err)
	}
	density := make([][]interface{}, len(report.Density))
	for i, d := range report.Density {
		density[i] = densityValues(d)
	}
	if err := writeSheet(f, GCASSheet, DensityHeaders, density, header); err != nil {
		return "", err
	}

	if err := f.SaveAs(path); err != nil {
		return "", errors.NewStorageError(fmt.Sprintf("failed to save %s", path), err)
	}

	w.logger.Info("Workbook written",
		slog.String("path", path),
		slog.Int("events", len(report.Records)),
		slog.Int("density_rows", len(report.Density)))
	return path, nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}, headerStyle int) error {
	headerRow := make([]interface{}, len(headers))
	for i, h := range headers {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return errors.NewStorageError("failed to write header row", err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return errors.NewStorageError("bad header range", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return errors.NewStorageError("failed to style header row", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.NewStorageError("bad cell reference", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.NewStorageError(fmt.Sprintf("failed to write row %d of %s", i+1, sheet), err)
		}
	}
	return nil
}
