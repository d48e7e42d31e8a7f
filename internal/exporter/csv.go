package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tankevents/internal/config"
	"tankevents/internal/errors"
	"tankevents/internal/infrastructure"
	"tankevents/pkg/contracts/domain"
)

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	paths  config.PathsConfig
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(paths config.PathsConfig, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &CSVWriter{paths: paths, logger: infrastructure.WithComponent(logger, "exporter")}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // UTF-8 BOM so Excel detects the encoding
}

// WriteCSV writes data to a CSV file, replacing any existing file.
// Relative paths resolve against the output directory.
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) (string, error) {
	fullPath := w.resolvePath(filePath)

	w.logger.Info("Writing CSV file",
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", errors.NewStorageError("failed to create directory", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", errors.NewStorageError(fmt.Sprintf("failed to create %s", fullPath), err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return "", errors.NewStorageError("failed to write BOM", err)
		}
	}

	writer := csv.NewWriter(file)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return "", errors.NewStorageError("failed to write headers", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return "", errors.NewStorageError(fmt.Sprintf("failed to write record %d", i), err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", errors.NewStorageError("failed to flush CSV", err)
	}
	if err := file.Close(); err != nil {
		return "", errors.NewStorageError("failed to close CSV", err)
	}
	return fullPath, nil
}

// WriteDailyResults writes the Daily Results CSV of a run date and returns its path
func (w *CSVWriter) WriteDailyResults(date time.Time, records []domain.ResultRecord) (string, error) {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = toStrings(resultValues(r))
	}
	return w.WriteCSV(w.paths.DailyResultsCSV(date), WriteOptions{
		Headers: ResultHeaders,
		Records: rows,
	})
}

// WriteGCASSummary writes the GCAS density summary CSV of a run date and returns its path
func (w *CSVWriter) WriteGCASSummary(date time.Time, rows []domain.DensitySummary) (string, error) {
	records := make([][]string, len(rows))
	for i, d := range rows {
		records[i] = toStrings(densityValues(d))
	}
	return w.WriteCSV(w.paths.DensitySummaryCSV(date), WriteOptions{
		Headers: DensityHeaders,
		Records: records,
	})
}

func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || filepath.Dir(filePath) != "." {
		return filePath
	}
	return filepath.Join(w.paths.Output(), filePath)
}
