// Package exporter writes the daily report files.
//
// CSVWriter produces the Daily Results CSV, one row per reported event in the fixed
// column order downstream dashboards read, and the GCAS density summary CSV.
// WorkbookWriter produces the same two tables as sheets of one XLSX workbook.
//
// Example usage:
//
//	writer := exporter.NewCSVWriter(cfg.Paths, logger)
//	path, err := writer.WriteDailyResults(runDate, report.Records)
//
//	workbook := exporter.NewWorkbookWriter(cfg.Paths, logger)
//	path, err = workbook.Write(runDate, report)
package exporter
