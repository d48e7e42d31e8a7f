package exporter

import (
	"math"
	"strconv"
	"time"
)

// TimeLayout is the timestamp layout of every exported time column
const TimeLayout = "2006-01-02 15:04:05"

// formatFloat formats with the shortest representation that round-trips; NaN and Inf are empty cells
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimeLayout)
}

// cellValue is the workbook form of a float: nil leaves the cell empty
func cellValue(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
