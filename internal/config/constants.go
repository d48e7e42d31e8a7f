package config

import "time"

// Application constants
const (
	AppName    = "tankevents"
	AppVersion = "1.0.0"

	// Reporting defaults
	DefaultSite            = "Lima"
	DefaultPlantCode       = 1702
	DefaultMinEventMinutes = 20.0
	DefaultRailCarCapacity = 79000.0
	KilogramsPerMetricTon  = 1000.0

	// File names inside the data directory
	DefaultRosterFileName = "Tags Mapping.csv"
	DefaultTagsFileName   = "T2 Tags.csv"

	// Historian defaults
	DefaultHistorianTimeout  = 60 * time.Second
	DefaultHistorianRPS      = 20.0
	DefaultHistorianBurst    = 10
	DefaultHistorianParallel = 8
	DefaultSampleInterval    = 2 * time.Minute

	// Operation timeouts
	DefaultOperationTimeout = 2 * time.Hour
	ExtractTimeout          = 30 * time.Minute
	TransformTimeout        = 10 * time.Minute
	ExportTimeout           = 5 * time.Minute
)

// DefaultUngroundedTanks maps the ungrounded tanks to their fixed kilograms per level percent.
func DefaultUngroundedTanks() map[string]float64 {
	return map[string]float64{
		"12":    122506,
		"8944":  156692,
		"8945":  217054,
		"2230E": 25374,
		"2230W": 25965,
		"2232E": 29767,
		"2232W": 26286,
		"2633E": 32914,
		"2633W": 32914,
		"30C":   25815,
		"30E":   21822,
		"30W":   21585,
		"40E":   35015,
		"40W":   34858,
	}
}
