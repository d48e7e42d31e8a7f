package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PathsConfig contains file system paths configuration.
// Relative paths resolve against the working directory, matching how the batch job is deployed.
type PathsConfig struct {
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	OutputDir  string `yaml:"output_dir" envconfig:"OUTPUT_DIR"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
	RosterName string `yaml:"roster_file" envconfig:"ROSTER_FILE" validate:"required"`
	TagsName   string `yaml:"tags_file" envconfig:"TAGS_FILE" validate:"required"`
}

// RosterFile returns the tank roster CSV path
func (p PathsConfig) RosterFile() string {
	return p.inData(p.RosterName)
}

// TagsFile returns the historian tag mapping CSV path
func (p PathsConfig) TagsFile() string {
	return p.inData(p.TagsName)
}

// Output returns the directory reports are written to
func (p PathsConfig) Output() string {
	if p.OutputDir == "" {
		return p.DataDir
	}
	return p.OutputDir
}

// DailyResultsCSV returns the report path for a run date
func (p PathsConfig) DailyResultsCSV(date time.Time) string {
	return filepath.Join(p.Output(), fmt.Sprintf("Daily Results %s.csv", date.Format("2006-01-02")))
}

// DailyResultsWorkbook returns the workbook path for a run date
func (p PathsConfig) DailyResultsWorkbook(date time.Time) string {
	return filepath.Join(p.Output(), fmt.Sprintf("Daily Results %s.xlsx", date.Format("2006-01-02")))
}

// DensitySummaryCSV returns the GCAS density summary path for a run date
func (p PathsConfig) DensitySummaryCSV(date time.Time) string {
	return filepath.Join(p.Output(), fmt.Sprintf("GCAS Density %s.csv", date.Format("2006-01-02")))
}

// RawExtractCSV returns the path of the joined historian extract for a run date
func (p PathsConfig) RawExtractCSV(date time.Time) string {
	return filepath.Join(p.Output(), fmt.Sprintf("Raw Data %s.csv", date.Format("2006-01-02")))
}

// EnsureDirectories creates the data, output and log directories
func (p PathsConfig) EnsureDirectories() error {
	logger := slog.Default()
	for _, dir := range []string{p.DataDir, p.Output(), p.LogsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		logger.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

func (p PathsConfig) inData(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.DataDir, name)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
