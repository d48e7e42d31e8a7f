package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		yaml        string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults with no file and no env",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "Lima", cfg.Report.Site)
				assert.Equal(t, 1702, cfg.Report.PlantCode)
				assert.Equal(t, 20.0, cfg.Report.MinEventMinutes)
				assert.Equal(t, 79000.0, cfg.Report.RailCarCapacity)
				assert.Equal(t, 122506.0, cfg.Report.UngroundedTanks["12"])
				assert.Len(t, cfg.Report.UngroundedTanks, 14)
				assert.Equal(t, "raw", cfg.Historian.Mode)
				assert.Equal(t, 2*time.Minute, cfg.Historian.SampleInterval)
			},
		},
		{
			name: "yaml file overrides defaults",
			yaml: `
server:
  port: 9090
  read_timeout: 5s
report:
  site: Toledo
  workers: 4
paths:
  data_dir: /srv/btf
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "Toledo", cfg.Report.Site)
				assert.Equal(t, 4, cfg.Report.Workers)
				assert.Equal(t, filepath.Join("/srv/btf", DefaultRosterFileName), cfg.Paths.RosterFile())
			},
		},
		{
			name: "environment overrides file",
			yaml: "report:\n  site: Toledo\n",
			env: map[string]string{
				"TANKEVENTS_REPORT_SITE":               "Lima East",
				"TANKEVENTS_REPORT_UNGROUNDED_TANKS":   "A1:100,B2:250.5",
				"TANKEVENTS_HISTORIAN_MAX_CONCURRENCY": "3",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "Lima East", cfg.Report.Site)
				assert.Equal(t, map[string]float64{"A1": 100, "B2": 250.5}, cfg.Report.UngroundedTanks)
				assert.Equal(t, 3, cfg.Historian.MaxConcurrency)
			},
		},
		{
			name: "legacy historian variables",
			env: map[string]string{
				"client_id":     "btf-client",
				"client_secret": "s3cret",
				"ion_username":  "svc-btf",
				"ion_password":  "pw",
				"server":        "historian.plant.local",
				"token_url":     "https://uaa.plant.local/oauth/token",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "btf-client", cfg.Historian.ClientID)
				assert.Equal(t, "svc-btf", cfg.Historian.Username)
				assert.Equal(t, "https://historian.plant.local:443/historian-rest-api/v1", cfg.Historian.BaseURL())
				assert.NoError(t, cfg.Historian.ValidateCredentials())
			},
		},
		{
			name:    "invalid logging output",
			env:     map[string]string{"TANKEVENTS_LOGGING_OUTPUT": "syslog"},
			wantErr: true,
		},
		{
			name:    "invalid historian mode",
			yaml:    "historian:\n  mode: streaming\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			yaml:    "server: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.yaml != "" {
				path = filepath.Join(t.TempDir(), "config.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))
			}

			cfg, err := LoadFrom(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestHistorianConfig_ValidateCredentials(t *testing.T) {
	h := Default().Historian
	err := h.ValidateCredentials()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "historian credentials")
}

func TestHistorianConfig_TokenEndpoint(t *testing.T) {
	h := HistorianConfig{Server: "historian.plant.local", TokenURL: "https://{}/uaa/oauth/token"}
	assert.Equal(t, "https://historian.plant.local/uaa/oauth/token", h.TokenEndpoint())

	h.TokenURL = "https://uaa.plant.local/oauth/token"
	assert.Equal(t, h.TokenURL, h.TokenEndpoint())
}

func TestValidate_NormalizesConsoleOutput(t *testing.T) {
	cfg := Default()
	cfg.Logging.Output = "console"
	cfg.Logging.FilePath = ""

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Empty(t, cfg.Logging.FilePath)
}

func TestPathsConfig(t *testing.T) {
	date := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	p := PathsConfig{DataDir: "data", RosterName: "Tags Mapping.csv", TagsName: "/etc/btf/T2 Tags.csv"}

	assert.Equal(t, filepath.Join("data", "Tags Mapping.csv"), p.RosterFile())
	assert.Equal(t, "/etc/btf/T2 Tags.csv", p.TagsFile())
	assert.Equal(t, filepath.Join("data", "Daily Results 2024-03-09.csv"), p.DailyResultsCSV(date))
	assert.Equal(t, filepath.Join("data", "Daily Results 2024-03-09.xlsx"), p.DailyResultsWorkbook(date))

	p.OutputDir = "out"
	assert.Equal(t, filepath.Join("out", "GCAS Density 2024-03-09.csv"), p.DensitySummaryCSV(date))
	assert.Equal(t, filepath.Join("out", "Raw Data 2024-03-09.csv"), p.RawExtractCSV(date))
}

func TestPathsConfig_EnsureDirectories(t *testing.T) {
	root := t.TempDir()
	p := PathsConfig{
		DataDir:   filepath.Join(root, "data"),
		OutputDir: filepath.Join(root, "out"),
		LogsDir:   filepath.Join(root, "logs"),
	}

	require.NoError(t, p.EnsureDirectories())
	assert.True(t, FileExists(p.DataDir))
	assert.True(t, FileExists(p.OutputDir))
	assert.True(t, FileExists(p.LogsDir))
}
