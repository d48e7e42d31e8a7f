package services

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tankevents/internal/config"
	"tankevents/internal/dataprocessing"
	apperrors "tankevents/internal/errors"
	"tankevents/internal/infrastructure"
	"tankevents/internal/operations"
	"tankevents/pkg/contracts/domain"
)

// testConfig points the data directory at a temp dir holding a one-tank roster
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Paths.DataDir = dir
	cfg.Paths.OutputDir = filepath.Join(dir, "out")
	cfg.Paths.LogsDir = filepath.Join(dir, "logs")
	cfg.Report.Workbook = false
	require.NoError(t, os.WriteFile(cfg.Paths.RosterFile(), []byte("Tank,Extra Pumps\n2631,\n"), 0644))
	return cfg
}

// writeInput writes a small wide table for tank 2631 with one pump run
func writeInput(t *testing.T, path string) {
	t.Helper()
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, 48)
	pump := make([]float64, len(times))
	level := make([]float64, len(times))
	for i := range times {
		times[i] = day.Add(time.Duration(i) * 10 * time.Minute)
		level[i] = 50 + float64(i)
		if i >= 12 && i < 24 {
			pump[i] = 1
		}
	}

	tank := domain.TankDefinition{ID: "2631"}
	cols := tank.Columns()
	table := domain.NewWideTable(times)
	table.SetColumn(cols.Level, level)
	for _, name := range []string{cols.Temperature, cols.Density, cols.Mass, cols.GCAS} {
		table.SetColumn(name, constant(len(times), 1))
	}
	table.SetColumn(cols.Pump, pump)

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, dataprocessing.WriteWideTable(f, table))
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func newTestRunService(t *testing.T, cfg *config.Config) *RunService {
	t.Helper()
	svc, err := NewRunService(Dependencies{
		Config: cfg,
		Logger: infrastructure.NewLogger(io.Discard, "error"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = svc.Shutdown(context.Background())
	})
	return svc
}

func TestNewRunService(t *testing.T) {
	cfg := testConfig(t)
	svc := newTestRunService(t, cfg)

	assert.Equal(t, []domain.TankDefinition{{ID: "2631"}}, svc.Tanks())
	assert.False(t, svc.HistorianEnabled())
}

func TestNewRunService_MissingRoster(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()

	_, err := NewRunService(Dependencies{Config: cfg, Logger: infrastructure.NewLogger(io.Discard, "error")})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeNotFound, apperrors.TypeOf(err))
}

func TestNewRunService_HistorianConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.Historian.Server = "historian.plant.local"
	cfg.Historian.TokenURL = "https://{}/uaa/oauth/token"
	cfg.Historian.ClientID = "client"
	cfg.Historian.ClientSecret = "secret"
	cfg.Historian.Username = "user"
	cfg.Historian.Password = "pass"

	t.Run("without tag mapping", func(t *testing.T) {
		svc := newTestRunService(t, cfg)
		assert.False(t, svc.HistorianEnabled())
	})

	t.Run("with tag mapping", func(t *testing.T) {
		tags := "Tank number,tIT,LIT,Unload Pump,Density,Kilo,GCAS\n" +
			"2631,T2631.TT,T2631.LT,P2631.RUN,T2631.DEN,T2631.KG,T2631.GCAS\n"
		require.NoError(t, os.WriteFile(cfg.Paths.TagsFile(), []byte(tags), 0644))

		svc := newTestRunService(t, cfg)
		assert.True(t, svc.HistorianEnabled())
	})
}

func TestRunService_ExecuteRun(t *testing.T) {
	cfg := testConfig(t)
	writeInput(t, filepath.Join(cfg.Paths.DataDir, "wide.csv"))
	svc := newTestRunService(t, cfg)

	resp, err := svc.ExecuteRun(context.Background(), RunRequest{Date: "2024-03-10", Input: "wide.csv"})
	require.NoError(t, err)
	assert.Equal(t, operations.OperationStatusCompleted, resp.Status)
	require.Len(t, resp.Artifacts, 2)
	for _, path := range resp.Artifacts {
		assert.FileExists(t, path)
	}

	summary, report, ok := svc.LatestReport()
	require.True(t, ok)
	assert.Equal(t, "2024-03-10", summary.RunDate)
	assert.NotNil(t, report)

	got, err := svc.GetRun(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, got.ID)
	assert.Len(t, svc.ListRuns(), 1)
}

func TestRunService_StartRun(t *testing.T) {
	cfg := testConfig(t)
	input := filepath.Join(cfg.Paths.DataDir, "wide.csv")
	writeInput(t, input)
	svc := newTestRunService(t, cfg)

	id, err := svc.StartRun(context.Background(), RunRequest{Date: "2024-03-10", Input: input})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		run, err := svc.GetRun(id)
		return err == nil && run.Status.IsTerminal()
	}, 10*time.Second, 10*time.Millisecond)

	run, err := svc.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, operations.OperationStatusCompleted, run.Status)

	err = svc.CancelRun(id)
	assert.Equal(t, operations.ErrorTypeInvalidState, operations.GetErrorType(err))
	assert.ErrorIs(t, svc.CancelRun("missing"), operations.ErrOperationNotFound)
}

func TestRunService_RequestValidation(t *testing.T) {
	cfg := testConfig(t)
	svc := newTestRunService(t, cfg)

	tests := []struct {
		name string
		req  RunRequest
	}{
		{"bad date", RunRequest{Date: "10/03/2024", Input: "wide.csv"}},
		{"missing input", RunRequest{Date: "2024-03-10", Input: "absent.csv"}},
		{"no input without historian", RunRequest{Date: "2024-03-10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ExecuteRun(context.Background(), tt.req)
			require.Error(t, err)
			assert.Equal(t, apperrors.ErrTypeValidation, apperrors.TypeOf(err))
		})
	}
	assert.Empty(t, svc.ListRuns())
}
