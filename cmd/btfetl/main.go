package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tankevents/internal/config"
	"tankevents/internal/infrastructure"
	"tankevents/internal/services"
)

func main() {
	os.Exit(run())
}

// run executes one report and returns the process exit code. The run fails
// only when no upstream data could be loaded; per-tank failures are logged
// and reported in the summary.
func run() int {
	configPath := flag.String("config", "", "path to a YAML config file")
	input := flag.String("input", "", "wide-table CSV to process instead of extracting from the historian")
	date := flag.String("date", "", "run date as YYYY-MM-DD (defaults to yesterday)")
	logLevel := flag.String("log-level", "", "override the configured log level")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		return 1
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", slog.String("error", err.Error()))
		return 1
	}
	defer infrastructure.CloseLogFile()

	if err := cfg.Paths.EnsureDirectories(); err != nil {
		logger.Error("Failed to create directories", slog.String("error", err.Error()))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runs, err := services.NewRunService(services.Dependencies{Config: cfg, Logger: logger})
	if err != nil {
		logger.Error("Failed to initialize run service", slog.String("error", err.Error()))
		return 1
	}
	defer runs.Shutdown(context.Background())

	resp, err := runs.ExecuteRun(ctx, services.RunRequest{Date: *date, Input: *input})
	if err != nil {
		logger.Error("Run failed", slog.String("error", err.Error()))
		return 1
	}

	summary, _, ok := runs.LatestReport()
	if !ok {
		logger.Error("Run finished without a report", slog.String("status", string(resp.Status)))
		return 1
	}
	logger.Info("Run completed",
		slog.String("run_date", summary.RunDate),
		slog.Int("records", summary.Records),
		slog.Int("tanks_processed", summary.TanksProcessed),
		slog.Int("tanks_failed", summary.TanksFailed),
		slog.Int("events_dropped", summary.EventsDropped),
		slog.Duration("duration", resp.Duration))
	for _, failure := range summary.Failures {
		logger.Warn("Tank failed", slog.String("tank", failure.Tank), slog.String("reason", failure.Message))
	}
	for _, path := range summary.Artifacts {
		fmt.Println(path)
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}
