package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tankevents/internal/config"
	"tankevents/internal/dataprocessing"
	"tankevents/internal/historian"
	"tankevents/internal/infrastructure"
	"tankevents/internal/roster"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a YAML config file")
	date := flag.String("date", "", "day to extract as YYYY-MM-DD (defaults to yesterday)")
	out := flag.String("out", "", "output CSV path (defaults to the raw extract file in the output directory)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		return 1
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", slog.String("error", err.Error()))
		return 1
	}
	defer infrastructure.CloseLogFile()

	window := historian.YesterdayWindow(time.Now())
	if *date != "" {
		day, err := time.ParseInLocation("2006-01-02", *date, time.Local)
		if err != nil {
			logger.Error("Invalid date", slog.String("date", *date))
			return 1
		}
		window = historian.DayWindow(day)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := extract(ctx, cfg, window, *out, logger); err != nil {
		logger.Error("Extraction failed", slog.String("error", err.Error()))
		return 1
	}
	return 0
}

func extract(ctx context.Context, cfg *config.Config, window historian.Window, out string, logger *slog.Logger) error {
	if err := cfg.Historian.ValidateCredentials(); err != nil {
		return err
	}
	tanks, err := roster.LoadTanks(cfg.Paths.RosterFile(), cfg.Report.UngroundedTanks)
	if err != nil {
		return err
	}
	mappings, err := roster.LoadTags(cfg.Paths.TagsFile())
	if err != nil {
		return err
	}

	client, err := historian.NewClient(ctx, cfg.Historian, historian.WithClientLogger(logger))
	if err != nil {
		return err
	}
	extractor := historian.NewExtractor(client, cfg.Historian.MaxConcurrency, logger)
	table, stats, err := extractor.Extract(ctx, historian.TagsFor(mappings, tanks), window)
	if err != nil {
		return err
	}

	if out == "" {
		if err := cfg.Paths.EnsureDirectories(); err != nil {
			return err
		}
		out = cfg.Paths.RawExtractCSV(window.Start)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := dataprocessing.WriteWideTable(f, table); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	logger.Info("Extraction complete",
		slog.String("file", out),
		slog.String("mode", client.Mode()),
		slog.Int("tags", stats.Tags),
		slog.Int("rows", stats.Rows),
		slog.String("failed_tags", strings.Join(stats.FailedTags, ",")),
		slog.Duration("duration", stats.Duration))
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}
