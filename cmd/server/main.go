package main

import (
	"flag"
	"log/slog"
	"os"

	"tankevents/internal/app"
	"tankevents/internal/infrastructure"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to TANKEVENTS_CONFIG_FILE or config.yaml)")
	flag.Parse()

	application, err := app.NewApplication(*configPath)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	if err := application.Run(); err != nil {
		application.Logger.Error("Application error", slog.String("error", err.Error()))
		infrastructure.CloseLogFile()
		os.Exit(1)
	}
}
