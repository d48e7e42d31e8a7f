package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"tankevents/internal/config"
)

// HubStats is the part of the websocket hub health reporting needs
type HubStats interface {
	ClientCount() int
	Stats() map[string]interface{}
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	paths     config.PathsConfig
	runs      *RunService
	hub       HubStats
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Readiness states
const (
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
)

// NewHealthService creates a health service; runs and hub may be nil
func NewHealthService(version string, paths config.PathsConfig, runs *RunService, hub HubStats, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		paths:     paths,
		runs:      runs,
		hub:       hub,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports whether runs can be served
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"runs":      hs.checkRuns(),
			"historian": hs.checkHistorian(),
			"output":    hs.checkOutput(),
			"websocket": hs.checkWebSocket(),
		},
	}

	for name, svc := range status.Services {
		// the historian is optional; file-based runs still work without it
		if svc.Status != StatusReady && name != "historian" {
			status.Status = StatusNotReady
			hs.logger.WarnContext(ctx, "Readiness check failed",
				slog.String("component", name),
				slog.String("message", svc.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	return map[string]interface{}{
		"name":       config.AppName,
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"start_time": hs.startTime.Format(time.RFC3339),
	}
}

func (hs *HealthService) checkRuns() ServiceHealth {
	if hs.runs == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "run service not initialized"}
	}
	return ServiceHealth{
		Status:  StatusReady,
		Message: fmt.Sprintf("%d tanks rostered", len(hs.runs.Tanks())),
	}
}

func (hs *HealthService) checkHistorian() ServiceHealth {
	if hs.runs == nil || !hs.runs.HistorianEnabled() {
		return ServiceHealth{Status: StatusNotReady, Message: "historian not configured"}
	}
	return ServiceHealth{Status: StatusReady}
}

func (hs *HealthService) checkOutput() ServiceHealth {
	dir := hs.paths.Output()
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return ServiceHealth{
			Status:  StatusNotReady,
			Message: fmt.Sprintf("output directory not found: %s", dir),
		}
	}

	probe, err := os.CreateTemp(dir, ".health-*")
	if err != nil {
		return ServiceHealth{
			Status:  StatusNotReady,
			Message: fmt.Sprintf("cannot write to output directory: %v", err),
		}
	}
	probe.Close()
	os.Remove(probe.Name())

	return ServiceHealth{Status: StatusReady}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: StatusNotReady, Message: "websocket hub not initialized"}
	}
	return ServiceHealth{
		Status:  StatusReady,
		Message: fmt.Sprintf("%d clients connected", hs.hub.ClientCount()),
		Details: hs.hub.Stats(),
	}
}
