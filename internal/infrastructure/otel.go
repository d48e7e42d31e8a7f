package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"tankevents/internal/config"
)

const (
	ServiceName = config.AppName
	MeterName   = "tankevents"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelConfigFrom maps the telemetry section of the application config
func OTelConfigFrom(cfg config.TelemetryConfig) *OTelConfig {
	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: config.AppVersion,
		Environment:    cfg.Environment,
		TraceExporter:  cfg.TraceExporter,
		EnableMetrics:  cfg.EnableMetrics,
		EnableTracing:  cfg.EnableTracing,
		SampleRatio:    cfg.SampleRatio,
	}
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel sets up tracing and metrics. Disabled signals fall back to no-op implementations
// so callers never have to nil-check the tracer or meter.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = OTelConfigFrom(config.Default().Telemetry)
	}
	if logger == nil {
		logger = GetLogger()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Logger: logger,
		Tracer: otel.Tracer(MeterName),
		Meter:  noop.NewMeterProvider().Meter(MeterName),
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return providers, nil
}

func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics wires a Prometheus exporter into a private registry served at /metrics
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	registry := promclient.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
	providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	otel.SetMeterProvider(mp)

	providers.Logger.InfoContext(ctx, "Metrics initialized", slog.String("exporter", "prometheus"))
	return nil
}

// PipelineMetrics are the instruments recorded by the batch pipeline and the historian client
type PipelineMetrics struct {
	RunsTotal         metric.Int64Counter
	RunDuration       metric.Float64Histogram
	TanksProcessed    metric.Int64Counter
	TanksFailed       metric.Int64Counter
	TankDuration      metric.Float64Histogram
	EventsEmitted     metric.Int64Counter
	EventsDropped     metric.Int64Counter
	HistorianRequests metric.Int64Counter
	HistorianLatency  metric.Float64Histogram
	HistorianSamples  metric.Int64Counter
}

// CreatePipelineMetrics registers the pipeline instruments on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	var err error

	if m.RunsTotal, err = meter.Int64Counter("tankevents_runs_total",
		metric.WithDescription("Pipeline runs by outcome")); err != nil {
		return nil, fmt.Errorf("runs counter: %w", err)
	}
	if m.RunDuration, err = meter.Float64Histogram("tankevents_run_duration_seconds",
		metric.WithDescription("Wall time of a pipeline run"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("run duration histogram: %w", err)
	}
	if m.TanksProcessed, err = meter.Int64Counter("tankevents_tanks_processed_total",
		metric.WithDescription("Tanks that produced events")); err != nil {
		return nil, fmt.Errorf("tanks processed counter: %w", err)
	}
	if m.TanksFailed, err = meter.Int64Counter("tankevents_tanks_failed_total",
		metric.WithDescription("Tanks skipped because of an error")); err != nil {
		return nil, fmt.Errorf("tanks failed counter: %w", err)
	}
	if m.TankDuration, err = meter.Float64Histogram("tankevents_tank_processing_duration_seconds",
		metric.WithDescription("Time spent transforming one tank"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("tank duration histogram: %w", err)
	}
	if m.EventsEmitted, err = meter.Int64Counter("tankevents_events_emitted_total",
		metric.WithDescription("Event records written to the report")); err != nil {
		return nil, fmt.Errorf("events emitted counter: %w", err)
	}
	if m.EventsDropped, err = meter.Int64Counter("tankevents_events_dropped_total",
		metric.WithDescription("Event records removed by the plausibility filter")); err != nil {
		return nil, fmt.Errorf("events dropped counter: %w", err)
	}
	if m.HistorianRequests, err = meter.Int64Counter("tankevents_historian_requests_total",
		metric.WithDescription("Historian REST calls by mode and status")); err != nil {
		return nil, fmt.Errorf("historian requests counter: %w", err)
	}
	if m.HistorianLatency, err = meter.Float64Histogram("tankevents_historian_request_duration_seconds",
		metric.WithDescription("Historian REST call latency"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("historian latency histogram: %w", err)
	}
	if m.HistorianSamples, err = meter.Int64Counter("tankevents_historian_samples_total",
		metric.WithDescription("Samples kept after the quality filter")); err != nil {
		return nil, fmt.Errorf("historian samples counter: %w", err)
	}

	return m, nil
}

// NoopPipelineMetrics returns instruments that record nothing
func NoopPipelineMetrics() *PipelineMetrics {
	m, _ := CreatePipelineMetrics(noop.NewMeterProvider().Meter(MeterName))
	return m
}

// RecordTank records the outcome of transforming one tank
func (m *PipelineMetrics) RecordTank(ctx context.Context, tank string, duration time.Duration, events int, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("tank", tank))
	m.TankDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.TanksFailed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tank", tank),
			attribute.String("error.type", fmt.Sprintf("%T", err)),
		))
		return
	}
	m.TanksProcessed.Add(ctx, 1, attrs)
	m.EventsEmitted.Add(ctx, int64(events), attrs)
}

// RecordRun records a completed pipeline run
func (m *PipelineMetrics) RecordRun(ctx context.Context, duration time.Duration, dropped int, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.RunsTotal.Add(ctx, 1, attrs)
	m.RunDuration.Record(ctx, duration.Seconds(), attrs)
	if dropped > 0 {
		m.EventsDropped.Add(ctx, int64(dropped))
	}
}

// RecordHistorianRequest records one historian call
func (m *PipelineMetrics) RecordHistorianRequest(ctx context.Context, mode string, status int, duration time.Duration, samples int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.Int("http.status_code", status),
	)
	m.HistorianRequests.Add(ctx, 1, attrs)
	m.HistorianLatency.Record(ctx, duration.Seconds(), attrs)
	if samples > 0 {
		m.HistorianSamples.Add(ctx, int64(samples), metric.WithAttributes(attribute.String("mode", mode)))
	}
}

// Shutdown flushes and stops the providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// StartSpan starts a span on the global tracer
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(MeterName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// TraceIDFromContext extracts the OpenTelemetry trace ID for log correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}
