package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
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

	"invsync/internal/config"
)

const (
	ServiceName = "invsync"
	MeterName   = "invsync"
)

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// InitializeOTel sets up the global tracer and meter providers. A disabled
// signal leaves the corresponding global no-op provider in place.
func InitializeOTel(cfg config.TelemetryConfig, logger *slog.Logger) (*OTelProviders, error) {
	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(config.AppVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{
		Logger: logger,
		Meter:  noop.NewMeterProvider().Meter(MeterName),
	}

	if cfg.EnableTracing && cfg.TraceExporter == "stdout" {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
		)
		providers.TracerProvider = tp
		otel.SetTracerProvider(tp)
	}

	if cfg.EnableMetrics && cfg.MetricExporter == "prometheus" {
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(config.AppVersion))
		providers.PrometheusHTTP = promhttp.Handler()
		otel.SetMeterProvider(mp)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialized",
		slog.Bool("tracing_enabled", providers.TracerProvider != nil),
		slog.Bool("metrics_enabled", providers.MeterProvider != nil),
	)
	return providers, nil
}

// Shutdown gracefully shuts down OpenTelemetry providers
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

// SyncMetrics holds the ingestion instruments.
type SyncMetrics struct {
	SyncsTotal      metric.Int64Counter
	SyncFailures    metric.Int64Counter
	TabsSkipped     metric.Int64Counter
	RecordsIngested metric.Int64Gauge
	SyncDuration    metric.Float64Histogram
}

// NewSyncMetrics creates the ingestion instruments on meter.
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	syncsTotal, err := meter.Int64Counter(
		"inventory_sync_total",
		metric.WithDescription("Total number of inventory syncs"),
	)
	if err != nil {
		return nil, err
	}

	syncFailures, err := meter.Int64Counter(
		"inventory_sync_failures_total",
		metric.WithDescription("Total number of failed inventory syncs by error type"),
	)
	if err != nil {
		return nil, err
	}

	tabsSkipped, err := meter.Int64Counter(
		"inventory_tabs_skipped_total",
		metric.WithDescription("Total number of tabs skipped during best-effort fetches"),
	)
	if err != nil {
		return nil, err
	}

	recordsIngested, err := meter.Int64Gauge(
		"inventory_records_ingested",
		metric.WithDescription("Records in the snapshot produced by the last successful sync"),
	)
	if err != nil {
		return nil, err
	}

	syncDuration, err := meter.Float64Histogram(
		"inventory_sync_duration_seconds",
		metric.WithDescription("Inventory sync duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		SyncsTotal:      syncsTotal,
		SyncFailures:    syncFailures,
		TabsSkipped:     tabsSkipped,
		RecordsIngested: recordsIngested,
		SyncDuration:    syncDuration,
	}, nil
}

// RecordSync records one finished sync. errorType is empty on success.
func (m *SyncMetrics) RecordSync(ctx context.Context, mode string, duration time.Duration, records, skipped int, errorType string) {
	if m == nil {
		return
	}
	modeAttr := attribute.String("mode", mode)
	status := "success"
	if errorType != "" {
		status = "failure"
	}

	m.SyncsTotal.Add(ctx, 1, metric.WithAttributes(modeAttr, attribute.String("status", status)))
	m.SyncDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(modeAttr, attribute.String("status", status)))

	if errorType != "" {
		m.SyncFailures.Add(ctx, 1, metric.WithAttributes(modeAttr, attribute.String("error_type", errorType)))
		return
	}
	m.RecordsIngested.Record(ctx, int64(records), metric.WithAttributes(modeAttr))
	if skipped > 0 {
		m.TabsSkipped.Add(ctx, int64(skipped), metric.WithAttributes(modeAttr))
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("inventory.sync_recorded", trace.WithAttributes(
			attribute.Int("records", records),
			attribute.Int("skipped_tabs", skipped),
		))
	}
}
