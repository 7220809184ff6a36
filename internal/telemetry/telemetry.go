// Package telemetry provides OpenTelemetry instrumentation for inventa runs.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/inventa/internal/config"
)

// Recorder is what the run loop reports into.
type Recorder interface {
	StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span)
	RecordVisit(ctx context.Context, report, account, region string, d time.Duration, rows int)
	RecordErrors(ctx context.Context, report, kind string, n int)
	RecordProfile(ctx context.Context, outcome string)
}

// Provider wraps OTEL tracer and meter providers.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter

	// Set when metrics are written to a node exporter textfile.
	registry *prometheus.Registry
	textfile string

	// Metrics
	visitDuration metric.Float64Histogram
	rowCount      metric.Int64Counter
	errorCount    metric.Int64Counter
	profileCount  metric.Int64Counter
}

// NewProvider creates a new telemetry provider.
func NewProvider(ctx context.Context, cfg config.OTELConfig) (*Provider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	p := &Provider{}

	if err := p.setupTracing(ctx, cfg, res); err != nil {
		return nil, err
	}

	if err := p.setupMetrics(ctx, cfg, res); err != nil {
		if p.tracerProvider != nil {
			_ = p.tracerProvider.Shutdown(ctx)
		}
		return nil, err
	}

	if err := p.initMetrics(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Provider) setupTracing(ctx context.Context, cfg config.OTELConfig, res *resource.Resource) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
	}

	if cfg.Traces.Enabled && cfg.Endpoint != "" {
		exp, err := createTraceExporter(ctx, cfg)
		if err != nil {
			return fmt.Errorf("create trace exporter: %w", err)
		}
		sampler := sdktrace.TraceIDRatioBased(cfg.Traces.SampleRate)
		opts = append(opts, sdktrace.WithBatcher(exp), sdktrace.WithSampler(sampler))
	}

	p.tracerProvider = sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(p.tracerProvider)
	p.tracer = p.tracerProvider.Tracer("inventa")

	return nil
}

func (p *Provider) setupMetrics(ctx context.Context, cfg config.OTELConfig, res *resource.Resource) error {
	opts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
	}

	if cfg.Metrics.Enabled && cfg.Endpoint != "" {
		exp, err := createMetricExporter(ctx, cfg)
		if err != nil {
			return fmt.Errorf("create metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
	}

	if cfg.MetricsTextfile != "" {
		p.registry = prometheus.NewRegistry()
		p.textfile = cfg.MetricsTextfile
		exp, err := otelprom.New(otelprom.WithRegisterer(p.registry))
		if err != nil {
			return fmt.Errorf("create prometheus exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(exp))
	}

	p.meterProvider = sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(p.meterProvider)
	p.meter = p.meterProvider.Meter("inventa")

	return nil
}

func createTraceExporter(ctx context.Context, cfg config.OTELConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.New(ctx, opts...)
}

func createMetricExporter(ctx context.Context, cfg config.OTELConfig) (sdkmetric.Exporter, error) {
	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	return otlpmetricgrpc.New(ctx, opts...)
}

func (p *Provider) initMetrics() error {
	var err error

	p.visitDuration, err = p.meter.Float64Histogram(
		"inventa_visit_duration_seconds",
		metric.WithDescription("Duration of one account and region visit"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create visit_duration: %w", err)
	}

	p.rowCount, err = p.meter.Int64Counter(
		"inventa_rows_total",
		metric.WithDescription("Total correlated rows produced"),
	)
	if err != nil {
		return fmt.Errorf("create rows: %w", err)
	}

	p.errorCount, err = p.meter.Int64Counter(
		"inventa_errors_total",
		metric.WithDescription("Total non-fatal errors recorded"),
	)
	if err != nil {
		return fmt.Errorf("create errors: %w", err)
	}

	p.profileCount, err = p.meter.Int64Counter(
		"inventa_profiles_total",
		metric.WithDescription("Profiles seen during account deduplication"),
	)
	if err != nil {
		return fmt.Errorf("create profiles: %w", err)
	}

	return nil
}

// StartSpan starts a new span.
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordVisit records the duration and row count of one visit.
func (p *Provider) RecordVisit(ctx context.Context, report, account, region string, d time.Duration, rows int) {
	attrs := metric.WithAttributes(
		attribute.String("report", report),
		attribute.String("account", account),
		attribute.String("region", region),
	)
	p.visitDuration.Record(ctx, d.Seconds(), attrs)
	p.rowCount.Add(ctx, int64(rows), attrs)
}

// RecordErrors records n non-fatal errors of one kind.
func (p *Provider) RecordErrors(ctx context.Context, report, kind string, n int) {
	if n == 0 {
		return
	}
	p.errorCount.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("report", report),
		attribute.String("kind", kind),
	))
}

// RecordProfile records one deduplication decision.
func (p *Provider) RecordProfile(ctx context.Context, outcome string) {
	p.profileCount.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// Shutdown flushes and shuts down the providers. When a textfile is
// configured the gathered metrics are written to it first.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.registry != nil {
		if err := prometheus.WriteToTextfile(p.textfile, p.registry); err != nil {
			return fmt.Errorf("write metrics textfile: %w", err)
		}
	}
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown tracer: %w", err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown meter: %w", err)
		}
	}
	return nil
}
