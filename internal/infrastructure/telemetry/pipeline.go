// Package telemetry wires OpenTelemetry traces, metrics and logs, Pyroscope
// profiling and the GORM instrumentation for the fund service.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceVersion is stamped on every exported span, metric and log record
const ServiceVersion = "1.0.0"

const (
	shutdownTimeout       = 10 * time.Second
	defaultExportInterval = 60 * time.Second
)

// Settings selects which OTLP signals the service exports. All signals share
// one collector endpoint.
type Settings struct {
	ServiceName string
	Endpoint    string
	Insecure    bool

	Traces        bool
	SamplingRatio float64

	Metrics        bool
	ExportInterval time.Duration

	Logs bool
}

// Pipeline owns the SDK providers for the enabled signals. A signal that is
// switched off keeps the global no-op provider.
type Pipeline struct {
	settings Settings
	logger   *zap.Logger

	traces  *sdktrace.TracerProvider
	metrics *sdkmetric.MeterProvider
	logs    *sdklog.LoggerProvider

	mu           sync.Mutex
	spanProfiles bool
}

// StartPipeline builds and installs the providers for every enabled signal.
// The gRPC exporters dial lazily, so an unreachable collector does not fail
// startup.
func StartPipeline(ctx context.Context, s Settings, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{settings: s, logger: logger}
	if !s.Traces && !s.Metrics && !s.Logs {
		logger.Info("Telemetry export disabled")
		return p, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(s.ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if s.Traces {
		if err := p.startTraces(ctx, res); err != nil {
			return nil, err
		}
	}
	if s.Metrics {
		if err := p.startMetrics(ctx, res); err != nil {
			_ = p.Shutdown(ctx)
			return nil, err
		}
	}
	if s.Logs {
		if err := p.startLogs(ctx, res); err != nil {
			_ = p.Shutdown(ctx)
			return nil, err
		}
	}

	logger.Info("Telemetry pipeline started",
		zap.String("endpoint", s.Endpoint),
		zap.String("service_name", s.ServiceName),
		zap.Bool("traces", s.Traces),
		zap.Bool("metrics", s.Metrics),
		zap.Bool("logs", s.Logs),
	)
	return p, nil
}

func (p *Pipeline) startTraces(ctx context.Context, res *resource.Resource) error {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.settings.Endpoint)}
	if p.settings.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	p.traces = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFor(p.settings.SamplingRatio)),
	)
	otel.SetTracerProvider(p.traces)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return nil
}

func (p *Pipeline) startMetrics(ctx context.Context, res *resource.Resource) error {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(p.settings.Endpoint)}
	if p.settings.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}
	interval := p.settings.ExportInterval
	if interval <= 0 {
		interval = defaultExportInterval
	}
	p.metrics = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(p.metrics)
	return nil
}

func (p *Pipeline) startLogs(ctx context.Context, res *resource.Resource) error {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(p.settings.Endpoint)}
	if p.settings.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}
	p.logs = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(p.logs)
	return nil
}

func samplerFor(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// Tracing reports whether spans are exported
func (p *Pipeline) Tracing() bool { return p.traces != nil }

// Tracer returns a tracer from the pipeline, or from the global provider
// when traces are off.
func (p *Pipeline) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if p.traces == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return p.traces.Tracer(name, opts...)
}

// Meter returns a meter from the pipeline, or a no-op meter when metrics
// are off.
func (p *Pipeline) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if p.metrics == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return p.metrics.Meter(name, opts...)
}

// TeeLogger returns base with records at or above minLevel also sent to the
// OTLP log exporter. Without log export base is returned unchanged.
func (p *Pipeline) TeeLogger(base *zap.Logger, minLevel zapcore.Level) *zap.Logger {
	if p == nil || p.logs == nil {
		return base
	}
	exported := &levelFilterCore{
		Core:     otelzap.NewCore(p.settings.ServiceName, otelzap.WithLoggerProvider(p.logs)),
		minLevel: minLevel,
	}
	return base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, exported)
	}))
}

// EnableSpanProfiles labels profiling samples with the active span id so
// Pyroscope can slice CPU profiles per trace. Start the profiler first.
func (p *Pipeline) EnableSpanProfiles() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.traces == nil {
		return false
	}
	if !p.spanProfiles {
		otel.SetTracerProvider(otelpyroscope.NewTracerProvider(p.traces))
		p.spanProfiles = true
		p.logger.Info("Span profiles enabled")
	}
	return true
}

// Shutdown flushes and stops every running provider
func (p *Pipeline) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if p.traces != nil {
		if err := p.traces.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("traces: %w", err))
		}
	}
	if p.metrics != nil {
		if err := p.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		}
	}
	if p.logs != nil {
		if err := p.logs.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("logs: %w", err))
		}
	}
	return errors.Join(errs...)
}
