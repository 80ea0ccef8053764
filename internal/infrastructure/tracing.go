package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"taxtrend/internal/config"
)

// TracerName is the instrumentation scope of every span the pipeline emits.
const TracerName = "taxtrend"

// TracingProvider owns the SDK tracer provider when an exporter is enabled.
type TracingProvider struct {
	tp     *sdktrace.TracerProvider
	logger *slog.Logger
}

// InitializeTracing installs the global tracer provider selected by cfg.
// With exporter "none" the global no-op provider is left in place.
func InitializeTracing(cfg config.TracingConfig, w io.Writer, logger *slog.Logger) (*TracingProvider, error) {
	p := &TracingProvider{logger: logger}

	switch cfg.Exporter {
	case "", "none":
		return p, nil
	case "stdout":
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(config.AppName),
		semconv.ServiceVersion(config.AppVersion),
	)

	p.tp = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(p.tp)

	logger.Info("Tracing initialized", slog.String("exporter", cfg.Exporter))
	return p, nil
}

// Shutdown flushes pending spans.
func (p *TracingProvider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}
	return nil
}

// Tracer returns the pipeline tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartSpan starts a span tagged with the run's trace ID.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if runID := GetRunID(ctx); runID != "" {
		attrs = append(attrs, attribute.String("taxtrend.run_id", runID))
	}
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
