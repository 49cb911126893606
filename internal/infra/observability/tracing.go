package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"tutorcore/internal/core"
	"tutorcore/pkg/domain"
)

const instrumentationName = "tutorcore/internal/core"

var _ core.Tracer = (*OTelTracer)(nil)

// OTelTracer adapts an OpenTelemetry tracer to core.Tracer.
type OTelTracer struct {
	tracer trace.Tracer
}

// NewOTelTracer uses tp, or the global provider when tp is nil.
func NewOTelTracer(tp trace.TracerProvider) *OTelTracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &OTelTracer{tracer: tp.Tracer(instrumentationName)}
}

// Start implements core.Tracer.
func (t *OTelTracer) Start(ctx context.Context, operation string) (context.Context, core.TraceSpan) {
	ctx, span := t.tracer.Start(ctx, "catalog."+operation,
		trace.WithAttributes(attribute.String("catalog.operation", operation)))
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		if msg, ok := domain.UserMessage(err); ok {
			s.span.SetAttributes(attribute.Bool("catalog.rejected", true))
			s.span.SetStatus(codes.Error, msg)
		} else {
			s.span.SetStatus(codes.Error, err.Error())
		}
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

// TracingConfig selects a span exporter.
type TracingConfig struct {
	ServiceName string
	// Endpoint is an OTLP/HTTP URL. When empty and Stdout is set, spans are
	// pretty-printed to stdout.
	Endpoint string
	Stdout   bool
}

// SetupTracing installs a global tracer provider and propagator. When no
// exporter is configured it returns a no-op shutdown and leaves the global
// provider untouched.
func SetupTracing(ctx context.Context, cfg TracingConfig) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	var exporter sdktrace.SpanExporter
	switch {
	case cfg.Endpoint != "":
		exporter, err = otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	case cfg.Stdout:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return noop, nil
	}
	if err != nil {
		return noop, err
	}

	name := cfg.ServiceName
	if name == "" {
		name = "tutorcore"
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(name)))
	if err != nil {
		return noop, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}
