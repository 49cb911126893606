package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"tutorcore/internal/core"
	"tutorcore/internal/infra/persistence/memory"
	"tutorcore/pkg/domain"
)

func TestLoggerWritesStructuredFields(t *testing.T) {
	zc, logs := observer.New(zapcore.DebugLevel)
	log := WrapZap(zap.New(zc))

	log.Debug("d", "k", 1)
	log.Info("i")
	log.Warn("w")
	log.With("catalog", "themes").Error("e", "theme_id", int64(3))

	entries := logs.All()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	last := entries[3]
	if last.Level != zapcore.ErrorLevel || last.Message != "e" {
		t.Fatalf("unexpected entry %+v", last)
	}
	fields := last.ContextMap()
	if fields["catalog"] != "themes" || fields["theme_id"] != int64(3) {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestNewLoggerModes(t *testing.T) {
	for _, mode := range []string{"production", "development", ""} {
		log, err := NewLogger(mode)
		if err != nil {
			t.Fatalf("NewLogger(%q): %v", mode, err)
		}
		log.Info("hello")
	}
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	rec.Observe(context.Background(), "add_theme", true, 10*time.Millisecond)
	rec.Observe(context.Background(), "add_theme", false, time.Millisecond)
	rec.Observe(context.Background(), "add_theme", false, time.Millisecond)

	if got := testutil.ToFloat64(rec.operations.WithLabelValues("add_theme", "error")); got != 2 {
		t.Fatalf("expected 2 failures, got %v", got)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues("add_theme", "success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if n := testutil.CollectAndCount(rec.latency, "tutorcore_catalog_operation_duration_seconds"); n != 1 {
		t.Fatalf("expected one latency series, got %d", n)
	}

	if _, err := NewPrometheusRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestOTelTracerRecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tracer := NewOTelTracer(tp)

	_, ok := tracer.Start(context.Background(), "list_students")
	ok.End(nil)
	_, rejected := tracer.Start(context.Background(), "add_theme")
	rejected.End(&domain.DuplicateError{Message: "Такая тема уже есть"})
	_, failed := tracer.Start(context.Background(), "delete_theme")
	failed.End(errors.New("disk full"))

	spans := sr.Ended()
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
	if spans[0].Name() != "catalog.list_students" || spans[0].Status().Code != codes.Ok {
		t.Fatalf("unexpected span %s %+v", spans[0].Name(), spans[0].Status())
	}
	if spans[1].Status().Code != codes.Error || spans[1].Status().Description != "Такая тема уже есть" {
		t.Fatalf("unexpected rejected status %+v", spans[1].Status())
	}
	if spans[2].Status().Description != "disk full" || len(spans[2].Events()) == 0 {
		t.Fatalf("expected recorded error event on failed span")
	}
}

func TestCatalogWiredWithAdapters(t *testing.T) {
	zc, logs := observer.New(zapcore.DebugLevel)
	sr := tracetest.NewSpanRecorder()
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	c := core.NewThemeCatalog(memory.NewStore(),
		core.WithLogger(WrapZap(zap.New(zc))),
		core.WithMetricsRecorder(rec),
		core.WithTracer(NewOTelTracer(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))),
	)
	if _, err := c.AddTheme(context.Background(), "6 класс", "Причастие"); err != nil {
		t.Fatalf("add theme: %v", err)
	}
	if got := testutil.ToFloat64(rec.operations.WithLabelValues("add_theme", "success")); got != 1 {
		t.Fatalf("expected counter increment, got %v", got)
	}
	if len(sr.Ended()) != 1 || !strings.HasSuffix(sr.Ended()[0].Name(), "add_theme") {
		t.Fatalf("expected add_theme span")
	}
	if logs.FilterMessage("catalog operation").Len() != 1 {
		t.Fatalf("expected debug log for add_theme")
	}
}

func TestSetupTracingNoopWithoutExporter(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), TracingConfig{})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown should not error: %v", err)
	}
}

func TestSetupTracingWithEndpoint(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), TracingConfig{ServiceName: "tutorcore-test", Endpoint: "http://192.0.2.1:4318"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
