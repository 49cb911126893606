package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// ExpvarMetricsRecorder publishes per-operation counters and latency totals
// via expvar.
type ExpvarMetricsRecorder struct {
	name      string
	mu        sync.Mutex
	durations map[string]float64
	results   map[string]map[string]int64
}

// ExpvarMetricsSnapshot captures a read-only view of the recorded metrics.
type ExpvarMetricsSnapshot struct {
	DurationsMS map[string]float64          `json:"durations_ms_total"`
	Results     map[string]map[string]int64 `json:"results_total"`
	RecordedAt  time.Time                   `json:"recorded_at"`
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated tutorcore_catalog_metrics_N name when name is empty. expvar
// panics on duplicate names, so callers own name uniqueness.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		id := atomic.AddUint64(&expvarSeq, 1)
		name = fmt.Sprintf("tutorcore_catalog_metrics_%d", id)
	}
	rec := &ExpvarMetricsRecorder{
		name:      name,
		durations: make(map[string]float64),
		results:   make(map[string]map[string]int64),
	}
	expvar.Publish(name, expvar.Func(func() any {
		return rec.Snapshot()
	}))
	return rec
}

// Name returns the expvar export name associated with the recorder.
func (r *ExpvarMetricsRecorder) Name() string {
	return r.name
}

// Snapshot returns a copy of the aggregated metrics.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	durations := make(map[string]float64, len(r.durations))
	for op, total := range r.durations {
		durations[op] = total
	}
	results := make(map[string]map[string]int64, len(r.results))
	for op, counts := range r.results {
		cpy := make(map[string]int64, len(counts))
		for status, n := range counts {
			cpy[status] = n
		}
		results[op] = cpy
	}
	return ExpvarMetricsSnapshot{
		DurationsMS: durations,
		Results:     results,
		RecordedAt:  time.Now().UTC(),
	}
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := string(AuditStatusError)
	if success {
		status = string(AuditStatusSuccess)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations[operation] += float64(duration) / float64(time.Millisecond)
	counts, ok := r.results[operation]
	if !ok {
		counts = make(map[string]int64, 2)
		r.results[operation] = counts
	}
	counts[status]++
}

// TeeMetrics fans every observation out to each recorder in order.
type TeeMetrics []MetricsRecorder

// Observe implements MetricsRecorder.
func (t TeeMetrics) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, r := range t {
		r.Observe(ctx, operation, success, duration)
	}
}

// jsonTraceRetained bounds the spans a JSONTraceTracer keeps for Entries.
const jsonTraceRetained = 256

// JSONTraceEntry is one span emitted by JSONTraceTracer.
type JSONTraceEntry struct {
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTraceTracer writes spans as JSON lines and retains the most recent ones
// for inspection.
type JSONTraceTracer struct {
	mu      sync.Mutex
	clock   Clock
	entries []JSONTraceEntry
	enc     *json.Encoder
}

// NewJSONTracer constructs a tracer writing to w. A nil w only retains spans.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	t := &JSONTraceTracer{clock: ClockFunc(nil)}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries returns a copy of the retained spans, oldest first.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]JSONTraceEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonTraceSpan{tracer: t, operation: operation, started: t.clock.Now()}
}

type jsonTraceSpan struct {
	tracer    *JSONTraceTracer
	operation string
	started   time.Time
}

func (s *jsonTraceSpan) End(err error) {
	ended := s.tracer.clock.Now()
	entry := JSONTraceEntry{
		Operation:  s.operation,
		Status:     string(AuditStatusSuccess),
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		StartedAt:  s.started,
		EndedAt:    ended,
	}
	if err != nil {
		entry.Status = string(AuditStatusError)
		entry.Error = err.Error()
	}

	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.tracer.entries = append(s.tracer.entries, entry)
	if n := len(s.tracer.entries); n > jsonTraceRetained {
		s.tracer.entries = s.tracer.entries[n-jsonTraceRetained:]
	}
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(entry)
	}
}

// JSONAuditRecorder writes audit entries as JSON lines.
type JSONAuditRecorder struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONAuditRecorder constructs a recorder writing to w.
func NewJSONAuditRecorder(w io.Writer) *JSONAuditRecorder {
	return &JSONAuditRecorder{enc: json.NewEncoder(w)}
}

type jsonAuditLine struct {
	Operation  string    `json:"operation"`
	Entity     string    `json:"entity"`
	Action     string    `json:"action"`
	EntityID   string    `json:"entity_id,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMS float64   `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Record implements AuditRecorder.
func (r *JSONAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	line := jsonAuditLine{
		Operation:  entry.Operation,
		Entity:     string(entry.Entity),
		Action:     string(entry.Action),
		EntityID:   entry.EntityID,
		Status:     string(entry.Status),
		Error:      entry.Error,
		DurationMS: float64(entry.Duration) / float64(time.Millisecond),
		Timestamp:  entry.Timestamp,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.enc.Encode(line)
}
