package core

import (
	"context"
	"strconv"
	"time"

	"tutorcore/pkg/domain"
)

// Logger is the minimal structured logger used by the catalogs. Arguments are
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock supplies timestamps for audit entries and operation timings.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function into a Clock. A nil ClockFunc reports the
// current UTC time.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f()
}

// AuditStatus is the outcome of an audited operation.
type AuditStatus string

// Audit outcomes.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one catalog mutation.
type AuditEntry struct {
	Operation string
	Entity    domain.EntityType
	Action    domain.Action
	EntityID  string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives audit entries for every catalog mutation.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// MetricsRecorder observes the outcome and latency of catalog operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts a span around a catalog operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended exactly once with the operation result.
type TraceSpan interface {
	End(err error)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// ServiceOption customises a catalog.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	clock   Clock
	logger  Logger
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	locker  Locker
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:  noopLogger{},
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		locker:  NewLocalLocker(),
	}
}

func newServiceOptions(opts []ServiceOption) serviceOptions {
	o := defaultServiceOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithClock overrides the clock used for timings and audit timestamps.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger installs a structured logger.
func WithLogger(logger Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithAuditRecorder installs an audit sink for mutations.
func WithAuditRecorder(recorder AuditRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.audit = recorder
		}
	}
}

// WithMetricsRecorder installs an operation metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder != nil {
			o.metrics = recorder
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithLocker replaces the in-process mutation lock, e.g. with a Redis lock
// shared between several processes.
func WithLocker(locker Locker) ServiceOption {
	return func(o *serviceOptions) {
		if locker != nil {
			o.locker = locker
		}
	}
}

type operation struct {
	name   string
	entity domain.EntityType
	action domain.Action
}

var (
	opListStudents          = operation{"list_students", domain.EntityStudent, domain.ActionRead}
	opListStudentThemeViews = operation{"list_student_theme_views", domain.EntityStudent, domain.ActionRead}
	opGetStudent            = operation{"get_student", domain.EntityStudent, domain.ActionRead}
	opAddStudent            = operation{"add_student", domain.EntityStudent, domain.ActionCreate}
	opDeleteStudent         = operation{"delete_student", domain.EntityStudent, domain.ActionDelete}
	opListGradeThemeViews   = operation{"list_grade_theme_views", domain.EntityTheme, domain.ActionRead}
	opGetTheme              = operation{"get_theme", domain.EntityTheme, domain.ActionRead}
	opAddTheme              = operation{"add_theme", domain.EntityTheme, domain.ActionCreate}
	opRenameTheme           = operation{"rename_theme", domain.EntityTheme, domain.ActionUpdate}
	opDeleteTheme           = operation{"delete_theme", domain.EntityTheme, domain.ActionDelete}
	opAddDictation          = operation{"add_dictation", domain.EntityDictation, domain.ActionCreate}
	opListDictations        = operation{"list_dictations", domain.EntityDictation, domain.ActionRead}
)

// run wraps fn with tracing, metrics, logging and, for mutations, auditing.
// fn returns the identifier of the affected entity when one is known.
func (o serviceOptions) run(ctx context.Context, op operation, fn func(context.Context) (string, error)) error {
	start := o.clock.Now()
	ctx, span := o.tracer.Start(ctx, op.name)
	entityID, err := fn(ctx)
	duration := o.clock.Now().Sub(start)
	span.End(err)
	o.metrics.Observe(ctx, op.name, err == nil, duration)

	switch {
	case err == nil:
		o.logger.Debug("catalog operation", "operation", op.name, "entity_id", entityID, "duration", duration)
	case domain.IsValidation(err) || domain.IsDuplicate(err) || domain.IsNotFound(err):
		o.logger.Warn("catalog operation rejected", "operation", op.name, "entity_id", entityID, "error", err)
	default:
		o.logger.Error("catalog operation failed", "operation", op.name, "entity_id", entityID, "error", err)
	}

	if op.action == domain.ActionRead {
		return err
	}
	entry := AuditEntry{
		Operation: op.name,
		Entity:    op.entity,
		Action:    op.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: start,
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	o.audit.Record(ctx, entry)
	return err
}

// withLock runs fn while holding the mutation lock for key.
func (o serviceOptions) withLock(ctx context.Context, key string, fn func() error) error {
	unlock, err := o.locker.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
