package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tutorcore/internal/core"
)

var _ core.MetricsRecorder = (*PrometheusRecorder)(nil)

// PrometheusRecorder counts catalog operations by outcome and observes their
// latency.
type PrometheusRecorder struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the catalog collectors with reg.
func NewPrometheusRecorder(reg prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tutorcore",
			Subsystem: "catalog",
			Name:      "operations_total",
			Help:      "Catalog operations by outcome.",
		}, []string{"operation", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tutorcore",
			Subsystem: "catalog",
			Name:      "operation_duration_seconds",
			Help:      "Catalog operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	for _, c := range []prometheus.Collector{r.operations, r.latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe implements core.MetricsRecorder.
func (r *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	status := string(core.AuditStatusSuccess)
	if !success {
		status = string(core.AuditStatusError)
	}
	r.operations.WithLabelValues(operation, status).Inc()
	r.latency.WithLabelValues(operation).Observe(duration.Seconds())
}
