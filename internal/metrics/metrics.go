// Package metrics exposes prometheus instrumentation for the business
// object stores.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics counts store operations and tracks their latency, labeled by
// entity, operation, and outcome.
type StoreMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewStoreMetrics registers the store metric vectors with the given
// registerer.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "object_store_operations_total",
			Help: "Total business object store operations by entity, operation, and status.",
		}, []string{"entity", "operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "object_store_operation_duration_seconds",
			Help:    "Business object store operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"entity", "operation"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.duration)
	}
	return m
}

// Observe records one completed operation.
func (m *StoreMetrics) Observe(entity, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.operations.WithLabelValues(entity, operation, status).Inc()
	m.duration.WithLabelValues(entity, operation).Observe(time.Since(start).Seconds())
}
