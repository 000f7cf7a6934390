// Package metrics provides Prometheus metrics collection.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors shared across the control plane's
// gRPC interceptors, core services, and the ops HTTP surface.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	inFlight        int64
	InFlightGauge   prometheus.Gauge

	OperationsClaimed  *prometheus.CounterVec
	OperationsFinished *prometheus.CounterVec
	QueueDepth         prometheus.Gauge

	HypervisorCalls *prometheus.CounterVec
	AuthzChecks     *prometheus.CounterVec
}

// New registers and returns a fresh Metrics instance.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		InFlightGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "inflight_requests",
			Help: "Current number of in-flight HTTP requests.",
		}),
		OperationsClaimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "queue", Name: "operations_claimed_total",
			Help: "Operations claimed by a worker, by kind.",
		}, []string{"kind", "target_backend"}),
		OperationsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "queue", Name: "operations_finished_total",
			Help: "Operations reaching a terminal state, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "queue", Name: "pending_depth",
			Help: "Pending operations observed at last poll.",
		}),
		HypervisorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "hypervisor", Name: "calls_total",
			Help: "Calls issued against a hypervisor backend, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		AuthzChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "authz", Name: "checks_total",
			Help: "Authorization checks, by permission and outcome.",
		}, []string{"permission", "outcome"}),
	}

	reg.MustRegister(
		m.RequestsTotal, m.RequestDuration, m.InFlightGauge,
		m.OperationsClaimed, m.OperationsFinished, m.QueueDepth,
		m.HypervisorCalls, m.AuthzChecks,
	)
	return m
}

// IncrementInFlight increments the in-flight HTTP request gauge.
func (m *Metrics) IncrementInFlight() {
	atomic.AddInt64(&m.inFlight, 1)
	m.InFlightGauge.Inc()
}

// DecrementInFlight decrements the in-flight HTTP request gauge.
func (m *Metrics) DecrementInFlight() {
	atomic.AddInt64(&m.inFlight, -1)
	m.InFlightGauge.Dec()
}

// RecordHTTPRequest records one finished HTTP request.
func (m *Metrics) RecordHTTPRequest(service, method, path, status string, d time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
