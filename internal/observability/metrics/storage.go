package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

// StorageMetrics is shared by the API and the worker. It observes the
// storage manager and the resilience executors around backends and AI calls.
type StorageMetrics struct {
	service string

	backendErrorsTotal *prometheus.CounterVec
	auditGapsTotal     *prometheus.CounterVec
	retriesTotal       *prometheus.CounterVec
	breakerState       *prometheus.GaugeVec
}

func NewStorageMetrics(service string, registry prometheus.Registerer) *StorageMetrics {
	backendErrorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "backend_errors_total",
			Help:      "Record backend failures by storage operation.",
		},
		[]string{"service", "operation"},
	)
	auditGapsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "write_failures_total",
			Help:      "Audit entries that could not be written.",
		},
		[]string{"service", "action"},
	)
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "retries_total",
			Help:      "Retried calls by operation.",
		},
		[]string{"service", "operation"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "breaker_state",
			Help:      "Circuit breaker state by operation (0 closed, 1 half-open, 2 open).",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(backendErrorsTotal, auditGapsTotal, retriesTotal, breakerState)

	return &StorageMetrics{
		service:            service,
		backendErrorsTotal: backendErrorsTotal,
		auditGapsTotal:     auditGapsTotal,
		retriesTotal:       retriesTotal,
		breakerState:       breakerState,
	}
}

func (m *StorageMetrics) ObserveBackendError(operation string) {
	m.backendErrorsTotal.WithLabelValues(m.service, operation).Inc()
}

func (m *StorageMetrics) ObserveAuditGap(action domain.AuditAction) {
	m.auditGapsTotal.WithLabelValues(m.service, string(action)).Inc()
}

func (m *StorageMetrics) ObserveRetry(operation string) {
	m.retriesTotal.WithLabelValues(m.service, operation).Inc()
}

func (m *StorageMetrics) ObserveBreakerState(operation, state string) {
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	m.breakerState.WithLabelValues(m.service, operation).Set(v)
}
