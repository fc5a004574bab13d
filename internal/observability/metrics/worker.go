package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	sweepTotal    *prometheus.CounterVec
	sweepDuration *prometheus.HistogramVec
	sweepInFlight prometheus.Gauge
	sweptRecords  *prometheus.CounterVec
	storedRecords *prometheus.GaugeVec
	statsPartial  prometheus.Gauge
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	sweepTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "retention_sweeps_total",
			Help:      "Total retention sweeps by trigger and status.",
		},
		[]string{"service", "trigger", "status"},
	)
	sweepDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "retention_sweep_duration_seconds",
			Help:      "Retention sweep duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	sweepInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "retention_sweep_in_flight",
			Help:      "Number of running retention sweeps.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	sweptRecords := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "expired_records_deleted_total",
			Help:      "Records removed by retention sweeps.",
		},
		[]string{"service"},
	)
	storedRecords := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "records",
			Help:      "Persisted records by category after the last sweep.",
		},
		[]string{"service", "category"},
	)
	statsPartial := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "stats_partial",
			Help:      "1 when the last storage stats could not list every category.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(sweepTotal, sweepDuration, sweepInFlight, sweptRecords, storedRecords, statsPartial)

	return &WorkerMetrics{
		registry:      registry,
		sweepTotal:    sweepTotal,
		sweepDuration: sweepDuration,
		sweepInFlight: sweepInFlight,
		sweptRecords:  sweptRecords,
		storedRecords: storedRecords,
		statsPartial:  statsPartial,
	}
}

func (m *WorkerMetrics) Registry() prometheus.Registerer {
	return m.registry
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartSweep() {
	m.sweepInFlight.Inc()
}

func (m *WorkerMetrics) FinishSweep(service, trigger string, deleted int, duration time.Duration, err error) {
	m.sweepInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.sweepTotal.WithLabelValues(service, trigger, status).Inc()
	m.sweepDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	if deleted > 0 {
		m.sweptRecords.WithLabelValues(service).Add(float64(deleted))
	}
}

func (m *WorkerMetrics) ObserveStoredRecords(service string, byCategory map[string]int, partial bool) {
	for category, n := range byCategory {
		m.storedRecords.WithLabelValues(service, category).Set(float64(n))
	}
	if partial {
		m.statsPartial.Set(1)
		return
	}
	m.statsPartial.Set(0)
}
