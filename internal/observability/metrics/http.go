package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

const namespace = "intake"

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	intakeTotal      *prometheus.CounterVec
	analysisTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	llmTokensTotal   *prometheus.CounterVec
	rateLimitedTotal prometheus.Counter
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	intakeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "outcomes_total",
			Help:      "Classify-and-store outcomes by status and category.",
		},
		[]string{"service", "status", "category"},
	)
	analysisTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "requests_total",
			Help:      "Completed analyses by kind and model.",
		},
		[]string{"service", "kind", "model"},
	)
	analysisDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "duration_seconds",
			Help:      "End-to-end analysis duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"service", "kind"},
	)
	llmTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens reported by the AI provider.",
		},
		[]string{"service", "model"},
	)
	rateLimitedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		intakeTotal,
		analysisTotal,
		analysisDuration,
		llmTokensTotal,
		rateLimitedTotal,
	)

	return &HTTPServerMetrics{
		registry:         registry,
		service:          service,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		intakeTotal:      intakeTotal,
		analysisTotal:    analysisTotal,
		analysisDuration: analysisDuration,
		llmTokensTotal:   llmTokensTotal,
		rateLimitedTotal: rateLimitedTotal,
	}
}

// Registry lets shared collectors (storage, resilience) join the /metrics output.
func (m *HTTPServerMetrics) Registry() prometheus.Registerer {
	return m.registry
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath keeps record ids and audit days out of label values.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/records/"):
		return "/v1/records/{storage_id}"
	case strings.HasPrefix(path, "/v1/audit/") && strings.HasSuffix(path, "/export"):
		return "/v1/audit/{day}/export"
	case strings.HasPrefix(path, "/v1/audit/"):
		return "/v1/audit/{day}"
	default:
		return path
	}
}

// ObserveIntake implements ports.IntakeObserver.
func (m *HTTPServerMetrics) ObserveIntake(status domain.StoreStatus, category domain.Category) {
	if category == "" {
		category = domain.CategoryUnknown
	}
	m.intakeTotal.WithLabelValues(m.service, string(status), string(category)).Inc()
}

func (m *HTTPServerMetrics) RecordAnalysis(kind, model string, tokens int, duration time.Duration) {
	if model == "" {
		model = "unknown"
	}
	m.analysisTotal.WithLabelValues(m.service, kind, model).Inc()
	m.analysisDuration.WithLabelValues(m.service, kind).Observe(duration.Seconds())
	if tokens > 0 {
		m.llmTokensTotal.WithLabelValues(m.service, model).Add(float64(tokens))
	}
}

func (m *HTTPServerMetrics) RecordRateLimited() {
	m.rateLimitedTotal.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
