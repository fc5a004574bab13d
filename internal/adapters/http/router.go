package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/medical-intake/internal/config"
	"github.com/kirillkom/medical-intake/internal/core/ports"
)

const serviceName = "api"

// ServerMetrics is the subset of the Prometheus registry the router drives.
type ServerMetrics interface {
	Handler() http.Handler
	Middleware(service string, next http.Handler) http.Handler
	RecordAnalysis(kind, model string, tokens int, duration time.Duration)
	RecordRateLimited()
}

type Router struct {
	cfg      config.Config
	analysis ports.AnalysisService
	intake   ports.IntakeService
	audit    ports.AuditReporter
	sweeps   ports.SweepPublisher
	metrics  ServerMetrics
}

func NewRouter(
	cfg config.Config,
	analysis ports.AnalysisService,
	intake ports.IntakeService,
	audit ports.AuditReporter,
	sweeps ports.SweepPublisher,
) *Router {
	return &Router{
		cfg:      cfg,
		analysis: analysis,
		intake:   intake,
		audit:    audit,
		sweeps:   sweeps,
	}
}

func (rt *Router) WithMetrics(m ServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(requestIDMiddleware, accessLogMiddleware)
	if len(rt.cfg.AllowedOrigins) > 0 {
		mux.Use(corsMiddleware(rt.cfg.AllowedOrigins))
	}

	mux.Get("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Method(http.MethodGet, "/metrics", rt.metrics.Handler())
	}

	mux.Group(func(r chi.Router) {
		var onLimited func()
		if rt.metrics != nil {
			onLimited = rt.metrics.RecordRateLimited
		}
		r.Use(rateLimitMiddleware(rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, onLimited))
		r.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.cfg.APIBackpressureMaxInFlight, rt.cfg.APIBackpressureWait)
		})

		r.Post("/v1/patient-data", rt.processPatientData)
		r.Post("/v1/letters", rt.uploadLetter)

		r.Post("/v1/records", rt.storeRecord)
		r.Get("/v1/records/{storage_id}", rt.getRecord)
		r.Delete("/v1/records/{storage_id}", rt.deleteRecord)

		r.Get("/v1/storage/stats", rt.storageStats)
		r.Post("/v1/storage/sweep", rt.requestSweep)

		r.Get("/v1/audit/{day}", rt.auditEntries)
		r.Get("/v1/audit/{day}/export", rt.auditExport)
	})

	if rt.metrics != nil {
		return rt.metrics.Middleware(serviceName, mux)
	}
	return mux
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"api_version": rt.cfg.APIVersion,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err.Error(),
		)
	}
	writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  publicErrorMessage(status, err),
	})
}
