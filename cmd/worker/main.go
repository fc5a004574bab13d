package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/medical-intake/internal/bootstrap"
	"github.com/kirillkom/medical-intake/internal/config"
	"github.com/kirillkom/medical-intake/internal/core/usecase"
	"github.com/kirillkom/medical-intake/internal/observability/logging"
	"github.com/kirillkom/medical-intake/internal/observability/metrics"
)

const (
	serviceName  = "worker"
	sweepTimeout = 5 * time.Minute
)

func main() {
	cfg := config.Load()
	logging.Setup(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Service:  serviceName,
		Registry: workerMetrics.Registry(),
	})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	s := &sweeper{storage: app.Storage, metrics: workerMetrics}
	s.run(ctx, "startup")
	go s.loop(ctx, cfg.SweepInterval)

	slog.Info("worker_subscribed", "subject", cfg.NATSSweepSubject, "sweep_interval", cfg.SweepInterval.String())
	err = app.Queue.SubscribeSweepRequested(ctx, func(handlerCtx context.Context, reason string) error {
		slog.Info("sweep_requested", "reason", reason)
		return s.run(handlerCtx, "request")
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}

type sweeper struct {
	storage *usecase.StorageManager
	metrics *metrics.WorkerMetrics
}

func (s *sweeper) loop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.run(ctx, "interval")
		}
	}
}

func (s *sweeper) run(ctx context.Context, trigger string) error {
	sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	s.metrics.StartSweep()
	started := time.Now()
	deleted, err := s.storage.SweepExpired(sweepCtx)
	s.metrics.FinishSweep(serviceName, trigger, deleted, time.Since(started), err)
	if err != nil {
		slog.Error("retention_sweep_failed", "trigger", trigger, "deleted", deleted, "error", err)
	}

	stats := s.storage.Stats(sweepCtx)
	byCategory := make(map[string]int, len(stats.Categories))
	for category, n := range stats.Categories {
		byCategory[string(category)] = n
	}
	s.metrics.ObserveStoredRecords(serviceName, byCategory, stats.Partial)
	return err
}
