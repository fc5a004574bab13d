package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/medical-intake/internal/config"
	"github.com/kirillkom/medical-intake/internal/core/classifier"
	"github.com/kirillkom/medical-intake/internal/core/domain"
	"github.com/kirillkom/medical-intake/internal/core/ports"
	"github.com/kirillkom/medical-intake/internal/core/projection"
	"github.com/kirillkom/medical-intake/internal/core/usecase"
	auditlocal "github.com/kirillkom/medical-intake/internal/infrastructure/audit/localfs"
	"github.com/kirillkom/medical-intake/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/medical-intake/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/medical-intake/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/medical-intake/internal/infrastructure/llm/fallback"
	"github.com/kirillkom/medical-intake/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/medical-intake/internal/infrastructure/llm/openai"
	"github.com/kirillkom/medical-intake/internal/infrastructure/queue/nats"
	"github.com/kirillkom/medical-intake/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/medical-intake/internal/infrastructure/resilience"
	storagelocal "github.com/kirillkom/medical-intake/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/medical-intake/internal/infrastructure/storage/objectstore"
	"github.com/kirillkom/medical-intake/internal/observability/metrics"
)

// Options carries process-specific observability hooks.
type Options struct {
	Service        string
	Registry       prometheus.Registerer
	IntakeObserver ports.IntakeObserver
}

type App struct {
	Config config.Config

	Queue     ports.SweepQueue
	Storage   *usecase.StorageManager
	IntakeUC  ports.IntakeService
	AnalyzeUC ports.AnalysisService
	AuditUC   ports.AuditReporter

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	var (
		storageObserver ports.StorageObserver
		executorOpts    []resilience.Option
	)
	if opts.Registry != nil {
		m := metrics.NewStorageMetrics(opts.Service, opts.Registry)
		storageObserver = m
		executorOpts = append(executorOpts, resilience.WithObserver(m))
	}
	executor := resilience.NewExecutor(resilienceConfig(cfg), executorOpts...)

	policy, err := classifier.LoadPolicy(cfg.ClassifierPolicyPath)
	if err != nil {
		return nil, fmt.Errorf("load classifier policy: %w", err)
	}
	recordClassifier, err := classifier.New(policy)
	if err != nil {
		return nil, fmt.Errorf("init classifier: %w", err)
	}

	backend, err := newRecordBackend(ctx, cfg, executor)
	if err != nil {
		return nil, err
	}

	auditLog, db, err := newAuditLog(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSweepSubject, nats.Options{ResilienceExecutor: executor})
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	storageOpts := []usecase.StorageOption{usecase.WithBackendTimeout(cfg.BackendTimeout)}
	if storageObserver != nil {
		storageOpts = append(storageOpts, usecase.WithStorageObserver(storageObserver))
	}
	storage := usecase.NewStorageManager(backend, auditLog, recordClassifier, storageOpts...)

	intakeUC := usecase.NewIntakeUseCase(recordClassifier, projection.NewBuilder(), storage, opts.IntakeObserver)
	analyzeUC := usecase.NewAnalyzeUseCase(
		intakeUC,
		newSummarizer(cfg, executor),
		fallback.New(),
		map[string]ports.TextExtractor{
			".pdf": pdf.NewExtractor(cfg.MaxUploadBytes),
			".txt": plaintext.NewExtractor(cfg.MaxUploadBytes),
		},
		cfg.MaxPatientDataLength,
	)
	auditUC := usecase.NewAuditReportUseCase(auditLog, xlsx.NewExporter())

	slog.Info("bootstrap_completed",
		"storage_backend", backend.Name(),
		"audit_backend", cfg.AuditBackend,
		"ai_provider", cfg.AIProvider,
		"classifier_rules", len(policy.Rules),
	)

	return &App{
		Config:    cfg,
		Queue:     queue,
		Storage:   storage,
		IntakeUC:  intakeUC,
		AnalyzeUC: analyzeUC,
		AuditUC:   auditUC,

		closeFn: func() {
			queue.Close()
			if db != nil {
				_ = db.Close()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	rc := resilience.DefaultConfig()
	rc.RetryMaxAttempts = cfg.ResilienceRetryMaxAttempts
	rc.BreakerEnabled = cfg.ResilienceBreakerEnabled
	return rc
}

func newRecordBackend(ctx context.Context, cfg config.Config, executor *resilience.Executor) (ports.RecordBackend, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendLocal:
		backend, err := storagelocal.New(cfg.StoragePath, domain.StorableCategories...)
		if err != nil {
			return nil, fmt.Errorf("init local record storage: %w", err)
		}
		return backend, nil
	case config.StorageBackendMinio:
		backend, err := objectstore.New(ctx, objectstore.Config{
			Endpoint:  cfg.MinioEndpoint,
			Region:    cfg.MinioRegion,
			Bucket:    cfg.MinioBucket,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
			Prefix:    cfg.MinioPrefix,
		}, executor)
		if err != nil {
			return nil, fmt.Errorf("init object storage: %w", err)
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}
}

func newAuditLog(ctx context.Context, cfg config.Config) (ports.AuditLog, *sql.DB, error) {
	switch cfg.AuditBackend {
	case config.AuditBackendLocal:
		log, err := auditlocal.New(cfg.StoragePath)
		if err != nil {
			return nil, nil, fmt.Errorf("init local audit log: %w", err)
		}
		return log, nil, nil
	case config.AuditBackendPostgres:
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewAuditRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure audit schema: %w", err)
		}
		return repo, db, nil
	default:
		return nil, nil, fmt.Errorf("unsupported AUDIT_BACKEND %q", cfg.AuditBackend)
	}
}

// newSummarizer returns nil when notes should go straight to the keyword
// fallback.
func newSummarizer(cfg config.Config, executor *resilience.Executor) ports.Summarizer {
	switch cfg.AIProvider {
	case config.AIProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			slog.Warn("openai_api_key_missing", "fallback", "keyword")
			return nil
		}
		return openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL, cfg.AITimeout, executor)
	case config.AIProviderOllama:
		return ollama.NewSummarizer(ollama.New(cfg.OllamaURL, cfg.OllamaModel, cfg.AITimeout, executor))
	default:
		return nil
	}
}
