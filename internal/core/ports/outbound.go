package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

// RecordBackend persists serialized projections keyed by (category, id).
// Put must be atomic per key: readers observe either the whole record or none.
// Get and Delete return domain.ErrRecordNotFound for absent keys.
type RecordBackend interface {
	Put(ctx context.Context, category domain.Category, id string, data []byte) error
	Get(ctx context.Context, category domain.Category, id string) ([]byte, error)
	Delete(ctx context.Context, category domain.Category, id string) error
	List(ctx context.Context, category domain.Category) ([]domain.ObjectInfo, error)
	Name() string
}

// AuditLog is the append-only, day-partitioned audit trail.
type AuditLog interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	ListByDay(ctx context.Context, day time.Time) ([]domain.AuditEntry, error)
}

// Summarizer is the external AI step.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (domain.AnalysisSummary, error)
}

// TextExtractor turns an uploaded document into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, filename string, body io.Reader) (string, error)
}

type SweepPublisher interface {
	PublishSweepRequested(ctx context.Context, reason string) error
}

// SweepQueue carries on-demand retention sweep requests to the worker.
type SweepQueue interface {
	SweepPublisher
	SubscribeSweepRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// AuditExporter renders audit entries into a downloadable document.
type AuditExporter interface {
	Export(entries []domain.AuditEntry) ([]byte, error)
}

// StorageObserver receives storage-side signals that do not fail the caller.
type StorageObserver interface {
	ObserveBackendError(operation string)
	ObserveAuditGap(action domain.AuditAction)
}

// IntakeObserver counts classify-and-store outcomes.
type IntakeObserver interface {
	ObserveIntake(status domain.StoreStatus, category domain.Category)
}
