package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

// RecordClassifier decides storage eligibility. Implementations must be pure.
type RecordClassifier interface {
	Classify(record domain.AnalysisRecord) domain.Classification
}

// ProjectionBuilder turns a storable record into its safe projection.
type ProjectionBuilder interface {
	Build(record domain.AnalysisRecord, cls domain.Classification) (domain.SafeProjection, error)
}

// RecordStore is the storage manager contract.
type RecordStore interface {
	Store(ctx context.Context, projection domain.SafeProjection) (string, error)
	Retrieve(ctx context.Context, storageID string) (domain.SafeProjection, error)
	Delete(ctx context.Context, storageID string) (bool, error)
	SweepExpired(ctx context.Context) (int, error)
	Stats(ctx context.Context) domain.StorageStats
}

// IntakeService is the external contract of the classification core.
type IntakeService interface {
	ClassifyAndStore(ctx context.Context, record domain.AnalysisRecord) domain.StoreOutcome
	Retrieve(ctx context.Context, storageID string) (domain.SafeProjection, error)
	Delete(ctx context.Context, storageID string) (bool, error)
	Stats(ctx context.Context) domain.StorageStats
}

// AnalysisService runs notes and letters through the AI step and the intake core.
type AnalysisService interface {
	AnalyzeNotes(ctx context.Context, notes string) (*domain.NotesReport, error)
	AnalyzeLetter(ctx context.Context, filename string, body io.Reader) (*domain.LetterReport, error)
}

// AuditReporter reads and exports the audit trail.
type AuditReporter interface {
	Entries(ctx context.Context, day time.Time) ([]domain.AuditEntry, error)
	Export(ctx context.Context, day time.Time) ([]byte, error)
}

// RetentionPolicy reports how long each category is kept. Zero means the
// category is never persisted.
type RetentionPolicy interface {
	RetentionDays(category domain.Category) int
}
