package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kirillkom/medical-intake/internal/core/domain"
	"github.com/kirillkom/medical-intake/internal/core/ports"
)

const (
	reasonStored   = "Analysis result stored successfully"
	reasonRejected = "Data classification rejected storage"
	reasonError    = "Storage unavailable - analysis result was not persisted"
)

// IntakeUseCase runs classify, build and store as one unit. Nothing is
// persisted unless all three succeed.
type IntakeUseCase struct {
	classifier ports.RecordClassifier
	builder    ports.ProjectionBuilder
	store      ports.RecordStore
	observer   ports.IntakeObserver
}

func NewIntakeUseCase(
	classifier ports.RecordClassifier,
	builder ports.ProjectionBuilder,
	store ports.RecordStore,
	observer ports.IntakeObserver,
) *IntakeUseCase {
	return &IntakeUseCase{
		classifier: classifier,
		builder:    builder,
		store:      store,
		observer:   observer,
	}
}

func (uc *IntakeUseCase) ClassifyAndStore(ctx context.Context, record domain.AnalysisRecord) domain.StoreOutcome {
	cls := uc.classifier.Classify(record)
	if !cls.CanStore {
		slog.Info("classification_rejected",
			"category", string(cls.Category),
			"sensitivity", string(cls.Sensitivity),
			"field_count", len(record),
		)
		return uc.outcome(domain.StoreOutcome{Status: domain.StoreStatusRejected, Reason: reasonRejected}, cls.Category)
	}

	projection, err := uc.builder.Build(record, cls)
	if err != nil {
		slog.Error("projection_build_failed", "category", string(cls.Category), "error", err.Error())
		return uc.outcome(domain.StoreOutcome{Status: domain.StoreStatusError, Reason: reasonError}, cls.Category)
	}

	id, err := uc.store.Store(ctx, projection)
	if err != nil {
		return uc.outcome(domain.StoreOutcome{Status: domain.StoreStatusError, Reason: reasonError}, cls.Category)
	}

	return uc.outcome(domain.StoreOutcome{
		StorageID: &id,
		Status:    domain.StoreStatusStored,
		Reason:    reasonStored,
		Category:  cls.Category,
	}, cls.Category)
}

// Retrieve collapses backend failures into not-found for callers.
func (uc *IntakeUseCase) Retrieve(ctx context.Context, storageID string) (domain.SafeProjection, error) {
	p, err := uc.store.Retrieve(ctx, storageID)
	if err != nil {
		if errors.Is(err, domain.ErrBackend) {
			return domain.SafeProjection{}, domain.WrapError(domain.ErrRecordNotFound, "retrieve record", err)
		}
		return domain.SafeProjection{}, err
	}
	return p, nil
}

// Delete reports false for unknown ids and for backend failures alike.
func (uc *IntakeUseCase) Delete(ctx context.Context, storageID string) (bool, error) {
	deleted, err := uc.store.Delete(ctx, storageID)
	if err != nil && errors.Is(err, domain.ErrBackend) {
		return false, nil
	}
	return deleted, err
}

func (uc *IntakeUseCase) Stats(ctx context.Context) domain.StorageStats {
	return uc.store.Stats(ctx)
}

func (uc *IntakeUseCase) outcome(out domain.StoreOutcome, category domain.Category) domain.StoreOutcome {
	if uc.observer != nil {
		uc.observer.ObserveIntake(out.Status, category)
	}
	return out
}
