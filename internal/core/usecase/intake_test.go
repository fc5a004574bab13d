package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/medical-intake/internal/core/classifier"
	"github.com/kirillkom/medical-intake/internal/core/domain"
	"github.com/kirillkom/medical-intake/internal/core/projection"
)

type recordStoreFake struct {
	stored    []domain.SafeProjection
	storeErr  error
	getErr    error
	deleteErr error
}

func (f *recordStoreFake) Store(_ context.Context, p domain.SafeProjection) (string, error) {
	if f.storeErr != nil {
		return "", f.storeErr
	}
	f.stored = append(f.stored, p)
	return "20260301T100000Z_0123456789abcdef", nil
}

func (f *recordStoreFake) Retrieve(context.Context, string) (domain.SafeProjection, error) {
	if f.getErr != nil {
		return domain.SafeProjection{}, f.getErr
	}
	return domain.SafeProjection{}, domain.ErrRecordNotFound
}

func (f *recordStoreFake) Delete(context.Context, string) (bool, error) {
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	return false, nil
}

func (f *recordStoreFake) SweepExpired(context.Context) (int, error) { return 0, nil }

func (f *recordStoreFake) Stats(context.Context) domain.StorageStats {
	return domain.StorageStats{Backend: "fake"}
}

func newIntake(store *recordStoreFake, observer *intakeObserverFake) *IntakeUseCase {
	return NewIntakeUseCase(classifier.NewDefault(), projection.NewBuilder(), store, observer)
}

func TestClassifyAndStoreRejectsSensitive(t *testing.T) {
	store := &recordStoreFake{}
	observer := &intakeObserverFake{}
	uc := newIntake(store, observer)

	out := uc.ClassifyAndStore(context.Background(), domain.AnalysisRecord{
		"patient_name":  "John Doe",
		"urgency_level": "high",
	})
	if out.Status != domain.StoreStatusRejected || out.StorageID != nil {
		t.Fatalf("expected rejection without id, got %+v", out)
	}
	if out.Reason != reasonRejected {
		t.Fatalf("unexpected reason %q", out.Reason)
	}
	if len(store.stored) != 0 {
		t.Fatalf("sensitive record reached the store")
	}
	if len(observer.statuses) != 1 || observer.statuses[0] != domain.StoreStatusRejected {
		t.Fatalf("unexpected observations %v", observer.statuses)
	}
}

func TestClassifyAndStoreRejectsUnknown(t *testing.T) {
	store := &recordStoreFake{}
	uc := newIntake(store, nil)

	out := uc.ClassifyAndStore(context.Background(), domain.AnalysisRecord{"foo": "bar"})
	if out.Status != domain.StoreStatusRejected {
		t.Fatalf("expected rejection, got %+v", out)
	}
	if len(store.stored) != 0 {
		t.Fatalf("unknown record reached the store")
	}
}

func TestClassifyAndStoreStoresClinical(t *testing.T) {
	store := &recordStoreFake{}
	observer := &intakeObserverFake{}
	uc := newIntake(store, observer)

	out := uc.ClassifyAndStore(context.Background(), clinicalRecord())
	if !out.Stored() || *out.StorageID == "" {
		t.Fatalf("expected stored outcome, got %+v", out)
	}
	if out.Category != domain.CategoryClinicalOutput || out.Reason != reasonStored {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(store.stored) != 1 {
		t.Fatalf("expected one stored projection")
	}
	p := store.stored[0]
	if p.Classification.RetentionDays != 30 || p.DataHash == "" {
		t.Fatalf("unexpected projection %+v", p)
	}
	if observer.statuses[0] != domain.StoreStatusStored {
		t.Fatalf("unexpected observations %v", observer.statuses)
	}
}

func TestClassifyAndStoreBackendFailure(t *testing.T) {
	store := &recordStoreFake{storeErr: domain.WrapError(domain.ErrBackend, "store record", errBackendDown)}
	uc := newIntake(store, nil)

	out := uc.ClassifyAndStore(context.Background(), clinicalRecord())
	if out.Status != domain.StoreStatusError || out.StorageID != nil {
		t.Fatalf("expected error outcome without id, got %+v", out)
	}
	if out.Reason != reasonError {
		t.Fatalf("reason must be generic, got %q", out.Reason)
	}
}

func TestClassifyAndStoreEndToEnd(t *testing.T) {
	c := &clock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	backend := newMemoryBackend()
	audit := &memoryAudit{}
	manager := newTestManager(backend, audit, c)
	uc := NewIntakeUseCase(classifier.NewDefault(), projection.NewBuilderWithClock(c.Now), manager, nil)

	out := uc.ClassifyAndStore(context.Background(), domain.AnalysisRecord{
		"analysis_id":     "x",
		"processing_time": 1.2,
		"model_used":      "m",
		"internal_note":   "kept out of storage",
	})
	if !out.Stored() || out.Category != domain.CategoryAnalysisMetadata {
		t.Fatalf("expected metadata stored, got %+v", out)
	}

	p, err := uc.Retrieve(context.Background(), *out.StorageID)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	fields := p.Fields()
	if _, leaked := fields["internal_note"]; leaked || len(fields) != 3 {
		t.Fatalf("projection carries unexpected fields: %v", fields)
	}

	deleted, err := uc.Delete(context.Background(), *out.StorageID)
	if err != nil || !deleted {
		t.Fatalf("delete: %v %v", deleted, err)
	}
	if _, err := uc.Retrieve(context.Background(), *out.StorageID); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if got := uc.Stats(context.Background()); got.TotalItems != 0 {
		t.Fatalf("expected empty stats, got %+v", got)
	}
}

func TestIntakeCollapsesBackendErrors(t *testing.T) {
	backendErr := domain.WrapError(domain.ErrBackend, "x", errBackendDown)
	uc := newIntake(&recordStoreFake{getErr: backendErr, deleteErr: backendErr}, nil)

	if _, err := uc.Retrieve(context.Background(), "id"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	deleted, err := uc.Delete(context.Background(), "id")
	if deleted || err != nil {
		t.Fatalf("expected false/nil, got %v/%v", deleted, err)
	}
}
