package localfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

func TestPutGetDeleteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if err := s.Put(ctx, domain.CategoryClinicalOutput, "20250811T143000Z_abc", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "clinical_output", "20250811T143000Z_abc.json")); err != nil {
		t.Fatalf("expected file in category dir: %v", err)
	}

	raw, err := s.Get(ctx, domain.CategoryClinicalOutput, "20250811T143000Z_abc")
	if err != nil || string(raw) != `{"a":1}` {
		t.Fatalf("Get() = %q, %v", raw, err)
	}

	if _, err := s.Get(ctx, domain.CategoryAnalysisMetadata, "20250811T143000Z_abc"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected not found in other category, got %v", err)
	}

	items, err := s.List(ctx, domain.CategoryClinicalOutput)
	if err != nil || len(items) != 1 || items[0].ID != "20250811T143000Z_abc" || items[0].SizeBytes != 7 {
		t.Fatalf("List() = %+v, %v", items, err)
	}

	if err := s.Delete(ctx, domain.CategoryClinicalOutput, "20250811T143000Z_abc"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, domain.CategoryClinicalOutput, "20250811T143000Z_abc"); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestListSkipsTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "analysis_metadata", ".tmp-x-123"), []byte("partial"), 0o600); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	items, err := s.List(context.Background(), domain.CategoryAnalysisMetadata)
	if err != nil || len(items) != 0 {
		t.Fatalf("expected no items, got %+v, %v", items, err)
	}
}

func TestRejectsTraversalAndUnstorableCategories(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()
	if err := s.Put(ctx, domain.CategoryClinicalOutput, "../escape", []byte("x")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for traversal, got %v", err)
	}
	if err := s.Put(ctx, domain.CategorySensitive, "id", []byte("x")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for sensitive category, got %v", err)
	}
}

func TestPutOverwritesAtomically(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()
	for _, body := range []string{"first", "second"} {
		if err := s.Put(ctx, domain.CategoryClinicalOutput, "id1", []byte(body)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	raw, _ := s.Get(ctx, domain.CategoryClinicalOutput, "id1")
	if string(raw) != "second" {
		t.Fatalf("expected last write, got %q", raw)
	}
}
