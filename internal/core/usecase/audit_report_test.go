package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

type exporterFake struct {
	got []domain.AuditEntry
}

func (f *exporterFake) Export(entries []domain.AuditEntry) ([]byte, error) {
	f.got = entries
	return []byte("xlsx"), nil
}

func TestAuditReportEntriesByDay(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	audit := &memoryAudit{entries: []domain.AuditEntry{
		{Timestamp: day.Add(time.Hour), StorageID: "a", Action: domain.AuditStore, Category: domain.CategoryClinicalOutput},
		{Timestamp: day.Add(25 * time.Hour), StorageID: "b", Action: domain.AuditStore, Category: domain.CategoryClinicalOutput},
	}}
	exporter := &exporterFake{}
	uc := NewAuditReportUseCase(audit, exporter)

	entries, err := uc.Entries(context.Background(), day)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 1 || entries[0].StorageID != "a" {
		t.Fatalf("unexpected entries %+v", entries)
	}

	empty, err := uc.Entries(context.Background(), day.AddDate(0, 0, 5))
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v err=%v", empty, err)
	}

	data, err := uc.Export(context.Background(), day)
	if err != nil || string(data) != "xlsx" {
		t.Fatalf("export: %q %v", data, err)
	}
	if len(exporter.got) != 1 {
		t.Fatalf("exporter received %d entries", len(exporter.got))
	}
}

func TestAuditReportBackendFailure(t *testing.T) {
	uc := NewAuditReportUseCase(&memoryAudit{err: errBackendDown}, &exporterFake{})
	if _, err := uc.Export(context.Background(), time.Now()); !errors.Is(err, domain.ErrBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestParseAuditDay(t *testing.T) {
	day, err := ParseAuditDay("20260301")
	if err != nil || !day.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected day %v err=%v", day, err)
	}
	for _, raw := range []string{"", "2026-03-01", "20261301", "../../x"} {
		if _, err := ParseAuditDay(raw); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("ParseAuditDay(%q): expected invalid input, got %v", raw, err)
		}
	}
}
