package localfs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

func TestAppendPartitionsByDay(t *testing.T) {
	base := t.TempDir()
	l, err := New(base)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()
	day1 := time.Date(2025, 8, 11, 23, 59, 0, 0, time.UTC)
	day2 := day1.Add(2 * time.Minute)

	for _, e := range []domain.AuditEntry{
		{Timestamp: day1, StorageID: "a", Action: domain.AuditStore, Category: domain.CategoryClinicalOutput},
		{Timestamp: day1, StorageID: "a", Action: domain.AuditRetrieve, Category: domain.CategoryClinicalOutput},
		{Timestamp: day2, StorageID: "a", Action: domain.AuditDelete, Category: domain.CategoryClinicalOutput},
	} {
		if err := l.Append(ctx, e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	raw, err := os.ReadFile(filepath.Join(base, "audit_logs", "audit_20250811.json"))
	if err != nil {
		t.Fatalf("read day file: %v", err)
	}
	var onDisk []map[string]any
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("day file is not a JSON array: %v", err)
	}
	if len(onDisk) != 2 || onDisk[1]["action"] != "retrieve" {
		t.Fatalf("unexpected day file: %s", raw)
	}

	next, err := l.ListByDay(ctx, day2)
	if err != nil || len(next) != 1 || next[0].Action != domain.AuditDelete {
		t.Fatalf("ListByDay() = %+v, %v", next, err)
	}

	empty, err := l.ListByDay(ctx, day1.AddDate(0, 0, -5))
	if err != nil || len(empty) != 0 || empty == nil {
		t.Fatalf("expected empty non-nil list, got %v, %v", empty, err)
	}
}

func TestConcurrentAppendsAreNotLost(t *testing.T) {
	l, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	now := time.Now().UTC()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Append(context.Background(), domain.AuditEntry{Timestamp: now, StorageID: "x", Action: domain.AuditStore})
		}()
	}
	wg.Wait()

	entries, err := l.ListByDay(context.Background(), now)
	if err != nil || len(entries) != 20 {
		t.Fatalf("expected 20 entries, got %d, %v", len(entries), err)
	}
}

func TestAppendHonoursContextWhileLocked(t *testing.T) {
	base := t.TempDir()
	l, err := New(base)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	now := time.Now().UTC()
	lockPath := filepath.Join(base, "audit_logs", ".audit_"+now.Format(domain.AuditDayLayout)+".lock")
	if err := os.WriteFile(lockPath, nil, 0o600); err != nil {
		t.Fatalf("write lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := l.Append(ctx, domain.AuditEntry{Timestamp: now}); err == nil {
		t.Fatalf("expected lock timeout")
	}
}
