// Package localfs keeps the audit trail as one JSON array per UTC day under
// audit_logs/audit_YYYYMMDD.json.
package localfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

const (
	lockPollInterval = 10 * time.Millisecond
	staleLockAge     = 30 * time.Second
)

type Log struct {
	dir string
	mu  sync.Mutex
}

func New(basePath string) (*Log, error) {
	if basePath == "" {
		basePath = "./data/secure_storage"
	}
	dir := filepath.Join(basePath, "audit_logs")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	return &Log{dir: dir}, nil
}

// Append rewrites the day file through a temp file and rename. A lock file
// serialises writers across the api and worker processes.
func (l *Log) Append(ctx context.Context, entry domain.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	day := entry.Day()
	unlock, err := l.lock(ctx, day)
	if err != nil {
		return err
	}
	defer unlock()

	entries, err := l.read(day)
	if err != nil {
		return err
	}
	entry.Timestamp = entry.Timestamp.UTC()
	entries = append(entries, entry)

	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode audit log: %w", err)
	}
	return l.writeAtomic(l.path(day), raw)
}

func (l *Log) ListByDay(_ context.Context, day time.Time) ([]domain.AuditEntry, error) {
	return l.read(day.UTC().Format(domain.AuditDayLayout))
}

func (l *Log) read(day string) ([]domain.AuditEntry, error) {
	raw, err := os.ReadFile(l.path(day))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []domain.AuditEntry{}, nil
		}
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	var entries []domain.AuditEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode audit log %s: %w", day, err)
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	return entries, nil
}

func (l *Log) path(day string) string {
	return filepath.Join(l.dir, "audit_"+day+".json")
}

func (l *Log) writeAtomic(path string, raw []byte) error {
	tmp, err := os.CreateTemp(l.dir, ".tmp-audit-*")
	if err != nil {
		return fmt.Errorf("create temp audit file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write audit log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close audit log: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename audit log: %w", err)
	}
	return nil
}

func (l *Log) lock(ctx context.Context, day string) (func(), error) {
	lockPath := filepath.Join(l.dir, ".audit_"+day+".lock")
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("acquire audit lock: %w", err)
		}
		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > staleLockAge {
			_ = os.Remove(lockPath)
			continue
		}

		timer := time.NewTimer(lockPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("acquire audit lock: %w", ctx.Err())
		case <-timer.C:
		}
	}
}
