package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/medical-intake/internal/core/domain"
	"github.com/kirillkom/medical-intake/internal/core/ports"
)

const defaultBackendTimeout = 5 * time.Second

// StorageManager owns persisted projections: it assigns identifiers, fans
// lookups out over the storable categories, enforces retention and writes the
// audit trail.
type StorageManager struct {
	backend   ports.RecordBackend
	audit     ports.AuditLog
	retention ports.RetentionPolicy
	observer  ports.StorageObserver

	newID   func(time.Time) string
	now     func() time.Time
	timeout time.Duration
}

type StorageOption func(*StorageManager)

func WithClock(now func() time.Time) StorageOption {
	return func(m *StorageManager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithIDGenerator(newID func(time.Time) string) StorageOption {
	return func(m *StorageManager) {
		if newID != nil {
			m.newID = newID
		}
	}
}

// WithBackendTimeout bounds every backend and audit call. Zero disables it.
func WithBackendTimeout(d time.Duration) StorageOption {
	return func(m *StorageManager) {
		m.timeout = d
	}
}

func WithStorageObserver(o ports.StorageObserver) StorageOption {
	return func(m *StorageManager) {
		m.observer = o
	}
}

func NewStorageManager(
	backend ports.RecordBackend,
	audit ports.AuditLog,
	retention ports.RetentionPolicy,
	opts ...StorageOption,
) *StorageManager {
	m := &StorageManager{
		backend:   backend,
		audit:     audit,
		retention: retention,
		newID:     NewStorageID,
		now:       time.Now,
		timeout:   defaultBackendTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store persists the projection under a fresh identifier. Backend failures
// are returned as domain.ErrBackend and leave nothing behind.
func (m *StorageManager) Store(ctx context.Context, projection domain.SafeProjection) (string, error) {
	category := projection.Classification.Category
	if !category.Storable() {
		return "", domain.WrapError(domain.ErrPrecondition, "store record",
			fmt.Errorf("category %q is not storable", category))
	}

	id := m.newID(m.now())
	projection.StorageID = id
	data, err := json.Marshal(projection)
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "encode record", err)
	}

	opCtx, cancel := m.withTimeout(ctx)
	defer cancel()
	if err := m.backend.Put(opCtx, category, id, data); err != nil {
		m.backendFailed("store", category, id, err)
		return "", domain.WrapError(domain.ErrBackend, "store record", err)
	}

	m.appendAudit(ctx, domain.AuditStore, id, category)
	slog.Info("record_stored",
		"storage_id", id,
		"category", string(category),
		"size_bytes", len(data),
		"backend", m.backend.Name(),
	)
	return id, nil
}

// Retrieve returns domain.ErrRecordNotFound when no category holds the id,
// and domain.ErrBackend when a category could not be read.
func (m *StorageManager) Retrieve(ctx context.Context, storageID string) (domain.SafeProjection, error) {
	if !ValidStorageID(storageID) {
		return domain.SafeProjection{}, domain.WrapError(domain.ErrRecordNotFound, "retrieve record", errors.New("malformed storage id"))
	}

	var backendErr error
	for _, category := range domain.StorableCategories {
		raw, err := m.get(ctx, category, storageID)
		if err != nil {
			if !errors.Is(err, domain.ErrRecordNotFound) {
				m.backendFailed("retrieve", category, storageID, err)
				backendErr = errors.Join(backendErr, err)
			}
			continue
		}

		var projection domain.SafeProjection
		if err := json.Unmarshal(raw, &projection); err != nil {
			m.backendFailed("decode", category, storageID, err)
			backendErr = errors.Join(backendErr, err)
			continue
		}
		m.appendAudit(ctx, domain.AuditRetrieve, storageID, category)
		return projection, nil
	}

	if backendErr != nil {
		return domain.SafeProjection{}, domain.WrapError(domain.ErrBackend, "retrieve record", backendErr)
	}
	return domain.SafeProjection{}, domain.WrapError(domain.ErrRecordNotFound, "retrieve record", fmt.Errorf("storage id %s", storageID))
}

// Delete physically removes the record. It reports false with a nil error
// when the id is unknown.
func (m *StorageManager) Delete(ctx context.Context, storageID string) (bool, error) {
	if !ValidStorageID(storageID) {
		return false, nil
	}

	var backendErr error
	for _, category := range domain.StorableCategories {
		err := m.remove(ctx, category, storageID)
		if err == nil {
			m.appendAudit(ctx, domain.AuditDelete, storageID, category)
			slog.Info("record_deleted", "storage_id", storageID, "category", string(category))
			return true, nil
		}
		if !errors.Is(err, domain.ErrRecordNotFound) {
			m.backendFailed("delete", category, storageID, err)
			backendErr = errors.Join(backendErr, err)
		}
	}
	if backendErr != nil {
		return false, domain.WrapError(domain.ErrBackend, "delete record", backendErr)
	}
	return false, nil
}

// SweepExpired deletes every record older than its category's retention
// window. The count is valid even when an error is returned.
func (m *StorageManager) SweepExpired(ctx context.Context) (int, error) {
	now := m.now().UTC()
	deleted := 0
	var sweepErr error

	for _, category := range domain.StorableCategories {
		days := m.retention.RetentionDays(category)
		if days <= 0 {
			continue
		}
		cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)

		items, err := m.list(ctx, category)
		if err != nil {
			m.backendFailed("sweep_list", category, "", err)
			sweepErr = errors.Join(sweepErr, err)
			continue
		}

		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return deleted, errors.Join(sweepErr, err)
			}
			expired, err := m.expired(ctx, category, item.ID, cutoff)
			if err != nil {
				if !errors.Is(err, domain.ErrRecordNotFound) {
					m.backendFailed("sweep_read", category, item.ID, err)
					sweepErr = errors.Join(sweepErr, err)
				}
				continue
			}
			if !expired {
				continue
			}
			if err := m.remove(ctx, category, item.ID); err != nil {
				if !errors.Is(err, domain.ErrRecordNotFound) {
					m.backendFailed("sweep_delete", category, item.ID, err)
					sweepErr = errors.Join(sweepErr, err)
				}
				continue
			}
			deleted++
			m.appendAudit(ctx, domain.AuditDelete, item.ID, category)
		}
	}

	slog.Info("retention_sweep_completed", "deleted", deleted, "failed", sweepErr != nil)
	if sweepErr != nil {
		return deleted, domain.WrapError(domain.ErrBackend, "sweep expired", sweepErr)
	}
	return deleted, nil
}

// Stats never fails: unreadable categories count as zero and mark the
// result partial.
func (m *StorageManager) Stats(ctx context.Context) domain.StorageStats {
	stats := domain.StorageStats{
		Categories: make(map[domain.Category]int, len(domain.StorableCategories)),
		Backend:    m.backend.Name(),
	}
	for _, category := range domain.StorableCategories {
		items, err := m.list(ctx, category)
		if err != nil {
			m.backendFailed("stats", category, "", err)
			stats.Categories[category] = 0
			stats.Partial = true
			continue
		}
		stats.Categories[category] = len(items)
		stats.TotalItems += len(items)
		for _, item := range items {
			stats.TotalSizeBytes += item.SizeBytes
		}
	}
	return stats
}

func (m *StorageManager) expired(ctx context.Context, category domain.Category, id string, cutoff time.Time) (bool, error) {
	raw, err := m.get(ctx, category, id)
	if err != nil {
		return false, err
	}
	var head struct {
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return false, fmt.Errorf("decode timestamp: %w", err)
	}
	if head.Timestamp.IsZero() {
		return false, errors.New("record has no timestamp")
	}
	return head.Timestamp.Before(cutoff), nil
}

func (m *StorageManager) get(ctx context.Context, category domain.Category, id string) ([]byte, error) {
	opCtx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.backend.Get(opCtx, category, id)
}

func (m *StorageManager) remove(ctx context.Context, category domain.Category, id string) error {
	opCtx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.backend.Delete(opCtx, category, id)
}

func (m *StorageManager) list(ctx context.Context, category domain.Category) ([]domain.ObjectInfo, error) {
	opCtx, cancel := m.withTimeout(ctx)
	defer cancel()
	return m.backend.List(opCtx, category)
}

// appendAudit never fails the calling operation. A lost entry is logged at
// warn level for manual compliance review.
func (m *StorageManager) appendAudit(ctx context.Context, action domain.AuditAction, id string, category domain.Category) {
	entry := domain.AuditEntry{
		Timestamp: m.now().UTC(),
		StorageID: id,
		Action:    action,
		Category:  category,
	}
	auditCtx, cancel := m.withTimeout(context.WithoutCancel(ctx))
	defer cancel()
	if err := m.audit.Append(auditCtx, entry); err != nil {
		slog.Warn("audit_write_failed",
			"storage_id", id,
			"action", string(action),
			"category", string(category),
			"error", err.Error(),
		)
		if m.observer != nil {
			m.observer.ObserveAuditGap(action)
		}
	}
}

func (m *StorageManager) backendFailed(operation string, category domain.Category, id string, err error) {
	slog.Error("storage_backend_error",
		"operation", operation,
		"category", string(category),
		"storage_id", id,
		"backend", m.backend.Name(),
		"error", err.Error(),
	)
	if m.observer != nil {
		m.observer.ObserveBackendError(operation)
	}
}

func (m *StorageManager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}
