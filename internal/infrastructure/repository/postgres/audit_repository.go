package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

// AuditRepository stores audit entries in an append-only table. UPDATE and
// DELETE are rejected by a trigger.
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2025081101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id BIGSERIAL PRIMARY KEY,
	day CHAR(8) NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	storage_id TEXT NOT NULL,
	action TEXT NOT NULL CHECK (action IN ('store', 'retrieve', 'delete')),
	category TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_entries_day ON audit_entries(day, id);
CREATE INDEX IF NOT EXISTS idx_audit_entries_storage_id ON audit_entries(storage_id);

CREATE OR REPLACE FUNCTION audit_entries_append_only() RETURNS trigger AS $$
BEGIN
	RAISE EXCEPTION 'audit_entries is append-only';
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_audit_entries_append_only ON audit_entries;
CREATE TRIGGER trg_audit_entries_append_only
	BEFORE UPDATE OR DELETE ON audit_entries
	FOR EACH ROW EXECUTE FUNCTION audit_entries_append_only();
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	ts := entry.Timestamp.UTC()
	_, err := r.db.ExecContext(ctx, `
INSERT INTO audit_entries (day, occurred_at, storage_id, action, category)
VALUES ($1, $2, $3, $4, $5)
`,
		entry.Day(), ts, entry.StorageID, string(entry.Action), string(entry.Category),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListByDay(ctx context.Context, day time.Time) ([]domain.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT occurred_at, storage_id, action, category
FROM audit_entries
WHERE day = $1
ORDER BY id ASC
`, day.UTC().Format(domain.AuditDayLayout))
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		var entry domain.AuditEntry
		var action, category string
		if err := rows.Scan(&entry.Timestamp, &entry.StorageID, &action, &category); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Timestamp = entry.Timestamp.UTC()
		entry.Action = domain.AuditAction(action)
		entry.Category = domain.Category(category)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
