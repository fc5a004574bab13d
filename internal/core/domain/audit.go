package domain

import "time"

type AuditAction string

const (
	AuditStore    AuditAction = "store"
	AuditRetrieve AuditAction = "retrieve"
	AuditDelete   AuditAction = "delete"
)

// AuditEntry is append-only. Entries are partitioned by UTC day.
type AuditEntry struct {
	Timestamp time.Time   `json:"timestamp"`
	StorageID string      `json:"storage_id"`
	Action    AuditAction `json:"action"`
	Category  Category    `json:"category"`
}

// AuditDayLayout is the day-partition format used by every audit backend.
const AuditDayLayout = "20060102"

func (e AuditEntry) Day() string {
	return e.Timestamp.UTC().Format(AuditDayLayout)
}
