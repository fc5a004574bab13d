package domain

// StorageStats is a read-only aggregate for monitoring. Partial is set when
// at least one category could not be listed.
type StorageStats struct {
	TotalItems     int              `json:"total_files"`
	Categories     map[Category]int `json:"data_types"`
	TotalSizeBytes int64            `json:"total_size_bytes"`
	Backend        string           `json:"storage_type"`
	Partial        bool             `json:"partial,omitempty"`
}

// ObjectInfo describes one persisted record as reported by a backend listing.
type ObjectInfo struct {
	ID        string
	SizeBytes int64
}
