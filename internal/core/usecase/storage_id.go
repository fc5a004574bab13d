package usecase

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const storageIDTimeLayout = "20060102T150405Z"

var storageIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// NewStorageID returns a sortable, unguessable identifier: a UTC second
// prefix followed by 64 random bits.
func NewStorageID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return now.UTC().Format(storageIDTimeLayout) + "_" + suffix[:16]
}

// ValidStorageID guards backend keys against traversal and oversized input.
func ValidStorageID(id string) bool {
	return storageIDPattern.MatchString(id)
}
