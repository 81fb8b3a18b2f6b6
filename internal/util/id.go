package util

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// Compact strips every hyphen from an upstream identifier. Compact ids are
// what appear in URLs, cache keys and breadcrumb paths.
func Compact(id string) string {
	return strings.ReplaceAll(id, "-", "")
}

// Canonical re-inserts hyphens at the 8-4-4-4-12 offsets. Input that does not
// compact to 32 hex characters is returned unchanged.
func Canonical(id string) string {
	compact := Compact(id)
	if len(compact) != 32 {
		return id
	}
	if _, err := uuid.Parse(compact); err != nil {
		return id
	}
	return compact[0:8] + "-" + compact[8:12] + "-" + compact[12:16] + "-" + compact[16:20] + "-" + compact[20:32]
}

// IsCompact reports whether id is a well-formed 32 character hex identifier.
func IsCompact(id string) bool {
	if len(id) != 32 || strings.Contains(id, "-") {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func NewRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
