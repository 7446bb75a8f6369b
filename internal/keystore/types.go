package keystore

import (
	"errors"
	"time"
)

// ErrNotFound is returned when no key exists under the requested id.
var ErrNotFound = errors.New("keystore: key not found")

// ErrExpired is returned for keys whose expiry has passed. The value is never
// decrypted for an expired key.
var ErrExpired = errors.New("keystore: key expired")

// Metadata describes one stored key. The key value itself lives only in the
// encrypted blob.
type Metadata struct {
	KeyID        string     `json:"key_id"`
	KeyType      string     `json:"key_type"`
	CreatedAt    time.Time  `json:"created_at"`
	LastAccessed time.Time  `json:"last_accessed,omitempty"`
	LastRotated  *time.Time `json:"last_rotated,omitempty"`
	AccessCount  int        `json:"access_count"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Description  string     `json:"description,omitempty"`
}

// NeedsRotation reports whether the key is older than rotateAfter, measured
// from the last rotation (or creation when never rotated).
func (m Metadata) NeedsRotation(rotateAfter time.Duration, now time.Time) bool {
	if rotateAfter <= 0 {
		return false
	}
	since := m.CreatedAt
	if m.LastRotated != nil {
		since = *m.LastRotated
	}
	return now.Sub(since) > rotateAfter
}

// AuditEntry is one append-only audit record. Key values never appear here;
// the Detail field is redacted before writing.
type AuditEntry struct {
	ID         string    `json:"id"`
	KeyID      string    `json:"key_id"`
	AccessedAt time.Time `json:"accessed_at"`
	Accessor   string    `json:"accessor,omitempty"`
	Action     string    `json:"action"` // "store", "retrieve", "rotate", "delete"
	Success    bool      `json:"success"`
	Detail     string    `json:"detail,omitempty"`
}
