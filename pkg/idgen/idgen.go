// Package idgen mints opaque stable string identifiers.
package idgen

import "github.com/google/uuid"

// New returns a fresh UUID string, used for every entity, task, and
// correlation ID in this module.
func New() string {
	return uuid.New().String()
}

// NewPrefixed returns a fresh ID of the form "<prefix>-<uuid>", handy for
// human-scannable task and job IDs in logs.
func NewPrefixed(prefix string) string {
	return prefix + "-" + uuid.New().String()
}
