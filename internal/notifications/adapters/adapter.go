// Package adapters implements the four channel adapters the
// NotificationService fans out to: email, sms, push, and in_app.
package adapters

import (
	"context"
	"time"
)

// Status is a single delivery attempt's outcome.
type Status string

const (
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result is what Send returns.
type Result struct {
	Status     Status
	SentAt     *time.Time
	ExternalID string
	Err        error
}

// Adapter is one notification channel.
type Adapter interface {
	Name() string
	Send(ctx context.Context, recipient string, payload map[string]any) Result
	IsAvailable() bool
}
