package adapters

import (
	"context"
	"time"
)

// InApp is the canonical fallback channel: it never calls out to an
// external provider, so it is always available and always succeeds.
type InApp struct{}

func NewInApp() *InApp { return &InApp{} }

func (InApp) Name() string { return "in_app" }

func (InApp) IsAvailable() bool { return true }

func (InApp) Send(ctx context.Context, recipient string, payload map[string]any) Result {
	now := time.Now()
	return Result{Status: StatusSent, SentAt: &now}
}
