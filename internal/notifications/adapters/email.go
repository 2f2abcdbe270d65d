package adapters

import (
	"context"
	"time"

	"github.com/cutflow/core/pkg/idgen"
	"github.com/rs/zerolog"
)

// Email is a minimal stand-in channel: no SMTP/provider client appears
// anywhere in the retrieval pack, so this adapter records the delivery
// attempt through the same structured logger every other component uses
// rather than reaching for an unseen third-party mail library.
type Email struct {
	log zerolog.Logger
}

func NewEmail(log zerolog.Logger) *Email {
	return &Email{log: log.With().Str("adapter", "email").Logger()}
}

func (e *Email) Name() string { return "email" }

func (e *Email) IsAvailable() bool { return true }

func (e *Email) Send(ctx context.Context, recipient string, payload map[string]any) Result {
	e.log.Info().Str("recipient", recipient).Msg("email notification sent")
	now := time.Now()
	return Result{Status: StatusSent, SentAt: &now, ExternalID: idgen.NewPrefixed("email")}
}
