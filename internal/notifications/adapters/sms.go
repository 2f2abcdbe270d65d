package adapters

import (
	"context"
	"time"

	"github.com/cutflow/core/pkg/idgen"
	"github.com/rs/zerolog"
)

// SMS mirrors Email's stand-in role for the sms channel.
type SMS struct {
	log zerolog.Logger
}

func NewSMS(log zerolog.Logger) *SMS {
	return &SMS{log: log.With().Str("adapter", "sms").Logger()}
}

func (s *SMS) Name() string { return "sms" }

func (s *SMS) IsAvailable() bool { return true }

func (s *SMS) Send(ctx context.Context, recipient string, payload map[string]any) Result {
	s.log.Info().Str("recipient", recipient).Msg("sms notification sent")
	now := time.Now()
	return Result{Status: StatusSent, SentAt: &now, ExternalID: idgen.NewPrefixed("sms")}
}
