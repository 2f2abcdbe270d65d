package adapters

import (
	"context"
	"time"

	"github.com/cutflow/core/pkg/idgen"
	"github.com/rs/zerolog"
)

// Push mirrors Email's stand-in role for the push channel.
type Push struct {
	log zerolog.Logger
}

func NewPush(log zerolog.Logger) *Push {
	return &Push{log: log.With().Str("adapter", "push").Logger()}
}

func (p *Push) Name() string { return "push" }

func (p *Push) IsAvailable() bool { return true }

func (p *Push) Send(ctx context.Context, recipient string, payload map[string]any) Result {
	p.log.Info().Str("recipient", recipient).Msg("push notification sent")
	now := time.Now()
	return Result{Status: StatusSent, SentAt: &now, ExternalID: idgen.NewPrefixed("push")}
}
