// Package broker implements the optional MessageBroker adapter behind the
// in-process EventBus: durable cross-process pub/sub over Redis streams,
// with consumer-group manual acknowledgement, a per-message visibility
// timeout, and a dead-letter stream for messages that exceed MaxDeliveries.
package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cutflow/core/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Message is a single delivery handed to a subscriber. ID is the stream
// entry ID, needed to Ack it.
type Message struct {
	ID       string
	Subject  string
	Payload  []byte
	Attempts int64
}

// Handler processes a Message. Returning an error leaves the message
// unacknowledged so it becomes eligible for redelivery or dead-lettering.
type Handler func(ctx context.Context, msg Message) error

const payloadField = "payload"

func deadLetterSubject(subject string) string { return subject + ":dead" }

// Broker publishes to and consumes from Redis streams, one stream per
// subject, using a single consumer group per subject named "cutflow".
type Broker struct {
	client    *redis.Client
	group     string
	consumer  string
	prefetch  int64
	ackWait   time.Duration
	maxTries  int64
	readBlock time.Duration
	log       zerolog.Logger
}

// New builds a Broker over an already-configured redis.Client. cfg supplies
// prefetch/ackTimeout/maxDeliveries; consumerName distinguishes this
// process among others sharing the same consumer group.
func New(client *redis.Client, cfg config.BrokerConfig, consumerName string, log zerolog.Logger) *Broker {
	return &Broker{
		client:    client,
		group:     "cutflow",
		consumer:  consumerName,
		prefetch:  int64(cfg.Prefetch),
		ackWait:   cfg.AckTimeout,
		maxTries:  int64(cfg.MaxDeliveries),
		readBlock: 2 * time.Second,
		log:       log.With().Str("component", "broker").Logger(),
	}
}

// WithReadBlock overrides the XReadGroup block duration. Production callers
// never need this; it exists so tests can shrink the reclaim cadence.
func (b *Broker) WithReadBlock(d time.Duration) *Broker {
	b.readBlock = d
	return b
}

// NewClient builds a redis.Client from a connection URL of the form
// redis://[:password@]host:port/db.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse broker url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Publish appends payload to subject's stream.
func (b *Broker) Publish(ctx context.Context, subject string, payload []byte) error {
	err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: subject,
		Values: map[string]any{payloadField: payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

func (b *Broker) ensureGroup(ctx context.Context, subject string) error {
	err := b.client.XGroupCreateMkStream(ctx, subject, b.group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group for %s: %w", subject, err)
	}
	return nil
}

// Subscribe blocks, consuming subject until ctx is cancelled. Each message
// is handed to handler; a nil return acknowledges it, a non-nil return
// leaves it pending for reclaim by claimStale. Subscribe also claims and
// redelivers messages whose visibility timeout has expired, dead-lettering
// any that have already been attempted MaxDeliveries times.
func (b *Broker) Subscribe(ctx context.Context, subject string, handler Handler) error {
	if err := b.ensureGroup(ctx, subject); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := b.claimStale(ctx, subject, handler); err != nil {
			b.log.Error().Err(err).Str("subject", subject).Msg("claim stale messages failed")
		}

		streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.group,
			Consumer: b.consumer,
			Streams:  []string{subject, ">"},
			Count:    b.prefetch,
			Block:    b.readBlock,
		}).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			b.log.Error().Err(err).Str("subject", subject).Msg("read group failed")
			continue
		}

		for _, stream := range streams {
			for _, entry := range stream.Messages {
				b.deliver(ctx, subject, entry, handler)
			}
		}
	}
}

func (b *Broker) deliver(ctx context.Context, subject string, entry redis.XMessage, handler Handler) {
	payload, _ := entry.Values[payloadField].(string)
	msg := Message{ID: entry.ID, Subject: subject, Payload: []byte(payload)}

	if err := handler(ctx, msg); err != nil {
		b.log.Warn().Err(err).Str("subject", subject).Str("message_id", entry.ID).Msg("handler failed, leaving unacked")
		return
	}
	if err := b.client.XAck(ctx, subject, b.group, entry.ID).Err(); err != nil {
		b.log.Error().Err(err).Str("subject", subject).Str("message_id", entry.ID).Msg("ack failed")
	}
}

// claimStale reclaims messages idle longer than ackWait. A message already
// delivered maxTries times is moved to the dead-letter stream and acked off
// the pending list instead of being redelivered.
func (b *Broker) claimStale(ctx context.Context, subject string, handler Handler) error {
	pending, err := b.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: subject,
		Group:  b.group,
		Idle:   b.ackWait,
		Start:  "-",
		End:    "+",
		Count:  b.prefetch,
	}).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("list pending for %s: %w", subject, err)
	}

	for _, p := range pending {
		if p.RetryCount >= b.maxTries {
			if err := b.deadLetter(ctx, subject, p.ID); err != nil {
				b.log.Error().Err(err).Str("subject", subject).Str("message_id", p.ID).Msg("dead-letter failed")
			}
			continue
		}

		claimed, _, err := b.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   subject,
			Group:    b.group,
			Consumer: b.consumer,
			MinIdle:  b.ackWait,
			Messages: []string{p.ID},
		}).Result()
		if err != nil {
			b.log.Error().Err(err).Str("subject", subject).Str("message_id", p.ID).Msg("claim failed")
			continue
		}
		for _, entry := range claimed {
			b.deliver(ctx, subject, entry, handler)
		}
	}
	return nil
}

// deadLetter moves a message's payload to subject's dead-letter stream and
// acknowledges it off the original stream's pending list.
func (b *Broker) deadLetter(ctx context.Context, subject, messageID string) error {
	entries, err := b.client.XRange(ctx, subject, messageID, messageID).Result()
	if err != nil {
		return fmt.Errorf("read message for dead-letter: %w", err)
	}

	var payload any = []byte(nil)
	if len(entries) > 0 {
		payload = entries[0].Values[payloadField]
	}

	if err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: deadLetterSubject(subject),
		Values: map[string]any{payloadField: payload, "originalId": messageID},
	}).Err(); err != nil {
		return fmt.Errorf("publish to dead-letter stream: %w", err)
	}

	if err := b.client.XAck(ctx, subject, b.group, messageID).Err(); err != nil {
		return fmt.Errorf("ack dead-lettered message: %w", err)
	}

	b.log.Warn().Str("subject", subject).Str("message_id", messageID).Msg("message dead-lettered after exhausting deliveries")
	return nil
}
