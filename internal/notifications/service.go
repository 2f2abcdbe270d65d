// Package notifications implements per-user preference resolution and
// fan-out to channel adapters (internal/notifications/adapters).
package notifications

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cutflow/core/internal/config"
	"github.com/cutflow/core/internal/errs"
	"github.com/cutflow/core/internal/notifications/adapters"
	"github.com/cutflow/core/internal/store"
	"github.com/cutflow/core/internal/tenant"
	"github.com/rs/zerolog"
)

// retryBackoff is the fixed delay sequence between channel-send retries;
// 3 retries after the first attempt, for 4 attempts total.
var retryBackoff = []time.Duration{time.Second, 4 * time.Second, 16 * time.Second}

// DeliveryRecord is one channel's outcome for one recipient, matching the
// Notification row written for it.
type DeliveryRecord struct {
	UserID     string
	Channel    string
	Status     store.NotificationStatus
	ExternalID string
	Error      string
}

// Service is the NotificationService.
type Service struct {
	store          store.Store
	adaptersByName map[string]adapters.Adapter
	defaultChannel string
	perChannelTO   time.Duration
	log            zerolog.Logger
}

func NewService(st store.Store, channelAdapters []adapters.Adapter, cfg config.NotificationConfig, log zerolog.Logger) *Service {
	byName := make(map[string]adapters.Adapter, len(channelAdapters))
	for _, a := range channelAdapters {
		byName[a.Name()] = a
	}
	timeout := cfg.PerChannelTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		store:          st,
		adaptersByName: byName,
		defaultChannel: cfg.DefaultChannel,
		perChannelTO:   timeout,
		log:            log.With().Str("module", "notification_service").Logger(),
	}
}

// Dispatch resolves each recipient's enabled channels for eventType and
// sends payload to every resolved adapter in parallel. If every resolved
// channel fails (or none resolve) and in_app is available, an in-app
// notification is still recorded as the canonical fallback.
func (s *Service) Dispatch(ctx context.Context, eventType string, recipients []string, payload map[string]any) ([]DeliveryRecord, *errs.Error) {
	tenantID, tErr := tenant.Current(ctx)
	if tErr != nil {
		return nil, tErr
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.WrapInternal(err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var records []DeliveryRecord

	for _, userID := range recipients {
		channels := s.resolveChannels(ctx, tenantID, userID, eventType)
		if len(channels) == 0 {
			channels = []string{s.defaultChannel}
		}

		anySent := false
		var localRecords []DeliveryRecord
		var localMu sync.Mutex
		var localWG sync.WaitGroup

		for _, channel := range channels {
			adapter, ok := s.adaptersByName[channel]
			if !ok || !adapter.IsAvailable() {
				localMu.Lock()
				localRecords = append(localRecords, DeliveryRecord{UserID: userID, Channel: channel, Status: store.NotificationSkipped})
				localMu.Unlock()
				continue
			}

			localWG.Add(1)
			go func(adapter adapters.Adapter) {
				defer localWG.Done()
				record := s.sendWithRetry(ctx, userID, adapter, payload)
				localMu.Lock()
				localRecords = append(localRecords, record)
				if record.Status == store.NotificationSent {
					anySent = true
				}
				localMu.Unlock()
			}(adapter)
		}
		localWG.Wait()

		if !anySent {
			if fallback, ok := s.adaptersByName["in_app"]; ok && fallback.IsAvailable() {
				localRecords = append(localRecords, s.sendWithRetry(ctx, userID, fallback, payload))
			}
		}

		wg.Add(1)
		go func(userID string, localRecords []DeliveryRecord) {
			defer wg.Done()
			for _, r := range localRecords {
				s.persist(ctx, tenantID, userID, eventType, r, string(payloadJSON))
			}
			mu.Lock()
			records = append(records, localRecords...)
			mu.Unlock()
		}(userID, localRecords)
	}
	wg.Wait()

	return records, nil
}

func (s *Service) resolveChannels(ctx context.Context, tenantID, userID, eventType string) []string {
	pref, ok, err := s.store.NotificationPreferences().GetForUserEvent(ctx, tenantID, userID, eventType)
	if err != nil || !ok {
		return nil
	}
	return pref.EnabledChannels
}

func (s *Service) sendWithRetry(ctx context.Context, userID string, adapter adapters.Adapter, payload map[string]any) DeliveryRecord {
	var last adapters.Result
retryLoop:
	for attempt := 0; ; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, s.perChannelTO)
		last = adapter.Send(sendCtx, userID, payload)
		cancel()

		if last.Status == adapters.StatusSent || last.Err == nil {
			break
		}
		if attempt >= len(retryBackoff) {
			break
		}
		select {
		case <-time.After(retryBackoff[attempt]):
		case <-ctx.Done():
			break retryLoop
		}
	}

	record := DeliveryRecord{UserID: userID, Channel: adapter.Name(), ExternalID: last.ExternalID}
	switch {
	case last.Status == adapters.StatusSkipped:
		record.Status = store.NotificationSkipped
	case last.Err != nil || last.Status == adapters.StatusFailed:
		record.Status = store.NotificationFailed
		if last.Err != nil {
			record.Error = last.Err.Error()
		}
	default:
		record.Status = store.NotificationSent
	}
	return record
}

func (s *Service) persist(ctx context.Context, tenantID, userID, eventType string, record DeliveryRecord, payloadJSON string) {
	n := store.Notification{
		TenantID:    tenantID,
		UserID:      userID,
		EventType:   eventType,
		Channel:     record.Channel,
		Status:      record.Status,
		ExternalID:  record.ExternalID,
		Error:       record.Error,
		PayloadJSON: payloadJSON,
	}
	if _, err := s.store.Notifications().Insert(ctx, n); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Str("channel", record.Channel).Msg("failed to persist notification record")
	}
	s.log.Debug().Str("payload_redacted", sanitizeForLog(payloadJSON)).Msg("notification dispatched")
}
