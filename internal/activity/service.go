// Package activity implements ActivityFeedService: tenant-scoped activity
// recording, querying, and read-state, with a real-time broadcast over
// internal/presence and MENTION notifications via internal/notifications.
package activity

import (
	"context"
	"time"

	"github.com/cutflow/core/internal/errs"
	"github.com/cutflow/core/internal/events"
	"github.com/cutflow/core/internal/notifications"
	"github.com/cutflow/core/internal/presence"
	"github.com/cutflow/core/internal/store"
	"github.com/cutflow/core/internal/tenant"
	"github.com/cutflow/core/pkg/idgen"
	"github.com/rs/zerolog"
)

// unreadLookback bounds getUnreadCount's window so the count never scans
// a tenant's entire activity history.
const unreadLookback = 90 * 24 * time.Hour

// RecordInput is the input to RecordActivity.
type RecordInput struct {
	ActorID    string
	Verb       string
	EntityType string
	EntityID   string
	Metadata   map[string]any
}

// ListFilter is the input to GetActivities.
type ListFilter struct {
	EntityType string
	EntityID   string
	ActorID    string
	Limit      int
	Offset     int
}

type Service struct {
	store    store.Store
	events   *events.Manager
	hub      *presence.Hub
	notifier *notifications.Service
	log      zerolog.Logger
}

func NewService(st store.Store, em *events.Manager, hub *presence.Hub, notifier *notifications.Service, log zerolog.Logger) *Service {
	return &Service{store: st, events: em, hub: hub, notifier: notifier, log: log.With().Str("service", "activity_feed").Logger()}
}

// RecordActivity inserts the entry, broadcasts it over presence, and
// fans out a MENTION notification to every user id named in
// metadata.mentionedUserIds. Broadcast and notification fan-out are
// best-effort: a failure there never fails the recorded activity.
func (s *Service) RecordActivity(ctx context.Context, in RecordInput) (store.ActivityEntry, *errs.Error) {
	tenantID, tErr := tenant.Current(ctx)
	if tErr != nil {
		return store.ActivityEntry{}, tErr
	}
	if in.ActorID == "" || in.Verb == "" || in.EntityType == "" || in.EntityID == "" {
		return store.ActivityEntry{}, errs.New(errs.Validation, "actorId, verb, entityType and entityId are required")
	}

	entry := store.ActivityEntry{
		ID:         idgen.NewPrefixed("activity"),
		TenantID:   tenantID,
		ActorID:    in.ActorID,
		Verb:       in.Verb,
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
		Metadata:   in.Metadata,
		CreatedAt:  time.Now(),
	}

	inserted, err := s.store.Activities().Insert(ctx, entry)
	if err != nil {
		return store.ActivityEntry{}, errs.WrapInternal(err)
	}

	s.events.Emit(events.ActivityCreated, inserted.EntityType, inserted.EntityID, tenantID, "", map[string]any{
		"activityId": inserted.ID,
		"actorId":    inserted.ActorID,
		"verb":       inserted.Verb,
	})
	s.hub.Broadcast(tenantID, inserted)

	if mentioned := mentionedUserIDs(inserted.Metadata); len(mentioned) > 0 {
		payload := map[string]any{
			"activityId": inserted.ID,
			"actorId":    inserted.ActorID,
			"entityType": inserted.EntityType,
			"entityId":   inserted.EntityID,
		}
		if _, dErr := s.notifier.Dispatch(ctx, string(events.Mention), mentioned, payload); dErr != nil {
			s.log.Warn().Err(dErr).Str("activity_id", inserted.ID).Msg("mention notification dispatch failed")
		}
	}

	return inserted, nil
}

// mentionedUserIDs tolerates both []string (built in-process) and
// []interface{} (decoded from JSON) shapes for metadata.mentionedUserIds.
func mentionedUserIDs(metadata map[string]any) []string {
	raw, ok := metadata["mentionedUserIds"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func (s *Service) GetActivities(ctx context.Context, filter ListFilter) ([]store.ActivityEntry, *errs.Error) {
	tenantID, tErr := tenant.Current(ctx)
	if tErr != nil {
		return nil, tErr
	}
	limit := clampLimit(filter.Limit)

	if filter.EntityType != "" || filter.EntityID != "" {
		entries, err := s.store.Activities().ListByDocument(ctx, tenantID, filter.EntityType, filter.EntityID, limit, filter.Offset)
		if err != nil {
			return nil, errs.WrapInternal(err)
		}
		return entries, nil
	}

	entries, err := s.store.Activities().List(ctx, tenantID, limit, filter.Offset)
	if err != nil {
		return nil, errs.WrapInternal(err)
	}
	return entries, nil
}

func (s *Service) GetDocumentActivities(ctx context.Context, entityType, entityID string, limit, offset int) ([]store.ActivityEntry, *errs.Error) {
	return s.GetActivities(ctx, ListFilter{EntityType: entityType, EntityID: entityID, Limit: limit, Offset: offset})
}

func (s *Service) GetMentions(ctx context.Context, userID string, limit, offset int) ([]store.ActivityEntry, *errs.Error) {
	tenantID, tErr := tenant.Current(ctx)
	if tErr != nil {
		return nil, tErr
	}
	entries, err := s.store.Activities().ListMentions(ctx, tenantID, userID, clampLimit(limit), offset)
	if err != nil {
		return nil, errs.WrapInternal(err)
	}
	return entries, nil
}

// GetUnreadCount is count(activities in tenant) - count(activityReads for
// user), bounded by unreadLookback.
func (s *Service) GetUnreadCount(ctx context.Context, userID string) (int, *errs.Error) {
	tenantID, tErr := tenant.Current(ctx)
	if tErr != nil {
		return 0, tErr
	}
	since := time.Now().Add(-unreadLookback)
	count, err := s.store.Activities().UnreadCount(ctx, tenantID, userID, since)
	if err != nil {
		return 0, errs.WrapInternal(err)
	}
	return count, nil
}

// MarkAsRead is idempotent: marking an already-read activity again is a
// no-op, not an error.
func (s *Service) MarkAsRead(ctx context.Context, userID string, activityIDs []string) *errs.Error {
	if _, tErr := tenant.Current(ctx); tErr != nil {
		return tErr
	}
	for _, id := range activityIDs {
		if err := s.store.Activities().MarkRead(ctx, id, userID); err != nil {
			return errs.WrapInternal(err)
		}
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) *errs.Error {
	tenantID, tErr := tenant.Current(ctx)
	if tErr != nil {
		return tErr
	}
	if err := s.store.Activities().MarkAllRead(ctx, tenantID, userID); err != nil {
		return errs.WrapInternal(err)
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}
