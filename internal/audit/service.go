// Package audit implements AuditService: an append-only log whose inserts
// are synchronous and share the transaction of the mutation they record.
package audit

import (
	"context"
	"time"

	"github.com/cutflow/core/internal/errs"
	"github.com/cutflow/core/internal/store"
	"github.com/cutflow/core/internal/tenant"
	"github.com/cutflow/core/pkg/idgen"
	"github.com/rs/zerolog"
)

const maxQueryLimit = 500

// Entry is the caller-supplied shape of an audit write; ID, TenantID and
// CreatedAt are filled in by WithAudit.
type Entry struct {
	UserID     string
	Action     string
	Module     string
	EntityType string
	EntityID   string
	Before     map[string]any
	After      map[string]any
}

type Service struct {
	store store.Store
	log   zerolog.Logger
}

func NewService(st store.Store, log zerolog.Logger) *Service {
	return &Service{store: st, log: log.With().Str("service", "audit").Logger()}
}

// WithAudit runs fn and, only if fn succeeds, inserts the audit entry —
// both inside a single transaction, so the entry is visible iff the
// mutation commits. The tenant id is read from ctx, not from entry.
func (s *Service) WithAudit(ctx context.Context, entry Entry, fn func(ctx context.Context) error) *errs.Error {
	tenantID, tErr := tenant.Current(ctx)
	if tErr != nil {
		return tErr
	}
	if entry.Action == "" || entry.Module == "" {
		return errs.New(errs.Validation, "audit entry requires action and module")
	}

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		row := store.AuditEntry{
			ID:         idgen.NewPrefixed("audit"),
			TenantID:   tenantID,
			UserID:     entry.UserID,
			Action:     entry.Action,
			Module:     entry.Module,
			EntityType: entry.EntityType,
			EntityID:   entry.EntityID,
			Before:     entry.Before,
			After:      entry.After,
			CreatedAt:  time.Now(),
		}
		return s.store.AuditLog().Insert(ctx, row)
	})
	if err != nil {
		return errs.Of(err)
	}
	return nil
}

// Query runs filter, always scoped to the tenant bound in ctx regardless
// of any TenantID the caller set on filter, and clamps Limit to 500.
func (s *Service) Query(ctx context.Context, filter store.AuditFilter) ([]store.AuditEntry, *errs.Error) {
	tenantID, tErr := tenant.Current(ctx)
	if tErr != nil {
		return nil, tErr
	}
	filter.TenantID = tenantID
	if filter.Limit <= 0 || filter.Limit > maxQueryLimit {
		filter.Limit = maxQueryLimit
	}

	entries, err := s.store.AuditLog().Query(ctx, filter)
	if err != nil {
		return nil, errs.WrapInternal(err)
	}
	return entries, nil
}

// GetEntityHistory returns the latest limit entries for one entity,
// ordered by createdAt descending.
func (s *Service) GetEntityHistory(ctx context.Context, entityType, entityID string, limit int) ([]store.AuditEntry, *errs.Error) {
	tenantID, tErr := tenant.Current(ctx)
	if tErr != nil {
		return nil, tErr
	}
	if limit <= 0 || limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	entries, err := s.store.AuditLog().EntityHistory(ctx, tenantID, entityType, entityID, limit)
	if err != nil {
		return nil, errs.WrapInternal(err)
	}
	return entries, nil
}
