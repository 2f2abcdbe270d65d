// Package locks implements exclusive, pessimistic, time-bounded edit
// leases over documents (cutting plans, scenarios, jobs) identified by
// (documentType, documentId) within a tenant.
package locks

import (
	"context"
	"time"

	"github.com/cutflow/core/internal/errs"
	"github.com/cutflow/core/internal/events"
	"github.com/cutflow/core/internal/store"
	"github.com/cutflow/core/internal/tenant"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const DefaultLease = 15 * time.Minute

// Status is the caller-facing snapshot returned by getStatus/isLocked.
type Status struct {
	Locked    bool
	LockedBy  string
	ExpiresAt time.Time
}

// Service is the DocumentLockService. The periodic reaper (Start) is
// authoritative for expiry cleanup; acquire relies on the Store's
// delete-expired-then-insert transaction rather than sweeping inline.
type Service struct {
	store store.Store
	events *events.Manager
	lease  time.Duration
	log    zerolog.Logger
	cron   *cron.Cron
}

func NewService(st store.Store, em *events.Manager, lease time.Duration, log zerolog.Logger) *Service {
	if lease <= 0 {
		lease = DefaultLease
	}
	return &Service{
		store:  st,
		events: em,
		lease:  lease,
		log:    log.With().Str("module", "document_lock_service").Logger(),
	}
}

// Start schedules the reaper on the given cron spec (e.g. "@every 60s").
// Stop shuts it down; safe to call once.
func (s *Service) Start(spec string) error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(spec, func() {
		n, err := s.CleanupExpiredLocks(context.Background())
		if err != nil {
			s.log.Error().Err(err).Msg("lock reaper run failed")
			return
		}
		if n > 0 {
			s.log.Info().Int("reaped", n).Msg("expired locks reaped")
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Service) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// LockResult is acquire's outcome.
type LockResult struct {
	Acquired bool
	Lock     store.DocumentLock
}

// Acquire atomically inserts a lock when none live exists, else fails with
// ALREADY_LOCKED carrying the holder's identity and expiry in Details.
func (s *Service) Acquire(ctx context.Context, docType, docID, userID string) (LockResult, *errs.Error) {
	tenantID, tErr := tenant.Current(ctx)
	if tErr != nil {
		return LockResult{}, tErr
	}

	now := time.Now()
	lock := store.DocumentLock{
		ID:           buildLockID(tenantID, docType, docID),
		TenantID:     tenantID,
		DocumentType: docType,
		DocumentID:   docID,
		UserID:       userID,
		AcquiredAt:   now,
		ExpiresAt:    now.Add(s.lease),
	}

	acquired, err := s.store.Locks().Acquire(ctx, lock)
	if err != nil {
		if typed := errs.Of(err); typed.Code == errs.Conflict || typed.Code == errs.AlreadyLocked {
			existing, ok, getErr := s.store.Locks().GetActive(ctx, tenantID, docType, docID)
			if getErr == nil && ok {
				return LockResult{}, errs.New(errs.AlreadyLocked, "document is locked by another user").WithDetails(map[string]any{
					"lockedBy":  existing.UserID,
					"expiresAt": existing.ExpiresAt,
				})
			}
		}
		return LockResult{}, errs.Of(err)
	}

	s.events.Emit(events.LockAcquired, docType, docID, tenantID, "", map[string]any{
		"documentType": docType,
		"documentId":   docID,
		"userId":       userID,
	})
	return LockResult{Acquired: true, Lock: acquired}, nil
}

// Release removes the lock only if userID is the current holder.
func (s *Service) Release(ctx context.Context, docType, docID, userID string) (bool, *errs.Error) {
	tenantID, tErr := tenant.Current(ctx)
	if tErr != nil {
		return false, tErr
	}

	existing, ok, err := s.store.Locks().GetActive(ctx, tenantID, docType, docID)
	if err != nil {
		return false, errs.Of(err)
	}
	if !ok || existing.UserID != userID || isExpired(existing) {
		return false, nil
	}

	if err := s.store.Locks().Release(ctx, tenantID, docType, docID, userID); err != nil {
		return false, errs.Of(err)
	}
	s.events.Emit(events.LockReleased, docType, docID, tenantID, "", map[string]any{
		"documentType": docType,
		"documentId":   docID,
		"userId":       userID,
	})
	return true, nil
}

// ForceRelease unconditionally removes any lock on the document.
func (s *Service) ForceRelease(ctx context.Context, docType, docID string) (bool, *errs.Error) {
	tenantID, tErr := tenant.Current(ctx)
	if tErr != nil {
		return false, tErr
	}

	existing, ok, err := s.store.Locks().GetActive(ctx, tenantID, docType, docID)
	if err != nil {
		return false, errs.Of(err)
	}
	if !ok {
		return false, nil
	}
	if err := s.store.Locks().ForceRelease(ctx, tenantID, docType, docID); err != nil {
		return false, errs.Of(err)
	}
	s.events.Emit(events.LockReleased, docType, docID, tenantID, "", map[string]any{
		"documentType": docType,
		"documentId":   docID,
		"userId":       existing.UserID,
		"forced":       true,
	})
	return true, nil
}

// Refresh extends expiry by the full lease window; only the current
// holder may refresh, and an already-expired lock cannot be refreshed.
func (s *Service) Refresh(ctx context.Context, docType, docID, userID string) (bool, *errs.Error) {
	tenantID, tErr := tenant.Current(ctx)
	if tErr != nil {
		return false, tErr
	}

	existing, ok, err := s.store.Locks().GetActive(ctx, tenantID, docType, docID)
	if err != nil {
		return false, errs.Of(err)
	}
	if !ok || existing.UserID != userID || isExpired(existing) {
		return false, nil
	}

	_, err = s.store.Locks().Refresh(ctx, tenantID, docType, docID, userID, time.Now().Add(s.lease))
	if err != nil {
		return false, errs.Of(err)
	}
	return true, nil
}

// GetStatus reports whether docType/docID is currently locked, and by whom.
func (s *Service) GetStatus(ctx context.Context, docType, docID string) (Status, *errs.Error) {
	tenantID, tErr := tenant.Current(ctx)
	if tErr != nil {
		return Status{}, tErr
	}
	existing, ok, err := s.store.Locks().GetActive(ctx, tenantID, docType, docID)
	if err != nil {
		return Status{}, errs.Of(err)
	}
	if !ok || isExpired(existing) {
		return Status{}, nil
	}
	return Status{Locked: true, LockedBy: existing.UserID, ExpiresAt: existing.ExpiresAt}, nil
}

// IsLocked is GetStatus narrowed to a boolean.
func (s *Service) IsLocked(ctx context.Context, docType, docID string) (bool, *errs.Error) {
	status, err := s.GetStatus(ctx, docType, docID)
	if err != nil {
		return false, err
	}
	return status.Locked, nil
}

// CanEdit reports whether userID may edit: unlocked, or locked by userID.
func (s *Service) CanEdit(ctx context.Context, docType, docID, userID string) (bool, *errs.Error) {
	status, err := s.GetStatus(ctx, docType, docID)
	if err != nil {
		return false, err
	}
	return !status.Locked || status.LockedBy == userID, nil
}

// GetUserLocks lists every live lock userID currently holds.
func (s *Service) GetUserLocks(ctx context.Context, userID string) ([]store.DocumentLock, *errs.Error) {
	tenantID, tErr := tenant.Current(ctx)
	if tErr != nil {
		return nil, tErr
	}
	locks, err := s.store.Locks().ListByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, errs.Of(err)
	}
	live := locks[:0]
	now := time.Now()
	for _, l := range locks {
		if l.ExpiresAt.After(now) {
			live = append(live, l)
		}
	}
	return live, nil
}

// ReleaseAllUserLocks force-releases every lock userID holds, e.g. on logout.
func (s *Service) ReleaseAllUserLocks(ctx context.Context, userID string) (int, *errs.Error) {
	locks, err := s.GetUserLocks(ctx, userID)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, l := range locks {
		ok, relErr := s.ForceRelease(ctx, l.DocumentType, l.DocumentID)
		if relErr != nil {
			return released, relErr
		}
		if ok {
			released++
		}
	}
	return released, nil
}

// CleanupExpiredLocks removes every lock with expiresAt <= now and returns
// the count reaped. This is the reaper's entrypoint; it is tenant-agnostic
// by design, since the reaper runs as a single background job for the
// whole process.
func (s *Service) CleanupExpiredLocks(ctx context.Context) (int, error) {
	return s.store.Locks().DeleteExpired(ctx, time.Now())
}

func isExpired(lock store.DocumentLock) bool {
	return !lock.ExpiresAt.After(time.Now())
}

func buildLockID(tenantID, docType, docID string) string {
	return tenantID + ":" + docType + ":" + docID
}
