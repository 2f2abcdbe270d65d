package locks

import (
	"context"
	"sync"
	"time"

	"github.com/cutflow/core/internal/errs"
	"github.com/cutflow/core/internal/store"
)

// fakeLockStore is a minimal store.Store backing only Locks(), matching the
// Store unique-constraint-plus-delete-expired-then-insert contract this
// package depends on. Every other sub-interface panics if touched.
type fakeLockStore struct {
	mu    sync.Mutex
	locks map[string]store.DocumentLock // key: tenantID/docType/docID
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{locks: map[string]store.DocumentLock{}}
}

func key(tenantID, docType, docID string) string { return tenantID + "/" + docType + "/" + docID }

func (f *fakeLockStore) CuttingJobs() store.CuttingJobs                     { panic("unused") }
func (f *fakeLockStore) OrderItems() store.OrderItems                       { panic("unused") }
func (f *fakeLockStore) StockItems() store.StockItems                       { panic("unused") }
func (f *fakeLockStore) Scenarios() store.Scenarios                         { panic("unused") }
func (f *fakeLockStore) Plans() store.Plans                                 { panic("unused") }
func (f *fakeLockStore) NotificationPreferences() store.NotificationPreferences { panic("unused") }
func (f *fakeLockStore) Notifications() store.Notifications                       { panic("not used") }
func (f *fakeLockStore) Activities() store.Activities                       { panic("unused") }
func (f *fakeLockStore) AuditLog() store.AuditLog                           { panic("unused") }
func (f *fakeLockStore) Locks() store.Locks                                 { return fakeLocks{f} }
func (f *fakeLockStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeLocks struct{ f *fakeLockStore }

func (r fakeLocks) Acquire(ctx context.Context, lock store.DocumentLock) (store.DocumentLock, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()

	k := key(lock.TenantID, lock.DocumentType, lock.DocumentID)
	if existing, ok := r.f.locks[k]; ok && existing.ExpiresAt.After(time.Now()) {
		return store.DocumentLock{}, errs.New(errs.AlreadyLocked, "already locked")
	}
	r.f.locks[k] = lock
	return lock, nil
}

func (r fakeLocks) Release(ctx context.Context, tenantID, documentType, documentID, userID string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	k := key(tenantID, documentType, documentID)
	existing, ok := r.f.locks[k]
	if !ok || existing.UserID != userID {
		return errs.New(errs.NotFound, "lock not held by user")
	}
	delete(r.f.locks, k)
	return nil
}

func (r fakeLocks) ForceRelease(ctx context.Context, tenantID, documentType, documentID string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	delete(r.f.locks, key(tenantID, documentType, documentID))
	return nil
}

func (r fakeLocks) Refresh(ctx context.Context, tenantID, documentType, documentID, userID string, newExpiresAt time.Time) (store.DocumentLock, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	k := key(tenantID, documentType, documentID)
	existing, ok := r.f.locks[k]
	if !ok || existing.UserID != userID {
		return store.DocumentLock{}, errs.New(errs.NotFound, "lock not held by user")
	}
	existing.ExpiresAt = newExpiresAt
	r.f.locks[k] = existing
	return existing, nil
}

func (r fakeLocks) GetActive(ctx context.Context, tenantID, documentType, documentID string) (store.DocumentLock, bool, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	existing, ok := r.f.locks[key(tenantID, documentType, documentID)]
	return existing, ok, nil
}

func (r fakeLocks) ListByUser(ctx context.Context, tenantID, userID string) ([]store.DocumentLock, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []store.DocumentLock
	for _, l := range r.f.locks {
		if l.TenantID == tenantID && l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r fakeLocks) DeleteExpired(ctx context.Context, asOf time.Time) (int, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	n := 0
	for k, l := range r.f.locks {
		if !l.ExpiresAt.After(asOf) {
			delete(r.f.locks, k)
			n++
		}
	}
	return n, nil
}
