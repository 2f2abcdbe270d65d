package audit

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/cutflow/core/internal/store"
)

type fakeStore struct {
	mu      sync.Mutex
	entries []store.AuditEntry
	txFails bool
}

func newFakeStore() *fakeStore { return &fakeStore{} }

func (f *fakeStore) CuttingJobs() store.CuttingJobs                         { panic("not used") }
func (f *fakeStore) OrderItems() store.OrderItems                           { panic("not used") }
func (f *fakeStore) StockItems() store.StockItems                           { panic("not used") }
func (f *fakeStore) Scenarios() store.Scenarios                             { panic("not used") }
func (f *fakeStore) Plans() store.Plans                                     { panic("not used") }
func (f *fakeStore) Locks() store.Locks                                     { panic("not used") }
func (f *fakeStore) NotificationPreferences() store.NotificationPreferences { panic("not used") }
func (f *fakeStore) Notifications() store.Notifications                    { panic("not used") }
func (f *fakeStore) Activities() store.Activities                          { panic("not used") }

func (f *fakeStore) AuditLog() store.AuditLog { return fakeAuditLog{f} }

// WithTx simulates a real transaction boundary well enough for these
// tests: writes performed by fn are only kept if fn returns nil.
func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	var staged []store.AuditEntry
	txCtx := context.WithValue(ctx, stagingKey{}, &staged)
	if err := fn(txCtx); err != nil {
		return err
	}
	f.mu.Lock()
	f.entries = append(f.entries, staged...)
	f.mu.Unlock()
	return nil
}

type stagingKey struct{}

type fakeAuditLog struct{ f *fakeStore }

func (a fakeAuditLog) Insert(ctx context.Context, entry store.AuditEntry) error {
	if staged, ok := ctx.Value(stagingKey{}).(*[]store.AuditEntry); ok {
		*staged = append(*staged, entry)
		return nil
	}
	return errors.New("Insert called outside WithTx")
}

func (a fakeAuditLog) Query(ctx context.Context, filter store.AuditFilter) ([]store.AuditEntry, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	var matched []store.AuditEntry
	for _, e := range a.f.entries {
		if e.TenantID != filter.TenantID {
			continue
		}
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.Module != "" && e.Module != filter.Module {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	if filter.Offset >= len(matched) {
		return nil, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) || filter.Limit <= 0 {
		end = len(matched)
	}
	return matched[filter.Offset:end], nil
}

func (a fakeAuditLog) EntityHistory(ctx context.Context, tenantID, entityType, entityID string, limit int) ([]store.AuditEntry, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	var matched []store.AuditEntry
	for _, e := range a.f.entries {
		if e.TenantID == tenantID && e.EntityType == entityType && e.EntityID == entityID {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}
