package activity

import (
	"context"
	"sync"
	"time"

	"github.com/cutflow/core/internal/store"
)

type fakeStore struct {
	mu            sync.Mutex
	entries       []store.ActivityEntry
	reads         map[string]map[string]time.Time // activityID -> userID -> readAt
	notifications []store.Notification
}

func newFakeStore() *fakeStore {
	return &fakeStore{reads: make(map[string]map[string]time.Time)}
}

func (f *fakeStore) CuttingJobs() store.CuttingJobs                             { panic("not used") }
func (f *fakeStore) OrderItems() store.OrderItems                               { panic("not used") }
func (f *fakeStore) StockItems() store.StockItems                               { panic("not used") }
func (f *fakeStore) Scenarios() store.Scenarios                                 { panic("not used") }
func (f *fakeStore) Plans() store.Plans                                         { panic("not used") }
func (f *fakeStore) Locks() store.Locks                                         { panic("not used") }
func (f *fakeStore) AuditLog() store.AuditLog                                   { panic("not used") }
func (f *fakeStore) NotificationPreferences() store.NotificationPreferences     { return fakeNoPreferences{} }
func (f *fakeStore) Notifications() store.Notifications                        { return fakeNotifications{f} }
func (f *fakeStore) Activities() store.Activities                              { return fakeActivities{f} }

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeNoPreferences always reports no preference row, so the notification
// service falls back to its configured default channel (in_app).
type fakeNoPreferences struct{}

func (fakeNoPreferences) GetForUserEvent(ctx context.Context, tenantID, userID, eventType string) (store.NotificationPreference, bool, error) {
	return store.NotificationPreference{}, false, nil
}

type fakeNotifications struct{ f *fakeStore }

func (n fakeNotifications) Insert(ctx context.Context, row store.Notification) (store.Notification, error) {
	n.f.mu.Lock()
	defer n.f.mu.Unlock()
	n.f.notifications = append(n.f.notifications, row)
	return row, nil
}

type fakeActivities struct{ f *fakeStore }

func (a fakeActivities) Insert(ctx context.Context, entry store.ActivityEntry) (store.ActivityEntry, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	a.f.entries = append(a.f.entries, entry)
	return entry, nil
}

func (a fakeActivities) List(ctx context.Context, tenantID string, limit, offset int) ([]store.ActivityEntry, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	var matched []store.ActivityEntry
	for _, e := range a.f.entries {
		if e.TenantID == tenantID {
			matched = append(matched, e)
		}
	}
	return paginate(matched, limit, offset), nil
}

func (a fakeActivities) ListByDocument(ctx context.Context, tenantID, entityType, entityID string, limit, offset int) ([]store.ActivityEntry, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	var matched []store.ActivityEntry
	for _, e := range a.f.entries {
		if e.TenantID == tenantID && e.EntityType == entityType && e.EntityID == entityID {
			matched = append(matched, e)
		}
	}
	return paginate(matched, limit, offset), nil
}

func (a fakeActivities) ListMentions(ctx context.Context, tenantID, userID string, limit, offset int) ([]store.ActivityEntry, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	var matched []store.ActivityEntry
	for _, e := range a.f.entries {
		if e.TenantID != tenantID {
			continue
		}
		for _, m := range mentionedUserIDs(e.Metadata) {
			if m == userID {
				matched = append(matched, e)
				break
			}
		}
	}
	return paginate(matched, limit, offset), nil
}

func (a fakeActivities) UnreadCount(ctx context.Context, tenantID, userID string, since time.Time) (int, error) {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	count := 0
	for _, e := range a.f.entries {
		if e.TenantID != tenantID || e.CreatedAt.Before(since) {
			continue
		}
		if _, read := a.f.reads[e.ID][userID]; !read {
			count++
		}
	}
	return count, nil
}

func (a fakeActivities) MarkRead(ctx context.Context, activityID, userID string) error {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	if a.f.reads[activityID] == nil {
		a.f.reads[activityID] = make(map[string]time.Time)
	}
	a.f.reads[activityID][userID] = time.Now()
	return nil
}

func (a fakeActivities) MarkAllRead(ctx context.Context, tenantID, userID string) error {
	a.f.mu.Lock()
	defer a.f.mu.Unlock()
	for _, e := range a.f.entries {
		if e.TenantID != tenantID {
			continue
		}
		if a.f.reads[e.ID] == nil {
			a.f.reads[e.ID] = make(map[string]time.Time)
		}
		a.f.reads[e.ID][userID] = time.Now()
	}
	return nil
}

func paginate(entries []store.ActivityEntry, limit, offset int) []store.ActivityEntry {
	if offset >= len(entries) {
		return nil
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end]
}
