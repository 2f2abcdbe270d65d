package notifications

import (
	"context"
	"sync"

	"github.com/cutflow/core/internal/store"
)

type fakeStore struct {
	mu            sync.Mutex
	prefs         map[string]store.NotificationPreference
	notifications []store.Notification
}

func newFakeStore() *fakeStore {
	return &fakeStore{prefs: make(map[string]store.NotificationPreference)}
}

func prefKey(tenantID, userID, eventType string) string {
	return tenantID + "/" + userID + "/" + eventType
}

func (f *fakeStore) setPreference(tenantID, userID, eventType string, channels []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prefs[prefKey(tenantID, userID, eventType)] = store.NotificationPreference{
		TenantID: tenantID, UserID: userID, EventType: eventType, EnabledChannels: channels,
	}
}

func (f *fakeStore) CuttingJobs() store.CuttingJobs { panic("not used") }
func (f *fakeStore) OrderItems() store.OrderItems   { panic("not used") }
func (f *fakeStore) StockItems() store.StockItems   { panic("not used") }
func (f *fakeStore) Scenarios() store.Scenarios     { panic("not used") }
func (f *fakeStore) Plans() store.Plans             { panic("not used") }
func (f *fakeStore) Locks() store.Locks             { panic("not used") }
func (f *fakeStore) Activities() store.Activities   { panic("not used") }
func (f *fakeStore) AuditLog() store.AuditLog       { panic("not used") }

func (f *fakeStore) NotificationPreferences() store.NotificationPreferences {
	return fakeNotificationPreferences{f}
}

func (f *fakeStore) Notifications() store.Notifications {
	return fakeNotifications{f}
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeNotificationPreferences struct{ f *fakeStore }

func (p fakeNotificationPreferences) GetForUserEvent(ctx context.Context, tenantID, userID, eventType string) (store.NotificationPreference, bool, error) {
	p.f.mu.Lock()
	defer p.f.mu.Unlock()
	pref, ok := p.f.prefs[prefKey(tenantID, userID, eventType)]
	return pref, ok, nil
}

type fakeNotifications struct{ f *fakeStore }

func (n fakeNotifications) Insert(ctx context.Context, row store.Notification) (store.Notification, error) {
	n.f.mu.Lock()
	defer n.f.mu.Unlock()
	row.ID = "notif-" + string(rune('a'+len(n.f.notifications)))
	n.f.notifications = append(n.f.notifications, row)
	return row, nil
}
