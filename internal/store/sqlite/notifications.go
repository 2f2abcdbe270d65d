package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cutflow/core/internal/store"
	"github.com/cutflow/core/pkg/idgen"
)

type notificationPreferencesRepo struct{ db *DB }

func (r notificationPreferencesRepo) GetForUserEvent(ctx context.Context, tenantID, userID, eventType string) (store.NotificationPreference, bool, error) {
	row := r.db.txOrConn(ctx).QueryRowContext(ctx,
		`SELECT id, tenant_id, user_id, event_type, enabled_channels_json
		 FROM notification_preferences WHERE tenant_id = ? AND user_id = ? AND event_type = ?`,
		tenantID, userID, eventType)

	var p store.NotificationPreference
	var channelsJSON string
	if err := row.Scan(&p.ID, &p.TenantID, &p.UserID, &p.EventType, &channelsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.NotificationPreference{}, false, nil
		}
		return store.NotificationPreference{}, false, fmt.Errorf("get notification preference: %w", err)
	}
	if err := json.Unmarshal([]byte(channelsJSON), &p.EnabledChannels); err != nil {
		return store.NotificationPreference{}, false, fmt.Errorf("decode enabled channels: %w", err)
	}
	return p, true, nil
}

type notificationsRepo struct{ db *DB }

func (r notificationsRepo) Insert(ctx context.Context, n store.Notification) (store.Notification, error) {
	if n.ID == "" {
		n.ID = idgen.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	_, err := r.db.txOrConn(ctx).ExecContext(ctx,
		`INSERT INTO notifications (id, tenant_id, user_id, event_type, channel, status, external_id, error, payload_json, sent_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.TenantID, n.UserID, n.EventType, n.Channel, n.Status, n.ExternalID, n.Error, n.PayloadJSON, n.SentAt, n.CreatedAt)
	if err != nil {
		return store.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}
