package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cutflow/core/internal/store"
)

type activitiesRepo struct{ db *DB }

const activityColumns = `id, tenant_id, actor_id, verb, entity_type, entity_id, metadata_json, created_at`

func scanActivity(scanner interface{ Scan(dest ...any) error }) (store.ActivityEntry, error) {
	var a store.ActivityEntry
	var metadataJSON string
	if err := scanner.Scan(&a.ID, &a.TenantID, &a.ActorID, &a.Verb, &a.EntityType, &a.EntityID, &metadataJSON, &a.CreatedAt); err != nil {
		return store.ActivityEntry{}, err
	}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &a.Metadata); err != nil {
			return store.ActivityEntry{}, fmt.Errorf("decode activity metadata: %w", err)
		}
	}
	return a, nil
}

func (r activitiesRepo) Insert(ctx context.Context, entry store.ActivityEntry) (store.ActivityEntry, error) {
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return store.ActivityEntry{}, fmt.Errorf("encode activity metadata: %w", err)
	}
	_, err = r.db.txOrConn(ctx).ExecContext(ctx,
		`INSERT INTO activity_entries (`+activityColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.TenantID, entry.ActorID, entry.Verb, entry.EntityType, entry.EntityID, string(metadataJSON), entry.CreatedAt)
	if err != nil {
		return store.ActivityEntry{}, fmt.Errorf("insert activity: %w", err)
	}
	return entry, nil
}

func (r activitiesRepo) List(ctx context.Context, tenantID string, limit, offset int) ([]store.ActivityEntry, error) {
	rows, err := r.db.txOrConn(ctx).QueryContext(ctx,
		`SELECT `+activityColumns+` FROM activity_entries WHERE tenant_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return scanActivities(rows)
}

func (r activitiesRepo) ListByDocument(ctx context.Context, tenantID, entityType, entityID string, limit, offset int) ([]store.ActivityEntry, error) {
	rows, err := r.db.txOrConn(ctx).QueryContext(ctx,
		`SELECT `+activityColumns+` FROM activity_entries
		 WHERE tenant_id = ? AND entity_type = ? AND entity_id = ?
		 ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		tenantID, entityType, entityID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list document activities: %w", err)
	}
	return scanActivities(rows)
}

// ListMentions pre-filters on a LIKE match against the raw metadata JSON,
// then decodes each candidate to confirm userID actually appears in
// mentionedUserIds rather than as a substring of an unrelated value.
func (r activitiesRepo) ListMentions(ctx context.Context, tenantID, userID string, limit, offset int) ([]store.ActivityEntry, error) {
	rows, err := r.db.txOrConn(ctx).QueryContext(ctx,
		`SELECT `+activityColumns+` FROM activity_entries
		 WHERE tenant_id = ? AND metadata_json LIKE ?
		 ORDER BY created_at DESC`,
		tenantID, "%"+userID+"%")
	if err != nil {
		return nil, fmt.Errorf("list mention candidates: %w", err)
	}
	candidates, err := scanActivities(rows)
	if err != nil {
		return nil, err
	}

	var out []store.ActivityEntry
	for _, a := range candidates {
		if mentions(a.Metadata, userID) {
			out = append(out, a)
		}
	}
	return paginate(out, limit, offset), nil
}

func mentions(metadata map[string]any, userID string) bool {
	raw, ok := metadata["mentionedUserIds"]
	if !ok {
		return false
	}
	list, ok := raw.([]any)
	if !ok {
		return false
	}
	for _, item := range list {
		if s, ok := item.(string); ok && s == userID {
			return true
		}
	}
	return false
}

func paginate(entries []store.ActivityEntry, limit, offset int) []store.ActivityEntry {
	if offset >= len(entries) {
		return nil
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

func scanActivities(rows *sql.Rows) ([]store.ActivityEntry, error) {
	defer rows.Close()
	var out []store.ActivityEntry
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r activitiesRepo) UnreadCount(ctx context.Context, tenantID, userID string, since time.Time) (int, error) {
	var count int
	err := r.db.txOrConn(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activity_entries a
		 WHERE a.tenant_id = ? AND a.created_at >= ?
		 AND NOT EXISTS (SELECT 1 FROM activity_reads r WHERE r.activity_id = a.id AND r.user_id = ?)`,
		tenantID, since, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread activities: %w", err)
	}
	return count, nil
}

func (r activitiesRepo) MarkRead(ctx context.Context, activityID, userID string) error {
	_, err := r.db.txOrConn(ctx).ExecContext(ctx,
		`INSERT INTO activity_reads (activity_id, user_id, read_at) VALUES (?, ?, ?)
		 ON CONFLICT (activity_id, user_id) DO UPDATE SET read_at = excluded.read_at`,
		activityID, userID, time.Now())
	if err != nil {
		return fmt.Errorf("mark activity read: %w", err)
	}
	return nil
}

func (r activitiesRepo) MarkAllRead(ctx context.Context, tenantID, userID string) error {
	_, err := r.db.txOrConn(ctx).ExecContext(ctx,
		`INSERT INTO activity_reads (activity_id, user_id, read_at)
		 SELECT a.id, ?, ? FROM activity_entries a WHERE a.tenant_id = ?
		 ON CONFLICT (activity_id, user_id) DO UPDATE SET read_at = excluded.read_at`,
		userID, time.Now(), tenantID)
	if err != nil {
		return fmt.Errorf("mark all activities read: %w", err)
	}
	return nil
}
