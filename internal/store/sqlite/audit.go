package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cutflow/core/internal/store"
)

type auditLogRepo struct{ db *DB }

const auditColumns = `id, tenant_id, user_id, action, module, entity_type, entity_id, before_json, after_json, created_at`

func (r auditLogRepo) Insert(ctx context.Context, entry store.AuditEntry) error {
	beforeJSON, err := marshalOptional(entry.Before)
	if err != nil {
		return fmt.Errorf("encode audit before: %w", err)
	}
	afterJSON, err := marshalOptional(entry.After)
	if err != nil {
		return fmt.Errorf("encode audit after: %w", err)
	}
	_, err = r.db.txOrConn(ctx).ExecContext(ctx,
		`INSERT INTO audit_entries (`+auditColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.TenantID, entry.UserID, entry.Action, entry.Module, entry.EntityType, entry.EntityID,
		beforeJSON, afterJSON, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func marshalOptional(m map[string]any) (*string, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func unmarshalOptional(s sql.NullString) (map[string]any, error) {
	if !s.Valid {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func scanAuditEntry(scanner interface{ Scan(dest ...any) error }) (store.AuditEntry, error) {
	var a store.AuditEntry
	var before, after sql.NullString
	if err := scanner.Scan(&a.ID, &a.TenantID, &a.UserID, &a.Action, &a.Module, &a.EntityType, &a.EntityID,
		&before, &after, &a.CreatedAt); err != nil {
		return store.AuditEntry{}, err
	}
	var err error
	if a.Before, err = unmarshalOptional(before); err != nil {
		return store.AuditEntry{}, fmt.Errorf("decode audit before: %w", err)
	}
	if a.After, err = unmarshalOptional(after); err != nil {
		return store.AuditEntry{}, fmt.Errorf("decode audit after: %w", err)
	}
	return a, nil
}

func (r auditLogRepo) Query(ctx context.Context, filter store.AuditFilter) ([]store.AuditEntry, error) {
	var where []string
	var args []any

	if filter.TenantID != "" {
		where = append(where, "tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if filter.EntityType != "" {
		where = append(where, "entity_type = ?")
		args = append(args, filter.EntityType)
	}
	if filter.EntityID != "" {
		where = append(where, "entity_id = ?")
		args = append(args, filter.EntityID)
	}
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Action != "" {
		where = append(where, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.Module != "" {
		where = append(where, "module = ?")
		args = append(args, filter.Module)
	}
	if filter.StartDate != nil {
		where = append(where, "created_at >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		where = append(where, "created_at <= ?")
		args = append(args, *filter.EndDate)
	}

	query := `SELECT ` + auditColumns + ` FROM audit_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.txOrConn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []store.AuditEntry
	for rows.Next() {
		a, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r auditLogRepo) EntityHistory(ctx context.Context, tenantID, entityType, entityID string, limit int) ([]store.AuditEntry, error) {
	rows, err := r.db.txOrConn(ctx).QueryContext(ctx,
		`SELECT `+auditColumns+` FROM audit_entries
		 WHERE tenant_id = ? AND entity_type = ? AND entity_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		tenantID, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("entity audit history: %w", err)
	}
	defer rows.Close()

	var out []store.AuditEntry
	for rows.Next() {
		a, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
