package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cutflow/core/internal/errs"
	"github.com/cutflow/core/internal/store"
)

type locksRepo struct{ db *DB }

const lockColumns = `id, tenant_id, document_type, document_id, user_id, acquired_at, expires_at`

func scanLock(scanner interface{ Scan(dest ...any) error }) (store.DocumentLock, error) {
	var l store.DocumentLock
	err := scanner.Scan(&l.ID, &l.TenantID, &l.DocumentType, &l.DocumentID, &l.UserID, &l.AcquiredAt, &l.ExpiresAt)
	return l, err
}

// Acquire deletes any expired row for this document then inserts, both
// within one transaction: a lock is live iff now < expiresAt, so an
// expired-but-not-yet-reaped row must never block a fresh acquire.
// idx_document_locks_document still rejects a second live lock on the
// same (tenant, documentType, documentId) as a unique-constraint
// violation, mapped to errs.AlreadyLocked.
func (r locksRepo) Acquire(ctx context.Context, lock store.DocumentLock) (store.DocumentLock, error) {
	err := r.db.WithTx(ctx, func(ctx context.Context) error {
		q := r.db.txOrConn(ctx)

		if _, err := q.ExecContext(ctx,
			`DELETE FROM document_locks WHERE tenant_id = ? AND document_type = ? AND document_id = ? AND expires_at <= ?`,
			lock.TenantID, lock.DocumentType, lock.DocumentID, lock.AcquiredAt); err != nil {
			return fmt.Errorf("delete expired lock: %w", err)
		}

		_, err := q.ExecContext(ctx,
			`INSERT INTO document_locks (`+lockColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			lock.ID, lock.TenantID, lock.DocumentType, lock.DocumentID, lock.UserID, lock.AcquiredAt, lock.ExpiresAt)
		if err != nil {
			if isUniqueConstraintErr(err) {
				return errs.New(errs.AlreadyLocked, "document is already locked")
			}
			return fmt.Errorf("acquire lock: %w", err)
		}
		return nil
	})
	if err != nil {
		return store.DocumentLock{}, err
	}
	return lock, nil
}

func isUniqueConstraintErr(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed") || strings.Contains(err.Error(), "constraint failed: UNIQUE")
}

func (r locksRepo) Release(ctx context.Context, tenantID, documentType, documentID, userID string) error {
	res, err := r.db.txOrConn(ctx).ExecContext(ctx,
		`DELETE FROM document_locks WHERE tenant_id = ? AND document_type = ? AND document_id = ? AND user_id = ?`,
		tenantID, documentType, documentID, userID)
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return requireRowAffected(res, errs.New(errs.NotFound, "lock not held by this user"))
}

func (r locksRepo) ForceRelease(ctx context.Context, tenantID, documentType, documentID string) error {
	res, err := r.db.txOrConn(ctx).ExecContext(ctx,
		`DELETE FROM document_locks WHERE tenant_id = ? AND document_type = ? AND document_id = ?`,
		tenantID, documentType, documentID)
	if err != nil {
		return fmt.Errorf("force release lock: %w", err)
	}
	return requireRowAffected(res, errs.New(errs.NotFound, "no lock on document"))
}

func (r locksRepo) Refresh(ctx context.Context, tenantID, documentType, documentID, userID string, newExpiresAt time.Time) (store.DocumentLock, error) {
	res, err := r.db.txOrConn(ctx).ExecContext(ctx,
		`UPDATE document_locks SET expires_at = ? WHERE tenant_id = ? AND document_type = ? AND document_id = ? AND user_id = ?`,
		newExpiresAt, tenantID, documentType, documentID, userID)
	if err != nil {
		return store.DocumentLock{}, fmt.Errorf("refresh lock: %w", err)
	}
	if err := requireRowAffected(res, errs.New(errs.NotFound, "lock not held by this user")); err != nil {
		return store.DocumentLock{}, err
	}
	existing, _, err := r.GetActive(ctx, tenantID, documentType, documentID)
	return existing, err
}

func (r locksRepo) GetActive(ctx context.Context, tenantID, documentType, documentID string) (store.DocumentLock, bool, error) {
	row := r.db.txOrConn(ctx).QueryRowContext(ctx,
		`SELECT `+lockColumns+` FROM document_locks WHERE tenant_id = ? AND document_type = ? AND document_id = ?`,
		tenantID, documentType, documentID)
	lock, err := scanLock(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.DocumentLock{}, false, nil
		}
		return store.DocumentLock{}, false, fmt.Errorf("get active lock: %w", err)
	}
	return lock, true, nil
}

func (r locksRepo) ListByUser(ctx context.Context, tenantID, userID string) ([]store.DocumentLock, error) {
	rows, err := r.db.txOrConn(ctx).QueryContext(ctx,
		`SELECT `+lockColumns+` FROM document_locks WHERE tenant_id = ? AND user_id = ?`, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("list locks by user: %w", err)
	}
	defer rows.Close()

	var out []store.DocumentLock
	for rows.Next() {
		lock, err := scanLock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lock: %w", err)
		}
		out = append(out, lock)
	}
	return out, rows.Err()
}

func (r locksRepo) DeleteExpired(ctx context.Context, asOf time.Time) (int, error) {
	res, err := r.db.txOrConn(ctx).ExecContext(ctx, `DELETE FROM document_locks WHERE expires_at <= ?`, asOf)
	if err != nil {
		return 0, fmt.Errorf("delete expired locks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}
