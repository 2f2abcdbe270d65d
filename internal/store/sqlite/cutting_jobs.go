package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cutflow/core/internal/errs"
	"github.com/cutflow/core/internal/store"
)

type cuttingJobsRepo struct{ db *DB }

func (r cuttingJobsRepo) GetByID(ctx context.Context, id string) (store.CuttingJob, error) {
	row := r.db.txOrConn(ctx).QueryRowContext(ctx,
		`SELECT id, tenant_id, job_number, material_type_id, thickness, status FROM cutting_jobs WHERE id = ?`, id)

	var j store.CuttingJob
	if err := row.Scan(&j.ID, &j.TenantID, &j.JobNumber, &j.MaterialTypeID, &j.Thickness, &j.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.CuttingJob{}, errs.New(errs.NotFound, "cutting job not found")
		}
		return store.CuttingJob{}, fmt.Errorf("get cutting job: %w", err)
	}
	return j, nil
}

func (r cuttingJobsRepo) ItemsByJobID(ctx context.Context, jobID string) ([]store.CuttingJobItem, error) {
	rows, err := r.db.txOrConn(ctx).QueryContext(ctx,
		`SELECT id, cutting_job_id, order_item_id, quantity FROM cutting_job_items WHERE cutting_job_id = ?`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list cutting job items: %w", err)
	}
	defer rows.Close()

	var out []store.CuttingJobItem
	for rows.Next() {
		var it store.CuttingJobItem
		if err := rows.Scan(&it.ID, &it.CuttingJobID, &it.OrderItemID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan cutting job item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r cuttingJobsRepo) UpdateStatus(ctx context.Context, id string, status store.CuttingJobStatus) error {
	res, err := r.db.txOrConn(ctx).ExecContext(ctx, `UPDATE cutting_jobs SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update cutting job status: %w", err)
	}
	return requireRowAffected(res, errs.New(errs.NotFound, "cutting job not found"))
}

// requireRowAffected fails notFound if the statement touched no rows,
// matching the in-memory fakes' "not found" semantics for a missing id.
func requireRowAffected(res sql.Result, notFound *errs.Error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
