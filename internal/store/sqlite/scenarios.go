package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cutflow/core/internal/errs"
	"github.com/cutflow/core/internal/store"
)

type scenariosRepo struct{ db *DB }

func (r scenariosRepo) GetByID(ctx context.Context, id string) (store.OptimizationScenario, error) {
	row := r.db.txOrConn(ctx).QueryRowContext(ctx,
		`SELECT id, job_id, name, algorithm, kerf_mm, allow_rotation, status, parameters_json
		 FROM optimization_scenarios WHERE id = ?`, id)

	var s store.OptimizationScenario
	var allowRotation int
	if err := row.Scan(&s.ID, &s.JobID, &s.Name, &s.Algorithm, &s.KerfMM, &allowRotation, &s.Status, &s.ParametersJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.OptimizationScenario{}, errs.New(errs.NotFound, "scenario not found")
		}
		return store.OptimizationScenario{}, fmt.Errorf("get scenario: %w", err)
	}
	s.AllowRotation = allowRotation != 0
	return s, nil
}

func (r scenariosRepo) UpdateStatus(ctx context.Context, id string, status string) error {
	res, err := r.db.txOrConn(ctx).ExecContext(ctx, `UPDATE optimization_scenarios SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update scenario status: %w", err)
	}
	return requireRowAffected(res, errs.New(errs.NotFound, "scenario not found"))
}
