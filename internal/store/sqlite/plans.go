package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cutflow/core/internal/errs"
	"github.com/cutflow/core/internal/store"
	"github.com/cutflow/core/pkg/idgen"
)

type plansRepo struct{ db *DB }

func (r plansRepo) Create(ctx context.Context, plan store.CuttingPlan, stocks []store.CuttingPlanStock) (store.CuttingPlan, error) {
	q := r.db.txOrConn(ctx)

	_, err := q.ExecContext(ctx,
		`INSERT INTO cutting_plans (id, scenario_id, plan_number, total_waste_mm, waste_percentage, stock_used_count, efficiency, status, approved_by, approved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.ScenarioID, plan.PlanNumber, plan.TotalWasteMM, plan.WastePercentage, plan.StockUsedCount,
		plan.Efficiency, plan.Status, plan.ApprovedBy, plan.ApprovedAt)
	if err != nil {
		return store.CuttingPlan{}, fmt.Errorf("insert cutting plan: %w", err)
	}

	for _, s := range stocks {
		if s.ID == "" {
			s.ID = idgen.New()
		}
		_, err := q.ExecContext(ctx,
			`INSERT INTO cutting_plan_stocks (id, plan_id, stock_item_id, sequence, placements_json, waste_mm, waste_percentage)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.ID, plan.ID, s.StockItemID, s.Sequence, s.PlacementsJSON, s.WasteMM, s.WastePercentage)
		if err != nil {
			return store.CuttingPlan{}, fmt.Errorf("insert cutting plan stock: %w", err)
		}
	}

	return plan, nil
}

func (r plansRepo) GetByID(ctx context.Context, id string) (store.CuttingPlan, error) {
	row := r.db.txOrConn(ctx).QueryRowContext(ctx,
		`SELECT id, scenario_id, plan_number, total_waste_mm, waste_percentage, stock_used_count, efficiency, status, approved_by, approved_at
		 FROM cutting_plans WHERE id = ?`, id)

	var p store.CuttingPlan
	if err := row.Scan(&p.ID, &p.ScenarioID, &p.PlanNumber, &p.TotalWasteMM, &p.WastePercentage, &p.StockUsedCount,
		&p.Efficiency, &p.Status, &p.ApprovedBy, &p.ApprovedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.CuttingPlan{}, errs.New(errs.NotFound, "plan not found")
		}
		return store.CuttingPlan{}, fmt.Errorf("get cutting plan: %w", err)
	}
	return p, nil
}

func (r plansRepo) UpdateStatus(ctx context.Context, id string, status store.CuttingPlanStatus, approvedBy *string) error {
	var res sql.Result
	var err error
	if approvedBy != nil {
		res, err = r.db.txOrConn(ctx).ExecContext(ctx,
			`UPDATE cutting_plans SET status = ?, approved_by = ?, approved_at = ? WHERE id = ?`,
			status, *approvedBy, time.Now(), id)
	} else {
		res, err = r.db.txOrConn(ctx).ExecContext(ctx, `UPDATE cutting_plans SET status = ? WHERE id = ?`, status, id)
	}
	if err != nil {
		return fmt.Errorf("update plan status: %w", err)
	}
	return requireRowAffected(res, errs.New(errs.NotFound, "plan not found"))
}

func (r plansRepo) StocksByPlanID(ctx context.Context, planID string) ([]store.CuttingPlanStock, error) {
	rows, err := r.db.txOrConn(ctx).QueryContext(ctx,
		`SELECT id, plan_id, stock_item_id, sequence, placements_json, waste_mm, waste_percentage
		 FROM cutting_plan_stocks WHERE plan_id = ? ORDER BY sequence`, planID)
	if err != nil {
		return nil, fmt.Errorf("list plan stocks: %w", err)
	}
	defer rows.Close()

	var out []store.CuttingPlanStock
	for rows.Next() {
		var s store.CuttingPlanStock
		if err := rows.Scan(&s.ID, &s.PlanID, &s.StockItemID, &s.Sequence, &s.PlacementsJSON, &s.WasteMM, &s.WastePercentage); err != nil {
			return nil, fmt.Errorf("scan plan stock: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
