// Package plans implements CuttingPlan approval/rejection: the DRAFT ->
// {APPROVED, REJECTED} half of the plan lifecycle that sits downstream of
// OptimizationEngine.Run assembling a DRAFT plan.
package plans

import (
	"context"
	"time"

	"github.com/cutflow/core/internal/errs"
	"github.com/cutflow/core/internal/events"
	"github.com/cutflow/core/internal/store"
	"github.com/cutflow/core/internal/tenant"
)

type Service struct {
	store  store.Store
	events *events.Manager
}

func NewService(st store.Store, em *events.Manager) *Service {
	return &Service{store: st, events: em}
}

// ApprovePlan transitions a DRAFT plan to APPROVED and emits PLAN_APPROVED
// with the approval timestamp, which internal/archive keys its snapshot
// on.
func (s *Service) ApprovePlan(ctx context.Context, planID, approvedBy string) (store.CuttingPlan, *errs.Error) {
	tenantID, tErr := tenant.Current(ctx)
	if tErr != nil {
		return store.CuttingPlan{}, tErr
	}

	plan, err := s.store.Plans().GetByID(ctx, planID)
	if err != nil {
		return store.CuttingPlan{}, errs.Of(err)
	}
	if plan.Status != store.PlanDraft {
		return store.CuttingPlan{}, errs.Newf(errs.InvalidState, "plan %s is %s, not DRAFT", planID, plan.Status)
	}

	approvedAt := time.Now()
	if err := s.store.Plans().UpdateStatus(ctx, planID, store.PlanApproved, &approvedBy); err != nil {
		return store.CuttingPlan{}, errs.Of(err)
	}
	plan.Status = store.PlanApproved
	plan.ApprovedBy = &approvedBy
	plan.ApprovedAt = &approvedAt

	s.events.Emit(events.PlanApproved, "cutting_plan", planID, tenantID, "", map[string]any{
		"planId":     planID,
		"approvedBy": approvedBy,
		"approvedAt": approvedAt.Format(time.RFC3339Nano),
	})

	return plan, nil
}

// RejectPlan transitions a DRAFT plan to REJECTED and releases the stock
// reservations its assembly made, in the same transaction as the status
// change. No archive snapshot is taken: only APPROVED plans are archived.
func (s *Service) RejectPlan(ctx context.Context, planID string) (store.CuttingPlan, *errs.Error) {
	tenantID, tErr := tenant.Current(ctx)
	if tErr != nil {
		return store.CuttingPlan{}, tErr
	}

	plan, err := s.store.Plans().GetByID(ctx, planID)
	if err != nil {
		return store.CuttingPlan{}, errs.Of(err)
	}
	if plan.Status != store.PlanDraft {
		return store.CuttingPlan{}, errs.Newf(errs.InvalidState, "plan %s is %s, not DRAFT", planID, plan.Status)
	}

	txErr := s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.store.Plans().UpdateStatus(ctx, planID, store.PlanRejected, nil); err != nil {
			return err
		}

		stocks, err := s.store.Plans().StocksByPlanID(ctx, planID)
		if err != nil {
			return err
		}
		reserved := map[string]int{}
		for _, stock := range stocks {
			reserved[stock.StockItemID]++
		}
		for stockID, qty := range reserved {
			if err := s.store.StockItems().Release(ctx, stockID, qty); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return store.CuttingPlan{}, errs.Of(txErr)
	}
	plan.Status = store.PlanRejected

	s.events.Emit(events.PlanRejected, "cutting_plan", planID, tenantID, "", map[string]any{"planId": planID})

	return plan, nil
}
