package archive

import (
	"context"

	"github.com/cutflow/core/internal/errs"
	"github.com/cutflow/core/internal/store"
)

type fakeStore struct {
	plans  map[string]store.CuttingPlan
	stocks map[string][]store.CuttingPlanStock
}

func newFakeStore() *fakeStore {
	return &fakeStore{plans: make(map[string]store.CuttingPlan), stocks: make(map[string][]store.CuttingPlanStock)}
}

func (f *fakeStore) CuttingJobs() store.CuttingJobs                         { panic("not used") }
func (f *fakeStore) OrderItems() store.OrderItems                           { panic("not used") }
func (f *fakeStore) StockItems() store.StockItems                           { panic("not used") }
func (f *fakeStore) Scenarios() store.Scenarios                             { panic("not used") }
func (f *fakeStore) Locks() store.Locks                                     { panic("not used") }
func (f *fakeStore) NotificationPreferences() store.NotificationPreferences { panic("not used") }
func (f *fakeStore) Notifications() store.Notifications                    { panic("not used") }
func (f *fakeStore) Activities() store.Activities                          { panic("not used") }
func (f *fakeStore) AuditLog() store.AuditLog                              { panic("not used") }

func (f *fakeStore) Plans() store.Plans { return fakePlans{f} }

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakePlans struct{ f *fakeStore }

func (p fakePlans) Create(ctx context.Context, plan store.CuttingPlan, stocks []store.CuttingPlanStock) (store.CuttingPlan, error) {
	panic("not used")
}

func (p fakePlans) GetByID(ctx context.Context, id string) (store.CuttingPlan, error) {
	plan, ok := p.f.plans[id]
	if !ok {
		return store.CuttingPlan{}, errs.New(errs.NotFound, "plan not found")
	}
	return plan, nil
}

func (p fakePlans) UpdateStatus(ctx context.Context, id string, status store.CuttingPlanStatus, approvedBy *string) error {
	panic("not used")
}

func (p fakePlans) StocksByPlanID(ctx context.Context, planID string) ([]store.CuttingPlanStock, error) {
	return p.f.stocks[planID], nil
}
