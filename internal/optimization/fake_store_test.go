package optimization

import (
	"context"
	"sync"
	"time"

	"github.com/cutflow/core/internal/errs"
	"github.com/cutflow/core/internal/store"
)

// fakeStore is an in-memory store.Store used only by this package's tests.
// It implements every sub-interface of store.Store; the ones this package's
// engine never touches (Locks, NotificationPreferences, Activities,
// AuditLog) panic if called, so a test exercising them by accident fails
// loudly instead of silently no-opping.
type fakeStore struct {
	mu sync.Mutex

	jobs       map[string]store.CuttingJob
	jobItems   map[string][]store.CuttingJobItem
	orderItems map[string]store.OrderItem
	stock      map[string]store.StockItem
	scenarios  map[string]store.OptimizationScenario
	plans      map[string]store.CuttingPlan
	planStocks map[string][]store.CuttingPlanStock
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:       map[string]store.CuttingJob{},
		jobItems:   map[string][]store.CuttingJobItem{},
		orderItems: map[string]store.OrderItem{},
		stock:      map[string]store.StockItem{},
		scenarios:  map[string]store.OptimizationScenario{},
		plans:      map[string]store.CuttingPlan{},
		planStocks: map[string][]store.CuttingPlanStock{},
	}
}

func (f *fakeStore) CuttingJobs() store.CuttingJobs { return fakeCuttingJobs{f} }
func (f *fakeStore) OrderItems() store.OrderItems   { return fakeOrderItems{f} }
func (f *fakeStore) StockItems() store.StockItems   { return fakeStockItems{f} }
func (f *fakeStore) Scenarios() store.Scenarios     { return fakeScenarios{f} }
func (f *fakeStore) Plans() store.Plans             { return fakePlans{f} }

func (f *fakeStore) Locks() store.Locks                                         { panic("not used by optimization tests") }
func (f *fakeStore) NotificationPreferences() store.NotificationPreferences     { panic("not used by optimization tests") }
func (f *fakeStore) Notifications() store.Notifications                       { panic("not used") }
func (f *fakeStore) Activities() store.Activities                               { panic("not used by optimization tests") }
func (f *fakeStore) AuditLog() store.AuditLog                                   { panic("not used by optimization tests") }

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeCuttingJobs struct{ f *fakeStore }

func (r fakeCuttingJobs) GetByID(ctx context.Context, id string) (store.CuttingJob, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	job, ok := r.f.jobs[id]
	if !ok {
		return store.CuttingJob{}, errs.New(errs.NotFound, "cutting job not found")
	}
	return job, nil
}

func (r fakeCuttingJobs) ItemsByJobID(ctx context.Context, jobID string) ([]store.CuttingJobItem, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	return r.f.jobItems[jobID], nil
}

func (r fakeCuttingJobs) UpdateStatus(ctx context.Context, id string, status store.CuttingJobStatus) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	job, ok := r.f.jobs[id]
	if !ok {
		return errs.New(errs.NotFound, "cutting job not found")
	}
	job.Status = status
	r.f.jobs[id] = job
	return nil
}

type fakeOrderItems struct{ f *fakeStore }

func (r fakeOrderItems) GetByID(ctx context.Context, id string) (store.OrderItem, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	item, ok := r.f.orderItems[id]
	if !ok {
		return store.OrderItem{}, errs.New(errs.NotFound, "order item not found")
	}
	return item, nil
}

type fakeStockItems struct{ f *fakeStore }

func (r fakeStockItems) CandidatesForMaterial(ctx context.Context, materialTypeID string, thickness float64, stockType store.StockType) ([]store.StockItem, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var out []store.StockItem
	for _, item := range r.f.stock {
		if item.MaterialTypeID == materialTypeID && item.Thickness == thickness && item.StockType == stockType {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r fakeStockItems) GetByID(ctx context.Context, id string) (store.StockItem, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	item, ok := r.f.stock[id]
	if !ok {
		return store.StockItem{}, errs.New(errs.NotFound, "stock item not found")
	}
	return item, nil
}

func (r fakeStockItems) Reserve(ctx context.Context, id string, qty int) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	item, ok := r.f.stock[id]
	if !ok {
		return errs.New(errs.NotFound, "stock item not found")
	}
	item.ReservedQty += qty
	r.f.stock[id] = item
	return nil
}

func (r fakeStockItems) Release(ctx context.Context, id string, qty int) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	item, ok := r.f.stock[id]
	if !ok {
		return errs.New(errs.NotFound, "stock item not found")
	}
	item.ReservedQty -= qty
	r.f.stock[id] = item
	return nil
}

type fakeScenarios struct{ f *fakeStore }

func (r fakeScenarios) GetByID(ctx context.Context, id string) (store.OptimizationScenario, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	s, ok := r.f.scenarios[id]
	if !ok {
		return store.OptimizationScenario{}, errs.New(errs.NotFound, "scenario not found")
	}
	return s, nil
}

func (r fakeScenarios) UpdateStatus(ctx context.Context, id string, status string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	s, ok := r.f.scenarios[id]
	if !ok {
		return errs.New(errs.NotFound, "scenario not found")
	}
	s.Status = status
	r.f.scenarios[id] = s
	return nil
}

type fakePlans struct{ f *fakeStore }

func (r fakePlans) Create(ctx context.Context, plan store.CuttingPlan, stocks []store.CuttingPlanStock) (store.CuttingPlan, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	r.f.plans[plan.ID] = plan
	r.f.planStocks[plan.ID] = stocks
	return plan, nil
}

func (r fakePlans) GetByID(ctx context.Context, id string) (store.CuttingPlan, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	p, ok := r.f.plans[id]
	if !ok {
		return store.CuttingPlan{}, errs.New(errs.NotFound, "plan not found")
	}
	return p, nil
}

func (r fakePlans) StocksByPlanID(ctx context.Context, planID string) ([]store.CuttingPlanStock, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	return r.f.planStocks[planID], nil
}

func (r fakePlans) UpdateStatus(ctx context.Context, id string, status store.CuttingPlanStatus, approvedBy *string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	p, ok := r.f.plans[id]
	if !ok {
		return errs.New(errs.NotFound, "plan not found")
	}
	p.Status = status
	if approvedBy != nil {
		now := time.Now()
		p.ApprovedAt = &now
		p.ApprovedBy = approvedBy
	}
	r.f.plans[id] = p
	return nil
}
