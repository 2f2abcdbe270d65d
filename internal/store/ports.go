package store

import (
	"context"
	"time"
)

// Tenant scoping: callers pass ctx carrying a bound tenant id
// (internal/tenant) and the concrete repository filters every query by it.

// CuttingJobs is the repository for CuttingJob/CuttingJobItem.
type CuttingJobs interface {
	GetByID(ctx context.Context, id string) (CuttingJob, error)
	ItemsByJobID(ctx context.Context, jobID string) ([]CuttingJobItem, error)
	UpdateStatus(ctx context.Context, id string, status CuttingJobStatus) error
}

// OrderItems is the repository backing CuttingJobItem's order-item lookups.
type OrderItems interface {
	GetByID(ctx context.Context, id string) (OrderItem, error)
}

// StockItems is the repository for StockItem, including the reservation
// bump performed as part of plan assembly.
type StockItems interface {
	CandidatesForMaterial(ctx context.Context, materialTypeID string, thickness float64, stockType StockType) ([]StockItem, error)
	GetByID(ctx context.Context, id string) (StockItem, error)
	Reserve(ctx context.Context, id string, qty int) error
	Release(ctx context.Context, id string, qty int) error
}

// Scenarios is the repository for OptimizationScenario.
type Scenarios interface {
	GetByID(ctx context.Context, id string) (OptimizationScenario, error)
	UpdateStatus(ctx context.Context, id string, status string) error
}

// Plans is the repository for CuttingPlan/CuttingPlanStock.
type Plans interface {
	Create(ctx context.Context, plan CuttingPlan, stocks []CuttingPlanStock) (CuttingPlan, error)
	GetByID(ctx context.Context, id string) (CuttingPlan, error)
	UpdateStatus(ctx context.Context, id string, status CuttingPlanStatus, approvedBy *string) error
	StocksByPlanID(ctx context.Context, planID string) ([]CuttingPlanStock, error)
}

// Locks is the repository for DocumentLock, with the atomicity the
// document-lock service depends on: Acquire must fail with a typed
// conflict rather than silently overwriting a live lock.
type Locks interface {
	Acquire(ctx context.Context, lock DocumentLock) (DocumentLock, error)
	Release(ctx context.Context, tenantID, documentType, documentID, userID string) error
	ForceRelease(ctx context.Context, tenantID, documentType, documentID string) error
	Refresh(ctx context.Context, tenantID, documentType, documentID, userID string, newExpiresAt time.Time) (DocumentLock, error)
	GetActive(ctx context.Context, tenantID, documentType, documentID string) (DocumentLock, bool, error)
	ListByUser(ctx context.Context, tenantID, userID string) ([]DocumentLock, error)
	DeleteExpired(ctx context.Context, asOf time.Time) (int, error)
}

// NotificationPreferences is the repository resolving a user's enabled
// channels for an event type.
type NotificationPreferences interface {
	GetForUserEvent(ctx context.Context, tenantID, userID, eventType string) (NotificationPreference, bool, error)
}

// Notifications is the repository recording one row per channel dispatch
// attempt.
type Notifications interface {
	Insert(ctx context.Context, n Notification) (Notification, error)
}

// Activities is the repository for ActivityEntry and its read-state.
type Activities interface {
	Insert(ctx context.Context, entry ActivityEntry) (ActivityEntry, error)
	List(ctx context.Context, tenantID string, limit, offset int) ([]ActivityEntry, error)
	ListByDocument(ctx context.Context, tenantID, entityType, entityID string, limit, offset int) ([]ActivityEntry, error)
	ListMentions(ctx context.Context, tenantID, userID string, limit, offset int) ([]ActivityEntry, error)
	UnreadCount(ctx context.Context, tenantID, userID string, since time.Time) (int, error)
	MarkRead(ctx context.Context, activityID, userID string) error
	MarkAllRead(ctx context.Context, tenantID, userID string) error
}

// AuditLog is the append-only repository for AuditEntry.
type AuditLog interface {
	Insert(ctx context.Context, entry AuditEntry) error
	Query(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
	EntityHistory(ctx context.Context, tenantID, entityType, entityID string, limit int) ([]AuditEntry, error)
}

// AuditFilter is the query shape AuditLog.Query accepts; zero-value fields
// are unfiltered except Limit, which internal/audit's Query clamps to 500
// before calling the repository; the repository uses Limit as given.
type AuditFilter struct {
	TenantID   string
	EntityType string
	EntityID   string
	UserID     string
	Action     string
	Module     string
	StartDate  *string
	EndDate    *string
	Limit      int
	Offset     int
}

// Store aggregates every repository port. Components depend on the
// narrowest sub-interface they actually use; Store exists so a single
// concrete implementation (internal/store/sqlite) can satisfy all of them
// and a single value can be threaded through bootstrap wiring.
type Store interface {
	CuttingJobs() CuttingJobs
	OrderItems() OrderItems
	StockItems() StockItems
	Scenarios() Scenarios
	Plans() Plans
	Locks() Locks
	NotificationPreferences() NotificationPreferences
	Notifications() Notifications
	Activities() Activities
	AuditLog() AuditLog

	// WithTx runs fn inside a single transaction; fn's error aborts the
	// transaction and propagates. Used by compound operations that must
	// never partially persist (plan assembly, lock acquire, audited writes).
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
