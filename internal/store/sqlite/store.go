package sqlite

import (
	"context"

	"github.com/cutflow/core/internal/store"
)

// Store is the concrete store.Store backed by a single SQLite *DB. Every
// sub-interface accessor returns a thin value type over the same *DB, so
// concurrent repository calls share one connection pool and one WithTx
// context convention.
type Store struct {
	db *DB
}

// New wraps db as a store.Store.
func New(db *DB) *Store {
	return &Store{db: db}
}

func (s *Store) CuttingJobs() store.CuttingJobs { return cuttingJobsRepo{s.db} }
func (s *Store) OrderItems() store.OrderItems   { return orderItemsRepo{s.db} }
func (s *Store) StockItems() store.StockItems   { return stockItemsRepo{s.db} }
func (s *Store) Scenarios() store.Scenarios     { return scenariosRepo{s.db} }
func (s *Store) Plans() store.Plans             { return plansRepo{s.db} }
func (s *Store) Locks() store.Locks             { return locksRepo{s.db} }
func (s *Store) NotificationPreferences() store.NotificationPreferences {
	return notificationPreferencesRepo{s.db}
}
func (s *Store) Notifications() store.Notifications { return notificationsRepo{s.db} }
func (s *Store) Activities() store.Activities       { return activitiesRepo{s.db} }
func (s *Store) AuditLog() store.AuditLog           { return auditLogRepo{s.db} }

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.db.WithTx(ctx, fn)
}
