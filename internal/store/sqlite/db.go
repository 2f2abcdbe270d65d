// Package sqlite is the reference implementation of internal/store's
// persistence port, on the pure-Go modernc.org/sqlite driver. Every
// repository filters by tenant_id except the ones whose port interface
// documents otherwise; WithTx stashes the active *sql.Tx in the context so
// repository methods called from inside it participate transparently.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps the pooled connection and exposes the tenant-scoped repositories
// through Store.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path, applying
// the same WAL/synchronous/foreign-key PRAGMAs regardless of deployment
// size: this module has one profile, not the teacher's ledger/cache/standard
// split, since every table here is equally important operational state.
func Open(path string) (*DB, error) {
	connStr := path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)"

	conn, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	conn.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers
	conn.SetConnMaxIdleTime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Migrate applies schema.sql. Statements are split on ";" and executed one
// at a time; every statement uses IF NOT EXISTS, so a table or index left
// by a prior run is kept as it is. The first failing statement aborts the
// migration.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}
