// Package postgres provides a Postgres-backed catalog store using the pgx
// database/sql driver and the shared sqlstore implementation.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"tutorcore/internal/infra/persistence/sqlstore"
	"tutorcore/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/tutorcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists catalogs to Postgres tables.
type Store struct {
	*sqlstore.Store
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to
// defaultDSN), checks connectivity and applies the catalog schema.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	inner, err := sqlstore.New(ctx, db, sqlstore.Postgres)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: inner}, nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
