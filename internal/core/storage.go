package core

import (
	"context"
	"fmt"

	"tutorcore/internal/infra/persistence/memory"
	"tutorcore/internal/infra/persistence/postgres"
	"tutorcore/internal/infra/persistence/sqlite"
	"tutorcore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// StorageConfig selects and parameterises a backend. Empty fields fall back
// to the backend defaults.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// OpenPersistentStore opens the backend named by cfg.Driver, defaulting to sqlite.
func OpenPersistentStore(ctx context.Context, cfg StorageConfig) (PersistentStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
