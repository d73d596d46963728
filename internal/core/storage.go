package core

import (
	"fmt"

	"pathodex/internal/infra/persistence/memory"
	"pathodex/internal/infra/persistence/postgres"
	"pathodex/internal/infra/persistence/sqlite"
	"pathodex/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenPersistentStore selects a backend from the resolved configuration.
// Defaults to sqlite when the driver is empty.
func OpenPersistentStore(driver StorageDriver, sqlitePath, postgresDSN string) (domain.PersistentStore, error) {
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(sqlitePath)
	case StoragePostgres:
		return postgres.NewStore(postgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
