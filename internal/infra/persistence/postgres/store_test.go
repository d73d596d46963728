package postgres

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite" // stand-in database/sql backend for the open hook

	"pathodex/pkg/domain"
)

// openStandIn routes the store's connection through an embedded database so
// the snapshot round trip runs without a Postgres server. The SQL the store
// emits is restricted to the dialect subset both engines accept.
func openStandIn(t *testing.T) (string, func()) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "standin.db")
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) {
		return sql.Open("sqlite", path)
	})
	return path, restore
}

func TestStorePersistsAndHydratesSnapshot(t *testing.T) {
	ctx := context.Background()
	_, restore := openStandIn(t)
	defer restore()

	store, err := NewStore("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	catalog := []domain.Disease{
		{Code: "D001", Name: "Influenza", Symptoms: []string{"Fever"}, Treatments: []string{"Rest"}, Category: "Respiratory", Contagious: true},
		{Code: "D002", Name: "Diabetes", Symptoms: []string{"Thirst"}, Treatments: []string{"Insulin"}, Category: "Metabolic", Chronic: true},
	}
	if err := store.SaveCatalog(ctx, catalog); err != nil {
		t.Fatalf("save catalog: %v", err)
	}
	now := time.Now().UTC()
	if err := store.RecordExport(ctx, domain.ExportRecord{ID: "exp-1", Status: domain.ExportStatusFailed, Error: "boom", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("record export: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore("")
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	loaded, err := reopened.LoadCatalog(ctx)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if len(loaded) != 2 || loaded[1].Code != "D002" {
		t.Fatalf("unexpected catalog after reopen: %+v", loaded)
	}
	records, err := reopened.ListExports(ctx)
	if err != nil {
		t.Fatalf("list exports: %v", err)
	}
	if len(records) != 1 || records[0].Error != "boom" {
		t.Fatalf("unexpected exports after reopen: %+v", records)
	}
}

func TestStoreEnsuresStateTable(t *testing.T) {
	_, restore := openStandIn(t)
	defer restore()

	store, err := NewStore("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&count); err != nil {
		t.Fatalf("state table missing: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty state table, got %d rows", count)
	}
}
