package core

import (
	"context"
	"path/filepath"
	"testing"

	"tutorcore/internal/infra/persistence/memory"
	"tutorcore/internal/infra/persistence/sqlite"
)

func TestOpenPersistentStoreDrivers(t *testing.T) {
	ctx := context.Background()

	mem, err := OpenPersistentStore(ctx, StorageConfig{Driver: StorageMemory})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := mem.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", mem)
	}

	path := filepath.Join(t.TempDir(), "catalog.db")
	store, err := OpenPersistentStore(ctx, StorageConfig{SQLitePath: path})
	if err != nil {
		t.Fatalf("sqlite default: %v", err)
	}
	defer func() { _ = store.Close() }()
	sq, ok := store.(*sqlite.Store)
	if !ok || sq.Path() != path {
		t.Fatalf("expected sqlite store at %s, got %T", path, store)
	}

	if _, err := OpenPersistentStore(ctx, StorageConfig{Driver: "mysql"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestCatalogsOverSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := OpenPersistentStore(ctx, StorageConfig{Driver: StorageSQLite, SQLitePath: filepath.Join(t.TempDir(), "c.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	students := NewStudentCatalog(store)
	themes := NewThemeCatalog(store)

	mustAddStudent(t, students, "Петя Иванов 7 класс")
	mustAddTheme(t, themes, "7 класс", "Наречие")
	mustAddTheme(t, themes, "7 класс", "Глагол")
	views, err := students.ListStudentThemeViews(ctx)
	if err != nil {
		t.Fatalf("views: %v", err)
	}
	if len(views) != 1 || len(views[0].ThemeNames) != 2 || views[0].ThemeNames[0] != "Глагол" {
		t.Fatalf("unexpected views %+v", views)
	}
	if _, err := themes.AddTheme(ctx, "7 класс", "Глагол"); err == nil {
		t.Fatalf("expected duplicate over sqlite")
	}
}
