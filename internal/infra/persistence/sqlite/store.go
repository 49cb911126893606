// Package sqlite provides the embedded SQLite backend for the catalog store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"tutorcore/internal/infra/persistence/sqlstore"
	"tutorcore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.PersistentStore = (*Store)(nil)

const defaultPath = "tutorcore.db"

// Store persists the catalogs to a single SQLite file.
type Store struct {
	*sqlstore.Store
	path string
}

// NewStore opens (creating when needed) the SQLite database at path and
// applies the catalog schema. An empty path falls back to ./tutorcore.db;
// ":memory:" keeps everything in process memory.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows one writer; a single connection also keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)
	inner, err := sqlstore.New(context.Background(), db, sqlstore.SQLite)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{Store: inner, path: path}, nil
}

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
