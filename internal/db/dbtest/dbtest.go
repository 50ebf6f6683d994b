// Package dbtest opens migrated SQLite databases for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/trinnux/gallery/internal/db"
)

const pragmas = "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_txlock=immediate"

// Open returns a fresh, fully migrated SQLite database in t.TempDir().
// Goose keeps global state, so callers must not run in parallel.
func Open(t *testing.T) *sqlx.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gallery.db")
	database, err := db.Init("sqlite", path+pragmas)
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	err = db.RunMigrations(database.DB, "sqlite")
	if err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}

	return database
}
