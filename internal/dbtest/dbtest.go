// Package dbtest opens migrated SQLite databases for tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"epubhub/pkg/database"
)

// Open returns a migrated database in a temp dir, closed on cleanup.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	db, err := database.OpenAndMigrate(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// InsertUser creates a user row directly and returns its id.
func InsertUser(t testing.TB, db *sql.DB, id, email string) string {
	t.Helper()
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO users (id, email, password_hash) VALUES (?, ?, 'x')`, id, email)
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}
