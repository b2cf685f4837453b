package database

import (
	"path/filepath"
	"testing"
)

func TestOpenAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.db")
	db, err := OpenAndMigrate(Config{Path: path})
	if err != nil {
		t.Fatalf("OpenAndMigrate() error = %v", err)
	}
	defer db.Close()

	for _, table := range []string{"users", "favorites", "progress", "downloads"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	// Migrations are idempotent.
	if err := Migrate(db); err != nil {
		t.Errorf("second Migrate() error = %v", err)
	}
}

func TestProgressRangeConstraint(t *testing.T) {
	db, err := OpenAndMigrate(Config{Path: filepath.Join(t.TempDir(), "data.db")})
	if err != nil {
		t.Fatalf("OpenAndMigrate() error = %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`INSERT INTO users (id, email, password_hash) VALUES ('u1', 'a@b.c', 'x')`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO progress (user_id, book, progress) VALUES ('u1', 'Dune', 1.5)`); err == nil {
		t.Error("progress > 1 should violate the check constraint")
	}
	if _, err := db.Exec(`INSERT INTO favorites (user_id, book) VALUES ('nobody', 'Dune')`); err == nil {
		t.Error("favorite for unknown user should violate the foreign key")
	}
}

func TestDefaultConfig_Env(t *testing.T) {
	t.Setenv("EPUBHUB_DB_PATH", "/tmp/x.db")
	if got := DefaultConfig().Path; got != "/tmp/x.db" {
		t.Errorf("Path = %q", got)
	}
}
