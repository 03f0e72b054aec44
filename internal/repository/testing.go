package repository

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// SetupTestStore creates an in-memory SQLite store with the full schema for
// testing.
func SetupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return NewStore(db)
}
