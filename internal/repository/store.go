// Package repository implements the document store over SQLite.
package repository

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/imprint-ph/imprint-annotator/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store is the SQLite-backed document store. The zero-value query handle
// targets the database directly; Atomically derives a transaction-bound view.
type Store struct {
	db *sql.DB
	q  dbtx
}

// Open opens (creating if needed) the SQLite database at filename and runs
// pending migrations.
func Open(filename string) (*Store, error) {
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("while opening database: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return NewStore(db), nil
}

// NewStore wraps an already migrated database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// Migrate brings the schema up to date using the embedded migrations.
func Migrate(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("while loading embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("while preparing migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("while preparing migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("while running migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Contributors() domain.ContributorStore { return &contributorStore{q: s.q} }
func (s *Store) Images() domain.ImageStore             { return &imageStore{q: s.q} }
func (s *Store) Sessions() domain.SessionStore         { return &sessionStore{q: s.q} }
func (s *Store) Edits() domain.EditStore               { return &editStore{q: s.q} }

// Atomically runs fn inside one transaction. Nested calls reuse the
// enclosing transaction.
func (s *Store) Atomically(ctx context.Context, fn func(domain.Store) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapStorage("starting transaction", err)
	}
	defer tx.Rollback()
	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.WrapStorage("committing transaction", err)
	}
	return nil
}

var _ domain.Store = (*Store)(nil)

// marshalJSON encodes v for a JSON text column, normalizing nil slices to [].
func marshalJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	out := string(data)
	if out == "null" {
		out = "[]"
	}
	return out, nil
}

// placeholders renders n comma-separated SQL placeholders.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
