package domain

import "context"

// Store aggregates the document-store collections this core operates on.
// Implementations exist for SQLite and MongoDB; everything above this
// interface is storage-agnostic.
type Store interface {
	Contributors() ContributorStore
	Images() ImageStore
	Sessions() SessionStore
	Edits() EditStore

	// Atomically runs fn against a store view whose writes either all apply
	// or none do. Implementations without multi-document transactions may run
	// fn directly, provided every step inside is idempotent and safely
	// re-runnable.
	Atomically(ctx context.Context, fn func(Store) error) error
}
