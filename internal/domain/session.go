package domain

import (
	"context"
	"time"
)

// SessionStatus is the lifecycle state of a working batch.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// Session is one contributor's working batch and progress pointer. At most
// one active session exists per contributor; terminal sessions are kept for
// audit and never deleted.
type Session struct {
	ID                string
	Username          string
	ImageIDs          []string
	TotalCount        int
	CompletedImageIDs []string
	// CurrentIndex is the 1-based resume pointer. Zero means "never
	// explicitly set"; resumption then falls back to completed count + 1.
	CurrentIndex int
	Status       SessionStatus
	CreatedAt    time.Time
	CompletedAt  *time.Time
	AbandonedAt  *time.Time
}

// HasCompleted reports whether imageID is in the session's completed set.
func (s *Session) HasCompleted(imageID string) bool {
	for _, id := range s.CompletedImageIDs {
		if id == imageID {
			return true
		}
	}
	return false
}

// SessionStore defines the operations issued against the session collection.
type SessionStore interface {
	// FindActive returns the contributor's active session, or nil if none.
	FindActive(ctx context.Context, username string) (*Session, error)

	// Create inserts a new session. Returns ErrConflict if the contributor
	// already has an active session; the uniqueness check must be atomic
	// with the insert.
	Create(ctx context.Context, s *Session) error

	// SetCurrentIndex persists the resume pointer on the active session.
	// Matching no session is not an error.
	SetCurrentIndex(ctx context.Context, username string, index int) error

	// AddCompletedImage appends imageID to the active session's completed
	// set if not already present.
	AddCompletedImage(ctx context.Context, username, imageID string) error

	// MarkCompleted transitions a session to the completed state.
	MarkCompleted(ctx context.Context, id string, at time.Time) error

	// MarkAbandoned transitions a session to the abandoned state.
	MarkAbandoned(ctx context.Context, id string, at time.Time) error
}
