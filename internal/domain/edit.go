package domain

import (
	"context"
	"time"
)

// EditStatus is the lifecycle state of a contributor's per-image edit record.
type EditStatus string

const (
	EditPending   EditStatus = "pending"
	EditCompleted EditStatus = "completed"
)

// AnnotationEdit is the persisted record of one contributor's changes to one
// image, created lazily on first edit. EditedBoxes holds revised ground-truth
// boxes (matched by box id); NewBoxes holds contributor-drawn boxes whose ids
// are disjoint from the ground-truth ids.
type AnnotationEdit struct {
	Username            string
	ImageKey            int64
	EditedBoxes         []Box
	NewBoxes            []Box
	AccessibilityRating *int
	PavementType        string
	Status              EditStatus
	UpdatedAt           time.Time
}

// EditStore defines the operations issued against the annotation-edit
// collection.
type EditStore interface {
	// Get retrieves the edit for (username, imageKey), or nil if absent.
	Get(ctx context.Context, username string, imageKey int64) (*AnnotationEdit, error)

	// GetForImages retrieves the contributor's edits for the given image
	// keys, keyed by image key.
	GetForImages(ctx context.Context, username string, imageKeys []int64) (map[int64]*AnnotationEdit, error)

	// Upsert inserts or replaces the edit for (username, imageKey).
	Upsert(ctx context.Context, e *AnnotationEdit) error

	// CompletePending transitions all of the contributor's pending edits to
	// completed, returning how many changed.
	CompletePending(ctx context.Context, username string) (int64, error)

	// CompletePendingForImages transitions the contributor's pending edits
	// for the given image keys to completed, returning how many changed.
	CompletePendingForImages(ctx context.Context, username string, imageKeys []int64) (int64, error)

	// DeletePending removes all of the contributor's pending edits,
	// returning how many were removed.
	DeletePending(ctx context.Context, username string) (int64, error)
}
