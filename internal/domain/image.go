package domain

import (
	"context"
	"time"
)

// ImageRecord is the immutable reference data for one street-view image.
// Key is the numeric identifier contributor edits are correlated by; ID is
// the document id used for session membership.
type ImageRecord struct {
	ID          string
	Key         int64
	City        string
	URL         string
	GroundTruth []Box
	IngestedAt  time.Time
}

// ImageStore defines the operations the merge engine issues against the
// image collection.
type ImageStore interface {
	// Put inserts or replaces an image record.
	Put(ctx context.Context, img *ImageRecord) error

	// GetByIDs retrieves records for the given ids, preserving the order of
	// ids. Ids with no matching record are skipped.
	GetByIDs(ctx context.Context, ids []string) ([]*ImageRecord, error)

	// RandomByCities picks up to limit images whose city is in cities,
	// uniformly at random without replacement.
	RandomByCities(ctx context.Context, cities []string, limit int) ([]*ImageRecord, error)

	// RandomExcludingCities picks up to limit images whose city is NOT in
	// cities, uniformly at random without replacement.
	RandomExcludingCities(ctx context.Context, cities []string, limit int) ([]*ImageRecord, error)

	// Count returns the total number of images.
	Count(ctx context.Context) (int64, error)
}
