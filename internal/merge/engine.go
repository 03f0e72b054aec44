// Package merge combines ground-truth boxes, a contributor's stored edits
// and their newly drawn boxes into one ordered annotation list per image.
// The overlay runs on every fetch, so it is idempotent by construction.
package merge

import (
	"context"
	"fmt"

	"github.com/imprint-ph/imprint-annotator/internal/domain"
)

// AnnotatedImage is one image of a working batch with the contributor's
// edits overlaid onto the ground truth.
type AnnotatedImage struct {
	ID                  string       `json:"id"`
	Key                 int64        `json:"imageKey"`
	City                string       `json:"city"`
	URL                 string       `json:"url"`
	Boxes               []domain.Box `json:"annotationList"`
	AccessibilityRating *int         `json:"accessibilityRating,omitempty"`
	PavementType        string       `json:"pavementType,omitempty"`
}

// Engine selects image batches and overlays contributor edits.
type Engine struct {
	store domain.Store
}

func NewEngine(store domain.Store) *Engine {
	return &Engine{store: store}
}

// SelectBatch picks up to count images for a fresh session: first uniformly
// at random from the contributor's home and frequently walked cities, then,
// if that pool is exhausted, from every other city. The two segments keep
// their order; ordering within each is random per call.
func (e *Engine) SelectBatch(ctx context.Context, username string, count int) ([]*domain.ImageRecord, error) {
	contributor, err := e.store.Contributors().Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if contributor == nil {
		return nil, fmt.Errorf("selecting batch for %s: %w", username, domain.ErrNotFound)
	}

	targetCities := append([]string{contributor.City}, contributor.FrequentlyWalkedCities...)
	images, err := e.store.Images().RandomByCities(ctx, targetCities, count)
	if err != nil {
		return nil, err
	}
	if len(images) < count {
		additional, err := e.store.Images().RandomExcludingCities(ctx, targetCities, count-len(images))
		if err != nil {
			return nil, err
		}
		images = append(images, additional...)
	}
	return images, nil
}

// Overlay produces the merged annotation list for each image. Images without
// an edit pass their ground truth through unchanged.
func (e *Engine) Overlay(ctx context.Context, username string, images []*domain.ImageRecord) ([]AnnotatedImage, error) {
	keys := make([]int64, len(images))
	for i, img := range images {
		keys[i] = img.Key
	}
	edits, err := e.store.Edits().GetForImages(ctx, username, keys)
	if err != nil {
		return nil, err
	}

	result := make([]AnnotatedImage, len(images))
	for i, img := range images {
		edit := edits[img.Key]
		annotated := AnnotatedImage{
			ID:    img.ID,
			Key:   img.Key,
			City:  img.City,
			URL:   img.URL,
			Boxes: MergeBoxes(img.GroundTruth, edit),
		}
		if edit != nil {
			annotated.AccessibilityRating = edit.AccessibilityRating
			annotated.PavementType = edit.PavementType
		}
		result[i] = annotated
	}
	return result, nil
}

// MergeBoxes builds the final ordered box list: every ground-truth box in
// its original position, substituted by the contributor's edit with the same
// id when one exists, followed by the contributor-drawn boxes in stored
// order. No id appears twice.
func MergeBoxes(groundTruth []domain.Box, edit *domain.AnnotationEdit) []domain.Box {
	if edit == nil {
		return append([]domain.Box(nil), groundTruth...)
	}

	editedByID := make(map[string]domain.Box, len(edit.EditedBoxes))
	for _, box := range edit.EditedBoxes {
		editedByID[box.ID] = box
	}

	seen := make(map[string]bool, len(groundTruth)+len(edit.NewBoxes))
	result := make([]domain.Box, 0, len(groundTruth)+len(edit.NewBoxes))
	for _, box := range groundTruth {
		if revised, ok := editedByID[box.ID]; ok {
			revised.Source = domain.BoxSourceGroundTruth
			box = revised
		}
		result = append(result, box)
		seen[box.ID] = true
	}
	for _, box := range edit.NewBoxes {
		// New-box ids are disjoint from ground truth; a collision means a
		// corrupt edit and the ground-truth entry wins.
		if seen[box.ID] {
			continue
		}
		box.Source = domain.BoxSourceUser
		box.Status = domain.BoxStatusUndecided
		result = append(result, box)
		seen[box.ID] = true
	}
	return result
}
