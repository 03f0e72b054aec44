// Package session owns the server-side lifecycle of a contributor's working
// batch: creation, resumption, progress tracking, write-back, completion and
// abandonment.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imprint-ph/imprint-annotator/internal/domain"
	"github.com/imprint-ph/imprint-annotator/internal/merge"
)

// Batch is what a fetch hands back to the client: the merged working batch
// plus the resume position, or an empty batch with a message when the
// contributor has no session and asked for none.
type Batch struct {
	Images      []merge.AnnotatedImage `json:"images"`
	IsResumed   bool                   `json:"isResumed"`
	ResumeIndex int                    `json:"resumeIndex,omitempty"`
	Message     string                 `json:"message,omitempty"`
}

// Submission is the write-back payload for one finished image.
type Submission struct {
	ImageID             string
	ImageKey            int64
	EditedBoxes         []domain.Box
	NewBoxes            []domain.Box
	AccessibilityRating *int
	PavementType        string
}

// Manager coordinates sessions, edits and the merge engine over the shared
// document store.
type Manager struct {
	store  domain.Store
	engine *merge.Engine
	clock  clock.Clock
	logger *zap.SugaredLogger
}

// NewManager builds a manager with the wall clock.
func NewManager(store domain.Store, logger *zap.SugaredLogger) *Manager {
	return NewManagerWithClock(store, logger, clock.New())
}

// NewManagerWithClock builds a manager with an injected clock for
// deterministic timestamps in tests.
func NewManagerWithClock(store domain.Store, logger *zap.SugaredLogger, clk clock.Clock) *Manager {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Manager{
		store:  store,
		engine: merge.NewEngine(store),
		clock:  clk,
		logger: logger,
	}
}

// HasActive reports whether the contributor currently has an active session.
func (m *Manager) HasActive(ctx context.Context, username string) (bool, error) {
	sess, err := m.store.Sessions().FindActive(ctx, username)
	if err != nil {
		return false, err
	}
	return sess != nil, nil
}

// StartOrResume returns the contributor's active batch if one exists,
// otherwise creates one of requestedCount images. With no active session and
// no requested count it returns an empty batch with a message rather than
// fabricating a session.
func (m *Manager) StartOrResume(ctx context.Context, username string, requestedCount int) (*Batch, error) {
	existing, err := m.store.Sessions().FindActive(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return m.resume(ctx, existing)
	}

	if requestedCount <= 0 {
		return &Batch{Images: []merge.AnnotatedImage{}, Message: "No active session found and no count provided."}, nil
	}

	images, err := m.engine.SelectBatch(ctx, username, requestedCount)
	if err != nil {
		return nil, err
	}
	annotated, err := m.engine.Overlay(ctx, username, images)
	if err != nil {
		return nil, err
	}

	imageIDs := make([]string, len(images))
	for i, img := range images {
		imageIDs[i] = img.ID
	}
	sess := &domain.Session{
		ID:         uuid.NewString(),
		Username:   username,
		ImageIDs:   imageIDs,
		TotalCount: len(imageIDs),
		Status:     domain.SessionActive,
		CreatedAt:  m.clock.Now().UTC(),
	}
	err = m.store.Sessions().Create(ctx, sess)
	if errors.Is(err, domain.ErrConflict) {
		// A concurrent fetch (duplicated tab) won the creation race; serve
		// its session instead of failing the reload.
		m.logger.Infow("lost session creation race, resuming instead", "username", username)
		winner, ferr := m.store.Sessions().FindActive(ctx, username)
		if ferr != nil {
			return nil, ferr
		}
		if winner == nil {
			return nil, err
		}
		return m.resume(ctx, winner)
	}
	if err != nil {
		return nil, err
	}

	m.logger.Infow("session created", "username", username, "total", sess.TotalCount)
	return &Batch{Images: annotated, IsResumed: false, ResumeIndex: 1}, nil
}

// resume rebuilds the batch of an existing active session, re-running the
// overlay so the contributor's latest edits are reflected.
func (m *Manager) resume(ctx context.Context, sess *domain.Session) (*Batch, error) {
	images, err := m.store.Images().GetByIDs(ctx, sess.ImageIDs)
	if err != nil {
		return nil, err
	}
	annotated, err := m.engine.Overlay(ctx, sess.Username, images)
	if err != nil {
		return nil, err
	}

	// A persisted index wins so backward navigation survives a reload;
	// otherwise resume lands just past the completed prefix. Either way the
	// pointer stays within the batch.
	resumeIndex := sess.CurrentIndex
	if resumeIndex == 0 {
		resumeIndex = len(sess.CompletedImageIDs) + 1
	}
	if resumeIndex > sess.TotalCount {
		resumeIndex = sess.TotalCount
	}

	m.logger.Debugw("session resumed", "username", sess.Username, "resumeIndex", resumeIndex)
	return &Batch{Images: annotated, IsResumed: true, ResumeIndex: resumeIndex}, nil
}

// UpdateProgress persists the 1-based resume pointer, clamped to the active
// session's batch size. Stray pings without an active session are tolerated
// as no-ops.
func (m *Manager) UpdateProgress(ctx context.Context, username string, index int) error {
	if index < 1 {
		return domain.NewValidationError("index", "must be at least 1")
	}
	sess, err := m.store.Sessions().FindActive(ctx, username)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	if index > sess.TotalCount {
		index = sess.TotalCount
	}
	return m.store.Sessions().SetCurrentIndex(ctx, username, index)
}

// Submit upserts the contributor's edit for one image and records the image
// as completed on the active session.
func (m *Manager) Submit(ctx context.Context, username string, sub *Submission) error {
	sess, err := m.store.Sessions().FindActive(ctx, username)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("submitting annotation for %s: %w", username, domain.ErrNotFound)
	}

	return m.store.Atomically(ctx, func(tx domain.Store) error {
		edit := &domain.AnnotationEdit{
			Username:            username,
			ImageKey:            sub.ImageKey,
			EditedBoxes:         sub.EditedBoxes,
			NewBoxes:            sub.NewBoxes,
			AccessibilityRating: sub.AccessibilityRating,
			PavementType:        sub.PavementType,
			Status:              domain.EditPending,
			UpdatedAt:           m.clock.Now().UTC(),
		}
		if err := tx.Edits().Upsert(ctx, edit); err != nil {
			return err
		}
		return tx.Sessions().AddCompletedImage(ctx, username, sub.ImageID)
	})
}

// Finalize transitions the active session and every pending edit of the
// contributor to completed, and logs the activity.
func (m *Manager) Finalize(ctx context.Context, username string, totalFinished int) error {
	sess, err := m.store.Sessions().FindActive(ctx, username)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("finalizing session for %s: %w", username, domain.ErrNotFound)
	}

	now := m.clock.Now().UTC()
	err = m.store.Atomically(ctx, func(tx domain.Store) error {
		if err := tx.Sessions().MarkCompleted(ctx, sess.ID, now); err != nil {
			return err
		}
		if _, err := tx.Edits().CompletePending(ctx, username); err != nil {
			return err
		}
		return tx.Contributors().AppendActivity(ctx, username, domain.Activity{
			Activity: fmt.Sprintf("You finished %d annotations", totalFinished),
			Date:     now,
			Tag:      "Annotation Session Done",
		})
	})
	if err != nil {
		return err
	}
	m.logger.Infow("session finalized", "username", username, "total", totalFinished)
	return nil
}

// Abandon transitions the active session to abandoned. Edits for images the
// contributor already finished are kept and finalized; every other pending
// edit is deleted.
func (m *Manager) Abandon(ctx context.Context, username string) error {
	sess, err := m.store.Sessions().FindActive(ctx, username)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("abandoning session for %s: %w", username, domain.ErrNotFound)
	}

	completedKeys, err := m.completedImageKeys(ctx, sess)
	if err != nil {
		return err
	}

	now := m.clock.Now().UTC()
	err = m.store.Atomically(ctx, func(tx domain.Store) error {
		if err := tx.Sessions().MarkAbandoned(ctx, sess.ID, now); err != nil {
			return err
		}
		if len(completedKeys) > 0 {
			if _, err := tx.Edits().CompletePendingForImages(ctx, username, completedKeys); err != nil {
				return err
			}
			activity := domain.Activity{
				Activity: fmt.Sprintf("Abandoned session but finished %d annotations", len(completedKeys)),
				Date:     now,
				Tag:      "Session Abandoned",
			}
			if err := tx.Contributors().AppendActivity(ctx, username, activity); err != nil {
				return err
			}
		}
		_, err := tx.Edits().DeletePending(ctx, username)
		return err
	})
	if err != nil {
		return err
	}
	m.logger.Infow("session abandoned", "username", username, "saved", len(completedKeys))
	return nil
}

// completedImageKeys resolves the session's completed image ids to the
// numeric keys edits are stored under.
func (m *Manager) completedImageKeys(ctx context.Context, sess *domain.Session) ([]int64, error) {
	if len(sess.CompletedImageIDs) == 0 {
		return nil, nil
	}
	images, err := m.store.Images().GetByIDs(ctx, sess.CompletedImageIDs)
	if err != nil {
		return nil, err
	}
	keys := make([]int64, len(images))
	for i, img := range images {
		keys[i] = img.Key
	}
	return keys, nil
}
