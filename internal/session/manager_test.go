package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/imprint-ph/imprint-annotator/internal/domain"
	"github.com/imprint-ph/imprint-annotator/internal/repository"
)

func setupManager(t *testing.T) (*Manager, *repository.Store) {
	t.Helper()
	store := repository.SetupTestStore(t)
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewManagerWithClock(store, nil, mock), store
}

func seedWorld(t *testing.T, store *repository.Store, imageCount int) {
	t.Helper()
	ctx := context.Background()
	err := store.Contributors().Put(ctx, &domain.Contributor{
		Username:               "maria",
		City:                   "Manila",
		FrequentlyWalkedCities: []string{"Cebu"},
		CreatedAt:              time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("failed to seed contributor: %v", err)
	}
	cities := []string{"Manila", "Cebu", "Davao"}
	for i := 1; i <= imageCount; i++ {
		err := store.Images().Put(ctx, &domain.ImageRecord{
			ID:   fmt.Sprintf("img-%d", i),
			Key:  int64(i),
			City: cities[i%len(cities)],
			URL:  fmt.Sprintf("/asset/img-%d", i),
			GroundTruth: []domain.Box{
				{ID: fmt.Sprintf("g%d", i), Source: domain.BoxSourceGroundTruth, X: 1, Y: 1, Width: 10, Height: 10, Label: "tree"},
			},
			IngestedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("failed to seed image %d: %v", i, err)
		}
	}
}

func submission(imageID string, key int64) *Submission {
	return &Submission{
		ImageID:  imageID,
		ImageKey: key,
		EditedBoxes: []domain.Box{
			{ID: fmt.Sprintf("g%d", key), Source: domain.BoxSourceGroundTruth, X: 1, Y: 1, Width: 10, Height: 10, Label: "tree", Status: domain.BoxStatusConfirmed},
		},
	}
}

func TestManager_StartOrResume(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an active session of the requested size", func(t *testing.T) {
		m, store := setupManager(t)
		seedWorld(t, store, 6)

		batch, err := m.StartOrResume(ctx, "maria", 5)
		if err != nil {
			t.Fatalf("StartOrResume() error = %v", err)
		}
		if batch.IsResumed {
			t.Error("fresh session reported as resumed")
		}
		if len(batch.Images) != 5 {
			t.Errorf("batch size = %d, want 5", len(batch.Images))
		}
		sess, _ := store.Sessions().FindActive(ctx, "maria")
		if sess == nil || sess.TotalCount != 5 || sess.Status != domain.SessionActive {
			t.Errorf("stored session = %+v", sess)
		}
	})

	t.Run("no session and no count returns an empty batch with a message", func(t *testing.T) {
		m, store := setupManager(t)
		seedWorld(t, store, 6)

		batch, err := m.StartOrResume(ctx, "maria", 0)
		if err != nil {
			t.Fatalf("StartOrResume() error = %v", err)
		}
		if len(batch.Images) != 0 || batch.Message == "" || batch.IsResumed {
			t.Errorf("batch = %+v, want empty with message", batch)
		}
		if sess, _ := store.Sessions().FindActive(ctx, "maria"); sess != nil {
			t.Error("a session was fabricated")
		}
	})

	t.Run("repeated fetch returns the original batch unchanged", func(t *testing.T) {
		m, store := setupManager(t)
		seedWorld(t, store, 6)

		first, err := m.StartOrResume(ctx, "maria", 4)
		if err != nil {
			t.Fatalf("StartOrResume() error = %v", err)
		}
		second, err := m.StartOrResume(ctx, "maria", 2)
		if err != nil {
			t.Fatalf("second StartOrResume() error = %v", err)
		}
		if !second.IsResumed {
			t.Error("second fetch should resume, not create")
		}
		if len(second.Images) != len(first.Images) {
			t.Fatalf("resumed batch size = %d, want %d", len(second.Images), len(first.Images))
		}
		for i := range first.Images {
			if first.Images[i].ID != second.Images[i].ID {
				t.Errorf("image order changed at %d: %s vs %s", i, first.Images[i].ID, second.Images[i].ID)
			}
		}
	})

	t.Run("resume lands after the completed prefix", func(t *testing.T) {
		m, store := setupManager(t)
		seedWorld(t, store, 10)

		if _, err := m.StartOrResume(ctx, "maria", 10); err != nil {
			t.Fatalf("StartOrResume() error = %v", err)
		}
		sess, _ := store.Sessions().FindActive(ctx, "maria")
		for _, id := range sess.ImageIDs[:3] {
			if err := store.Sessions().AddCompletedImage(ctx, "maria", id); err != nil {
				t.Fatalf("AddCompletedImage() error = %v", err)
			}
		}

		batch, err := m.StartOrResume(ctx, "maria", 0)
		if err != nil {
			t.Fatalf("resume error = %v", err)
		}
		if batch.ResumeIndex != 4 {
			t.Errorf("ResumeIndex = %d, want 4", batch.ResumeIndex)
		}
	})

	t.Run("explicit progress pointer wins over completed count", func(t *testing.T) {
		m, store := setupManager(t)
		seedWorld(t, store, 10)

		if _, err := m.StartOrResume(ctx, "maria", 10); err != nil {
			t.Fatalf("StartOrResume() error = %v", err)
		}
		sess, _ := store.Sessions().FindActive(ctx, "maria")
		for _, id := range sess.ImageIDs[:3] {
			if err := store.Sessions().AddCompletedImage(ctx, "maria", id); err != nil {
				t.Fatalf("AddCompletedImage() error = %v", err)
			}
		}
		// The contributor navigated back to image 2.
		if err := m.UpdateProgress(ctx, "maria", 2); err != nil {
			t.Fatalf("UpdateProgress() error = %v", err)
		}

		batch, err := m.StartOrResume(ctx, "maria", 0)
		if err != nil {
			t.Fatalf("resume error = %v", err)
		}
		if batch.ResumeIndex != 2 {
			t.Errorf("ResumeIndex = %d, want explicit 2", batch.ResumeIndex)
		}
	})

	t.Run("stale oversized pointer resumes at the last image", func(t *testing.T) {
		m, store := setupManager(t)
		seedWorld(t, store, 3)

		if _, err := m.StartOrResume(ctx, "maria", 3); err != nil {
			t.Fatalf("StartOrResume() error = %v", err)
		}
		// Written directly, bypassing the manager's clamp.
		if err := store.Sessions().SetCurrentIndex(ctx, "maria", 99); err != nil {
			t.Fatalf("SetCurrentIndex() error = %v", err)
		}

		batch, err := m.StartOrResume(ctx, "maria", 0)
		if err != nil {
			t.Fatalf("resume error = %v", err)
		}
		if batch.ResumeIndex != 3 {
			t.Errorf("ResumeIndex = %d, want clamped 3", batch.ResumeIndex)
		}
	})

	t.Run("unknown contributor requesting a batch is NotFound", func(t *testing.T) {
		m, _ := setupManager(t)
		_, err := m.StartOrResume(ctx, "ghost", 5)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("StartOrResume() error = %v, want ErrNotFound", err)
		}
	})
}

func TestManager_UpdateProgress(t *testing.T) {
	ctx := context.Background()

	t.Run("tolerates missing session", func(t *testing.T) {
		m, store := setupManager(t)
		seedWorld(t, store, 3)
		if err := m.UpdateProgress(ctx, "maria", 2); err != nil {
			t.Errorf("UpdateProgress() error = %v, want silent no-op", err)
		}
	})

	t.Run("pointer beyond the batch is clamped", func(t *testing.T) {
		m, store := setupManager(t)
		seedWorld(t, store, 3)
		if _, err := m.StartOrResume(ctx, "maria", 3); err != nil {
			t.Fatalf("StartOrResume() error = %v", err)
		}
		if err := m.UpdateProgress(ctx, "maria", 99); err != nil {
			t.Fatalf("UpdateProgress() error = %v", err)
		}
		batch, err := m.StartOrResume(ctx, "maria", 0)
		if err != nil {
			t.Fatalf("resume error = %v", err)
		}
		if batch.ResumeIndex != 3 {
			t.Errorf("ResumeIndex = %d, want clamped 3", batch.ResumeIndex)
		}
	})

	t.Run("rejects non-positive index", func(t *testing.T) {
		m, _ := setupManager(t)
		err := m.UpdateProgress(ctx, "maria", 0)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) || verr.Field != "index" {
			t.Errorf("UpdateProgress() error = %v, want ValidationError on index", err)
		}
	})
}

func TestManager_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a pending edit and marks the image completed", func(t *testing.T) {
		m, store := setupManager(t)
		seedWorld(t, store, 5)
		if _, err := m.StartOrResume(ctx, "maria", 5); err != nil {
			t.Fatalf("StartOrResume() error = %v", err)
		}
		sess, _ := store.Sessions().FindActive(ctx, "maria")
		imgs, _ := store.Images().GetByIDs(ctx, sess.ImageIDs[:1])

		if err := m.Submit(ctx, "maria", submission(imgs[0].ID, imgs[0].Key)); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}

		edit, _ := store.Edits().Get(ctx, "maria", imgs[0].Key)
		if edit == nil || edit.Status != domain.EditPending {
			t.Errorf("edit = %+v, want pending record", edit)
		}
		sess, _ = store.Sessions().FindActive(ctx, "maria")
		if !sess.HasCompleted(imgs[0].ID) {
			t.Errorf("completed ids = %v, missing %s", sess.CompletedImageIDs, imgs[0].ID)
		}
	})

	t.Run("without an active session is NotFound", func(t *testing.T) {
		m, store := setupManager(t)
		seedWorld(t, store, 3)
		err := m.Submit(ctx, "maria", submission("img-1", 1))
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Submit() error = %v, want ErrNotFound", err)
		}
		if edit, _ := store.Edits().Get(ctx, "maria", 1); edit != nil {
			t.Error("edit persisted without a session")
		}
	})
}

func TestManager_Finalize(t *testing.T) {
	ctx := context.Background()

	t.Run("completes session, edits and activity log", func(t *testing.T) {
		m, store := setupManager(t)
		seedWorld(t, store, 5)
		if _, err := m.StartOrResume(ctx, "maria", 5); err != nil {
			t.Fatalf("StartOrResume() error = %v", err)
		}
		sess, _ := store.Sessions().FindActive(ctx, "maria")
		imgs, _ := store.Images().GetByIDs(ctx, sess.ImageIDs)
		for _, img := range imgs {
			if err := m.Submit(ctx, "maria", submission(img.ID, img.Key)); err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
		}

		if err := m.Finalize(ctx, "maria", 5); err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}

		if active, _ := store.Sessions().FindActive(ctx, "maria"); active != nil {
			t.Error("session still active after finalize")
		}
		for _, img := range imgs {
			edit, _ := store.Edits().Get(ctx, "maria", img.Key)
			if edit == nil || edit.Status != domain.EditCompleted {
				t.Errorf("edit for %s = %+v, want completed", img.ID, edit)
			}
		}
		c, _ := store.Contributors().Get(ctx, "maria")
		if len(c.Activities) != 1 || c.Activities[0].Tag != "Annotation Session Done" {
			t.Errorf("activities = %+v, want one finished entry", c.Activities)
		}
	})

	t.Run("without an active session is NotFound", func(t *testing.T) {
		m, store := setupManager(t)
		seedWorld(t, store, 3)
		err := m.Finalize(ctx, "maria", 3)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Finalize() error = %v, want ErrNotFound", err)
		}
	})
}

func TestManager_Abandon(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps finished work and deletes the rest", func(t *testing.T) {
		m, store := setupManager(t)
		seedWorld(t, store, 5)
		if _, err := m.StartOrResume(ctx, "maria", 5); err != nil {
			t.Fatalf("StartOrResume() error = %v", err)
		}
		sess, _ := store.Sessions().FindActive(ctx, "maria")
		imgs, _ := store.Images().GetByIDs(ctx, sess.ImageIDs)

		// Finish 2 of 5, then leave a third edit dangling without marking
		// the image completed (an in-flight write-back).
		for _, img := range imgs[:2] {
			if err := m.Submit(ctx, "maria", submission(img.ID, img.Key)); err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
		}
		dangling := &domain.AnnotationEdit{
			Username: "maria", ImageKey: imgs[2].Key,
			Status: domain.EditPending, UpdatedAt: time.Now().UTC(),
		}
		if err := store.Edits().Upsert(ctx, dangling); err != nil {
			t.Fatalf("failed to seed dangling edit: %v", err)
		}

		if err := m.Abandon(ctx, "maria"); err != nil {
			t.Fatalf("Abandon() error = %v", err)
		}

		if active, _ := store.Sessions().FindActive(ctx, "maria"); active != nil {
			t.Error("session still active after abandon")
		}
		for _, img := range imgs[:2] {
			edit, _ := store.Edits().Get(ctx, "maria", img.Key)
			if edit == nil || edit.Status != domain.EditCompleted {
				t.Errorf("finished edit for %s = %+v, want completed", img.ID, edit)
			}
		}
		if edit, _ := store.Edits().Get(ctx, "maria", imgs[2].Key); edit != nil {
			t.Errorf("dangling pending edit survived abandon: %+v", edit)
		}
		c, _ := store.Contributors().Get(ctx, "maria")
		if len(c.Activities) != 1 || c.Activities[0].Tag != "Session Abandoned" {
			t.Errorf("activities = %+v, want one partial-completion entry", c.Activities)
		}
	})

	t.Run("nothing finished logs no activity", func(t *testing.T) {
		m, store := setupManager(t)
		seedWorld(t, store, 3)
		if _, err := m.StartOrResume(ctx, "maria", 3); err != nil {
			t.Fatalf("StartOrResume() error = %v", err)
		}
		if err := m.Abandon(ctx, "maria"); err != nil {
			t.Fatalf("Abandon() error = %v", err)
		}
		c, _ := store.Contributors().Get(ctx, "maria")
		if len(c.Activities) != 0 {
			t.Errorf("activities = %+v, want none", c.Activities)
		}
	})

	t.Run("without an active session is NotFound", func(t *testing.T) {
		m, store := setupManager(t)
		seedWorld(t, store, 3)
		err := m.Abandon(ctx, "maria")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("Abandon() error = %v, want ErrNotFound", err)
		}
	})
}
