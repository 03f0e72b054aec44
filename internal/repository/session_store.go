package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/imprint-ph/imprint-annotator/internal/domain"
)

type sessionStore struct {
	q dbtx
}

func (s *sessionStore) FindActive(ctx context.Context, username string) (*domain.Session, error) {
	row := s.q.QueryRowContext(ctx, `
select id, username, image_ids, total_count, completed_image_ids, current_index,
       status, created_at, completed_at, abandoned_at
from sessions where username = ? and status = ?`, username, domain.SessionActive)
	return scanSession(row)
}

func (s *sessionStore) Create(ctx context.Context, sess *domain.Session) error {
	imageIDs, err := marshalJSON(sess.ImageIDs)
	if err != nil {
		return fmt.Errorf("while encoding image ids: %w", err)
	}
	completed, err := marshalJSON(sess.CompletedImageIDs)
	if err != nil {
		return fmt.Errorf("while encoding completed image ids: %w", err)
	}
	_, err = s.q.ExecContext(ctx, `
insert into sessions (id, username, image_ids, total_count, completed_image_ids,
                      current_index, status, created_at)
values (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Username, imageIDs, sess.TotalCount, completed,
		sess.CurrentIndex, sess.Status, sess.CreatedAt)
	if isUniqueViolation(err) {
		// The partial unique index on (username, status=active) fired: a
		// concurrent request created the session first.
		return fmt.Errorf("creating session for %s: %w", sess.Username, domain.ErrConflict)
	}
	return domain.WrapStorage("creating session", err)
}

func (s *sessionStore) SetCurrentIndex(ctx context.Context, username string, index int) error {
	_, err := s.q.ExecContext(ctx, `
update sessions set current_index = ? where username = ? and status = ?`,
		index, username, domain.SessionActive)
	return domain.WrapStorage("updating progress", err)
}

func (s *sessionStore) AddCompletedImage(ctx context.Context, username, imageID string) error {
	sess, err := s.FindActive(ctx, username)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	if sess.HasCompleted(imageID) {
		return nil
	}
	completed, err := marshalJSON(append(sess.CompletedImageIDs, imageID))
	if err != nil {
		return fmt.Errorf("while encoding completed image ids: %w", err)
	}
	_, err = s.q.ExecContext(ctx,
		`update sessions set completed_image_ids = ? where id = ?`, completed, sess.ID)
	return domain.WrapStorage("recording completed image", err)
}

func (s *sessionStore) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	_, err := s.q.ExecContext(ctx, `
update sessions set status = ?, completed_at = ? where id = ?`,
		domain.SessionCompleted, at, id)
	return domain.WrapStorage("completing session", err)
}

func (s *sessionStore) MarkAbandoned(ctx context.Context, id string, at time.Time) error {
	_, err := s.q.ExecContext(ctx, `
update sessions set status = ?, abandoned_at = ? where id = ?`,
		domain.SessionAbandoned, at, id)
	return domain.WrapStorage("abandoning session", err)
}

func scanSession(row *sql.Row) (*domain.Session, error) {
	var sess domain.Session
	var imageIDs, completed string
	err := row.Scan(&sess.ID, &sess.Username, &imageIDs, &sess.TotalCount, &completed,
		&sess.CurrentIndex, &sess.Status, &sess.CreatedAt, &sess.CompletedAt, &sess.AbandonedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.WrapStorage("loading session", err)
	}
	if err := json.Unmarshal([]byte(imageIDs), &sess.ImageIDs); err != nil {
		return nil, fmt.Errorf("while decoding image ids of session %s: %w", sess.ID, err)
	}
	if err := json.Unmarshal([]byte(completed), &sess.CompletedImageIDs); err != nil {
		return nil, fmt.Errorf("while decoding completed ids of session %s: %w", sess.ID, err)
	}
	return &sess, nil
}

var _ domain.SessionStore = (*sessionStore)(nil)
