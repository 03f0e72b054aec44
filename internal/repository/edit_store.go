package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/imprint-ph/imprint-annotator/internal/domain"
)

type editStore struct {
	q dbtx
}

const editColumns = `username, image_key, edited_boxes, new_boxes,
       accessibility_rating, pavement_type, status, updated_at`

func (s *editStore) Get(ctx context.Context, username string, imageKey int64) (*domain.AnnotationEdit, error) {
	rows, err := s.q.QueryContext(ctx, `
select `+editColumns+` from annotation_edits where username = ? and image_key = ?`,
		username, imageKey)
	if err != nil {
		return nil, domain.WrapStorage("loading edit", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanEdit(rows)
}

func (s *editStore) GetForImages(ctx context.Context, username string, imageKeys []int64) (map[int64]*domain.AnnotationEdit, error) {
	result := make(map[int64]*domain.AnnotationEdit)
	if len(imageKeys) == 0 {
		return result, nil
	}
	args := make([]interface{}, 0, len(imageKeys)+1)
	args = append(args, username)
	for _, key := range imageKeys {
		args = append(args, key)
	}
	rows, err := s.q.QueryContext(ctx, fmt.Sprintf(`
select `+editColumns+` from annotation_edits
where username = ? and image_key in (%s)`, placeholders(len(imageKeys))), args...)
	if err != nil {
		return nil, domain.WrapStorage("loading edits", err)
	}
	defer rows.Close()
	for rows.Next() {
		edit, err := scanEdit(rows)
		if err != nil {
			return nil, err
		}
		result[edit.ImageKey] = edit
	}
	return result, domain.WrapStorage("loading edits", rows.Err())
}

func (s *editStore) Upsert(ctx context.Context, e *domain.AnnotationEdit) error {
	edited, err := marshalJSON(e.EditedBoxes)
	if err != nil {
		return fmt.Errorf("while encoding edited boxes: %w", err)
	}
	fresh, err := marshalJSON(e.NewBoxes)
	if err != nil {
		return fmt.Errorf("while encoding new boxes: %w", err)
	}
	_, err = s.q.ExecContext(ctx, `
insert into annotation_edits (username, image_key, edited_boxes, new_boxes,
                              accessibility_rating, pavement_type, status, updated_at)
values (?, ?, ?, ?, ?, ?, ?, ?)
on conflict(username, image_key) do update set
  edited_boxes = excluded.edited_boxes,
  new_boxes = excluded.new_boxes,
  accessibility_rating = excluded.accessibility_rating,
  pavement_type = excluded.pavement_type,
  status = excluded.status,
  updated_at = excluded.updated_at`,
		e.Username, e.ImageKey, edited, fresh,
		e.AccessibilityRating, e.PavementType, e.Status, e.UpdatedAt)
	return domain.WrapStorage("saving edit", err)
}

func (s *editStore) CompletePending(ctx context.Context, username string) (int64, error) {
	result, err := s.q.ExecContext(ctx, `
update annotation_edits set status = ? where username = ? and status = ?`,
		domain.EditCompleted, username, domain.EditPending)
	return affected(result, err, "completing edits")
}

func (s *editStore) CompletePendingForImages(ctx context.Context, username string, imageKeys []int64) (int64, error) {
	if len(imageKeys) == 0 {
		return 0, nil
	}
	args := []interface{}{domain.EditCompleted, username, domain.EditPending}
	for _, key := range imageKeys {
		args = append(args, key)
	}
	result, err := s.q.ExecContext(ctx, fmt.Sprintf(`
update annotation_edits set status = ?
where username = ? and status = ? and image_key in (%s)`, placeholders(len(imageKeys))), args...)
	return affected(result, err, "completing edits")
}

func (s *editStore) DeletePending(ctx context.Context, username string) (int64, error) {
	result, err := s.q.ExecContext(ctx, `
delete from annotation_edits where username = ? and status = ?`,
		username, domain.EditPending)
	return affected(result, err, "deleting pending edits")
}

func affected(result sql.Result, err error, op string) (int64, error) {
	if err != nil {
		return 0, domain.WrapStorage(op, err)
	}
	n, err := result.RowsAffected()
	return n, domain.WrapStorage(op, err)
}

func scanEdit(row rowScanner) (*domain.AnnotationEdit, error) {
	var e domain.AnnotationEdit
	var edited, fresh string
	err := row.Scan(&e.Username, &e.ImageKey, &edited, &fresh,
		&e.AccessibilityRating, &e.PavementType, &e.Status, &e.UpdatedAt)
	if err != nil {
		return nil, domain.WrapStorage("scanning edit", err)
	}
	if err := json.Unmarshal([]byte(edited), &e.EditedBoxes); err != nil {
		return nil, fmt.Errorf("while decoding edited boxes: %w", err)
	}
	if err := json.Unmarshal([]byte(fresh), &e.NewBoxes); err != nil {
		return nil, fmt.Errorf("while decoding new boxes: %w", err)
	}
	return &e, nil
}

var _ domain.EditStore = (*editStore)(nil)
