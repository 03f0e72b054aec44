package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/imprint-ph/imprint-annotator/internal/domain"
)

type imageStore struct {
	q dbtx
}

func (s *imageStore) Put(ctx context.Context, img *domain.ImageRecord) error {
	boxes, err := marshalJSON(img.GroundTruth)
	if err != nil {
		return fmt.Errorf("while encoding ground truth: %w", err)
	}
	_, err = s.q.ExecContext(ctx, `
insert into images (id, image_key, city, url, ground_truth, ingested_at)
values (?, ?, ?, ?, ?, ?)
on conflict(id) do update set
  city = excluded.city,
  url = excluded.url,
  ground_truth = excluded.ground_truth`,
		img.ID, img.Key, img.City, img.URL, boxes, img.IngestedAt)
	return domain.WrapStorage("saving image", err)
}

func (s *imageStore) GetByIDs(ctx context.Context, ids []string) ([]*domain.ImageRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.q.QueryContext(ctx, fmt.Sprintf(`
select id, image_key, city, url, ground_truth, ingested_at
from images where id in (%s)`, placeholders(len(ids))), args...)
	if err != nil {
		return nil, domain.WrapStorage("loading images", err)
	}
	defer rows.Close()

	byID := make(map[string]*domain.ImageRecord, len(ids))
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		byID[img.ID] = img
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapStorage("loading images", err)
	}

	// Batch order is the session's order, not the query's.
	result := make([]*domain.ImageRecord, 0, len(ids))
	for _, id := range ids {
		if img, ok := byID[id]; ok {
			result = append(result, img)
		}
	}
	return result, nil
}

func (s *imageStore) RandomByCities(ctx context.Context, cities []string, limit int) ([]*domain.ImageRecord, error) {
	return s.random(ctx, "in", cities, limit)
}

func (s *imageStore) RandomExcludingCities(ctx context.Context, cities []string, limit int) ([]*domain.ImageRecord, error) {
	return s.random(ctx, "not in", cities, limit)
}

func (s *imageStore) random(ctx context.Context, op string, cities []string, limit int) ([]*domain.ImageRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	args := make([]interface{}, 0, len(cities)+1)
	for _, city := range cities {
		args = append(args, city)
	}
	args = append(args, limit)
	rows, err := s.q.QueryContext(ctx, fmt.Sprintf(`
select id, image_key, city, url, ground_truth, ingested_at
from images where city %s (%s) order by random() limit ?`, op, placeholders(len(cities))), args...)
	if err != nil {
		return nil, domain.WrapStorage("sampling images", err)
	}
	defer rows.Close()

	var result []*domain.ImageRecord
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, img)
	}
	return result, domain.WrapStorage("sampling images", rows.Err())
}

func (s *imageStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.q.QueryRowContext(ctx, `select count(*) from images`).Scan(&count)
	return count, domain.WrapStorage("counting images", err)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanImage(row rowScanner) (*domain.ImageRecord, error) {
	var img domain.ImageRecord
	var boxes string
	if err := row.Scan(&img.ID, &img.Key, &img.City, &img.URL, &boxes, &img.IngestedAt); err != nil {
		return nil, domain.WrapStorage("scanning image", err)
	}
	if err := json.Unmarshal([]byte(boxes), &img.GroundTruth); err != nil {
		return nil, fmt.Errorf("while decoding ground truth of image %s: %w", img.ID, err)
	}
	return &img, nil
}

var _ domain.ImageStore = (*imageStore)(nil)
