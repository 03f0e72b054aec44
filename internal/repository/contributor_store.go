package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/imprint-ph/imprint-annotator/internal/domain"
)

type contributorStore struct {
	q dbtx
}

func (s *contributorStore) Get(ctx context.Context, username string) (*domain.Contributor, error) {
	row := s.q.QueryRowContext(ctx, `
select username, email, city, frequently_walked_cities, activities, created_at
from contributors where username = ?`, username)

	var c domain.Contributor
	var cities, activities string
	err := row.Scan(&c.Username, &c.Email, &c.City, &cities, &activities, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.WrapStorage("loading contributor", err)
	}
	if err := json.Unmarshal([]byte(cities), &c.FrequentlyWalkedCities); err != nil {
		return nil, fmt.Errorf("while decoding cities for %s: %w", username, err)
	}
	if err := json.Unmarshal([]byte(activities), &c.Activities); err != nil {
		return nil, fmt.Errorf("while decoding activities for %s: %w", username, err)
	}
	return &c, nil
}

func (s *contributorStore) Put(ctx context.Context, c *domain.Contributor) error {
	cities, err := marshalJSON(c.FrequentlyWalkedCities)
	if err != nil {
		return fmt.Errorf("while encoding cities: %w", err)
	}
	activities, err := marshalJSON(c.Activities)
	if err != nil {
		return fmt.Errorf("while encoding activities: %w", err)
	}
	_, err = s.q.ExecContext(ctx, `
insert into contributors (username, email, city, frequently_walked_cities, activities, created_at)
values (?, ?, ?, ?, ?, ?)
on conflict(username) do update set
  email = excluded.email,
  city = excluded.city,
  frequently_walked_cities = excluded.frequently_walked_cities`,
		c.Username, c.Email, c.City, cities, activities, c.CreatedAt)
	return domain.WrapStorage("saving contributor", err)
}

func (s *contributorStore) AppendActivity(ctx context.Context, username string, a domain.Activity) error {
	existing, err := s.Get(ctx, username)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("appending activity for %s: %w", username, domain.ErrNotFound)
	}
	activities, err := marshalJSON(append(existing.Activities, a))
	if err != nil {
		return fmt.Errorf("while encoding activities: %w", err)
	}
	_, err = s.q.ExecContext(ctx,
		`update contributors set activities = ? where username = ?`, activities, username)
	return domain.WrapStorage("appending activity", err)
}

var _ domain.ContributorStore = (*contributorStore)(nil)
