// Package mongostore implements the document store on MongoDB. Collection
// names match the deployment this service writes alongside: users, Image,
// sessions and annotations.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/imprint-ph/imprint-annotator/internal/domain"
)

const (
	collContributors = "users"
	collImages       = "Image"
	collSessions     = "sessions"
	collEdits        = "annotations"
)

// Store implements domain.Store on a mongo database handle.
type Store struct {
	db *mongo.Database
}

var _ domain.Store = (*Store)(nil)

// Connect dials the deployment, verifies it is reachable and prepares the
// indexes the store relies on.
func Connect(ctx context.Context, uri, database string) (*Store, *mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("while connecting to mongodb: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, nil, fmt.Errorf("while pinging mongodb: %w", err)
	}

	s := NewStore(client.Database(database))
	if err := s.EnsureIndexes(ctx); err != nil {
		return nil, nil, err
	}
	return s, client, nil
}

func NewStore(db *mongo.Database) *Store {
	return &Store{db: db}
}

// EnsureIndexes creates the indexes the store's guarantees depend on. The
// partial index on sessions is what makes active-session uniqueness atomic
// with the insert; terminal sessions stay out of it and never block a new one.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(collSessions).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "username", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.D{{Key: "status", Value: string(domain.SessionActive)}}),
	})
	if err != nil {
		return fmt.Errorf("while creating session index: %w", err)
	}
	_, err = s.db.Collection(collImages).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "imageKey", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("while creating image index: %w", err)
	}
	_, err = s.db.Collection(collEdits).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}, {Key: "imageKey", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("while creating annotation index: %w", err)
	}
	return nil
}

func (s *Store) Contributors() domain.ContributorStore { return &contributorStore{s.db} }
func (s *Store) Images() domain.ImageStore             { return &imageStore{s.db} }
func (s *Store) Sessions() domain.SessionStore         { return &sessionStore{s.db} }
func (s *Store) Edits() domain.EditStore               { return &editStore{s.db} }

// Atomically runs fn against the same store. Standalone deployments have no
// multi-document transactions, so the write sequences routed through here are
// kept individually idempotent and safe to re-run after a partial failure.
func (s *Store) Atomically(ctx context.Context, fn func(domain.Store) error) error {
	return fn(s)
}
