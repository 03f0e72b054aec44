package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/imprint-ph/imprint-annotator/internal/domain"
)

type sessionStore struct {
	db *mongo.Database
}

type sessionDoc struct {
	ID                string     `bson:"_id"`
	Username          string     `bson:"username"`
	ImageIDs          []string   `bson:"imageIds"`
	TotalCount        int        `bson:"totalCount"`
	CompletedImageIDs []string   `bson:"completedImageIds"`
	CurrentIndex      int        `bson:"currentIndex,omitempty"`
	Status            string     `bson:"status"`
	CreatedAt         time.Time  `bson:"createdAt"`
	CompletedAt       *time.Time `bson:"completedAt,omitempty"`
	AbandonedAt       *time.Time `bson:"abandonedAt,omitempty"`
}

func toSessionDoc(s *domain.Session) *sessionDoc {
	return &sessionDoc{
		ID:                s.ID,
		Username:          s.Username,
		ImageIDs:          s.ImageIDs,
		TotalCount:        s.TotalCount,
		CompletedImageIDs: s.CompletedImageIDs,
		CurrentIndex:      s.CurrentIndex,
		Status:            string(s.Status),
		CreatedAt:         s.CreatedAt,
		CompletedAt:       s.CompletedAt,
		AbandonedAt:       s.AbandonedAt,
	}
}

func (d *sessionDoc) toDomain() *domain.Session {
	return &domain.Session{
		ID:                d.ID,
		Username:          d.Username,
		ImageIDs:          d.ImageIDs,
		TotalCount:        d.TotalCount,
		CompletedImageIDs: d.CompletedImageIDs,
		CurrentIndex:      d.CurrentIndex,
		Status:            domain.SessionStatus(d.Status),
		CreatedAt:         d.CreatedAt,
		CompletedAt:       d.CompletedAt,
		AbandonedAt:       d.AbandonedAt,
	}
}

func activeFilter(username string) bson.D {
	return bson.D{
		{Key: "username", Value: username},
		{Key: "status", Value: string(domain.SessionActive)},
	}
}

func (r *sessionStore) FindActive(ctx context.Context, username string) (*domain.Session, error) {
	var doc sessionDoc
	err := r.db.Collection(collSessions).FindOne(ctx, activeFilter(username)).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, domain.WrapStorage("session find active", err)
	}
	return doc.toDomain(), nil
}

// Create relies on the partial unique index over active sessions: a second
// insert for the same contributor fails with a duplicate key instead of
// racing a separate existence check.
func (r *sessionStore) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.Collection(collSessions).InsertOne(ctx, toSessionDoc(s))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("creating session for %s: %w", s.Username, domain.ErrConflict)
	}
	return domain.WrapStorage("session create", err)
}

func (r *sessionStore) SetCurrentIndex(ctx context.Context, username string, index int) error {
	_, err := r.db.Collection(collSessions).UpdateOne(ctx, activeFilter(username),
		bson.D{{Key: "$set", Value: bson.D{{Key: "currentIndex", Value: index}}}})
	return domain.WrapStorage("session set current index", err)
}

func (r *sessionStore) AddCompletedImage(ctx context.Context, username, imageID string) error {
	_, err := r.db.Collection(collSessions).UpdateOne(ctx, activeFilter(username),
		bson.D{{Key: "$addToSet", Value: bson.D{{Key: "completedImageIds", Value: imageID}}}})
	return domain.WrapStorage("session add completed image", err)
}

func (r *sessionStore) MarkCompleted(ctx context.Context, id string, at time.Time) error {
	return r.finish(ctx, id, string(domain.SessionCompleted), "completedAt", at)
}

func (r *sessionStore) MarkAbandoned(ctx context.Context, id string, at time.Time) error {
	return r.finish(ctx, id, string(domain.SessionAbandoned), "abandonedAt", at)
}

func (r *sessionStore) finish(ctx context.Context, id, status, tsField string, at time.Time) error {
	_, err := r.db.Collection(collSessions).UpdateByID(ctx, id,
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "status", Value: status},
			{Key: tsField, Value: at},
		}}})
	return domain.WrapStorage("session "+status, err)
}
