package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/imprint-ph/imprint-annotator/internal/domain"
)

type contributorStore struct {
	db *mongo.Database
}

type contributorDoc struct {
	Username               string            `bson:"username"`
	Email                  string            `bson:"email,omitempty"`
	City                   string            `bson:"city,omitempty"`
	FrequentlyWalkedCities []string          `bson:"frequentlyWalkedCities,omitempty"`
	Activities             []domain.Activity `bson:"activities,omitempty"`
	CreatedAt              time.Time         `bson:"createdAt"`
}

func (d *contributorDoc) toDomain() *domain.Contributor {
	return &domain.Contributor{
		Username:               d.Username,
		Email:                  d.Email,
		City:                   d.City,
		FrequentlyWalkedCities: d.FrequentlyWalkedCities,
		Activities:             d.Activities,
		CreatedAt:              d.CreatedAt,
	}
}

func (r *contributorStore) Get(ctx context.Context, username string) (*domain.Contributor, error) {
	var doc contributorDoc
	err := r.db.Collection(collContributors).FindOne(ctx, bson.D{{Key: "username", Value: username}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.WrapStorage("contributor get", err)
	}
	return doc.toDomain(), nil
}

// Put creates or refreshes the profile. The activity log is only seeded on
// insert so a profile refresh cannot wipe history.
func (r *contributorStore) Put(ctx context.Context, c *domain.Contributor) error {
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "email", Value: c.Email},
			{Key: "city", Value: c.City},
			{Key: "frequentlyWalkedCities", Value: c.FrequentlyWalkedCities},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "username", Value: c.Username},
			{Key: "activities", Value: c.Activities},
			{Key: "createdAt", Value: c.CreatedAt},
		}},
	}
	_, err := r.db.Collection(collContributors).UpdateOne(ctx,
		bson.D{{Key: "username", Value: c.Username}}, update, options.Update().SetUpsert(true))
	return domain.WrapStorage("contributor put", err)
}

func (r *contributorStore) AppendActivity(ctx context.Context, username string, a domain.Activity) error {
	res, err := r.db.Collection(collContributors).UpdateOne(ctx,
		bson.D{{Key: "username", Value: username}},
		bson.D{{Key: "$push", Value: bson.D{{Key: "activities", Value: a}}}})
	if err != nil {
		return domain.WrapStorage("contributor append activity", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("appending activity for %s: %w", username, domain.ErrNotFound)
	}
	return nil
}
