package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/imprint-ph/imprint-annotator/internal/domain"
)

type imageStore struct {
	db *mongo.Database
}

type imageDoc struct {
	ID          string       `bson:"_id"`
	Key         int64        `bson:"imageKey"`
	City        string       `bson:"city"`
	URL         string       `bson:"url"`
	GroundTruth []domain.Box `bson:"groundTruth"`
	IngestedAt  time.Time    `bson:"ingestedAt"`
}

func toImageDoc(img *domain.ImageRecord) *imageDoc {
	return &imageDoc{
		ID:          img.ID,
		Key:         img.Key,
		City:        img.City,
		URL:         img.URL,
		GroundTruth: img.GroundTruth,
		IngestedAt:  img.IngestedAt,
	}
}

func (d *imageDoc) toDomain() *domain.ImageRecord {
	return &domain.ImageRecord{
		ID:          d.ID,
		Key:         d.Key,
		City:        d.City,
		URL:         d.URL,
		GroundTruth: d.GroundTruth,
		IngestedAt:  d.IngestedAt,
	}
}

func (r *imageStore) Put(ctx context.Context, img *domain.ImageRecord) error {
	_, err := r.db.Collection(collImages).ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: img.ID}}, toImageDoc(img), options.Replace().SetUpsert(true))
	return domain.WrapStorage("image put", err)
}

func (r *imageStore) GetByIDs(ctx context.Context, ids []string) ([]*domain.ImageRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := r.db.Collection(collImages).Find(ctx,
		bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return nil, domain.WrapStorage("image get by ids", err)
	}
	var docs []imageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.WrapStorage("image get by ids", err)
	}

	byID := make(map[string]*domain.ImageRecord, len(docs))
	for i := range docs {
		byID[docs[i].ID] = docs[i].toDomain()
	}
	result := make([]*domain.ImageRecord, 0, len(ids))
	for _, id := range ids {
		if img, ok := byID[id]; ok {
			result = append(result, img)
		}
	}
	return result, nil
}

func (r *imageStore) RandomByCities(ctx context.Context, cities []string, limit int) ([]*domain.ImageRecord, error) {
	return r.random(ctx, "$in", cities, limit)
}

func (r *imageStore) RandomExcludingCities(ctx context.Context, cities []string, limit int) ([]*domain.ImageRecord, error) {
	return r.random(ctx, "$nin", cities, limit)
}

func (r *imageStore) random(ctx context.Context, op string, cities []string, limit int) ([]*domain.ImageRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "city", Value: bson.D{{Key: op, Value: cities}}}}}},
		{{Key: "$sample", Value: bson.D{{Key: "size", Value: limit}}}},
	}
	cur, err := r.db.Collection(collImages).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, domain.WrapStorage("image random sample", err)
	}
	var docs []imageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.WrapStorage("image random sample", err)
	}
	result := make([]*domain.ImageRecord, len(docs))
	for i := range docs {
		result[i] = docs[i].toDomain()
	}
	return result, nil
}

func (r *imageStore) Count(ctx context.Context) (int64, error) {
	n, err := r.db.Collection(collImages).CountDocuments(ctx, bson.D{})
	return n, domain.WrapStorage("image count", err)
}
