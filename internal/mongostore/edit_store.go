package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/imprint-ph/imprint-annotator/internal/domain"
)

type editStore struct {
	db *mongo.Database
}

type editDoc struct {
	Username            string       `bson:"username"`
	ImageKey            int64        `bson:"imageKey"`
	EditedBoxes         []domain.Box `bson:"editedBoxes,omitempty"`
	NewBoxes            []domain.Box `bson:"newBoxes,omitempty"`
	AccessibilityRating *int         `bson:"accessibilityRating,omitempty"`
	PavementType        string       `bson:"pavementType,omitempty"`
	Status              string       `bson:"status"`
	UpdatedAt           time.Time    `bson:"updatedAt"`
}

func toEditDoc(e *domain.AnnotationEdit) *editDoc {
	return &editDoc{
		Username:            e.Username,
		ImageKey:            e.ImageKey,
		EditedBoxes:         e.EditedBoxes,
		NewBoxes:            e.NewBoxes,
		AccessibilityRating: e.AccessibilityRating,
		PavementType:        e.PavementType,
		Status:              string(e.Status),
		UpdatedAt:           e.UpdatedAt,
	}
}

func (d *editDoc) toDomain() *domain.AnnotationEdit {
	return &domain.AnnotationEdit{
		Username:            d.Username,
		ImageKey:            d.ImageKey,
		EditedBoxes:         d.EditedBoxes,
		NewBoxes:            d.NewBoxes,
		AccessibilityRating: d.AccessibilityRating,
		PavementType:        d.PavementType,
		Status:              domain.EditStatus(d.Status),
		UpdatedAt:           d.UpdatedAt,
	}
}

func editKey(username string, imageKey int64) bson.D {
	return bson.D{
		{Key: "username", Value: username},
		{Key: "imageKey", Value: imageKey},
	}
}

func pendingFilter(username string) bson.D {
	return bson.D{
		{Key: "username", Value: username},
		{Key: "status", Value: string(domain.EditPending)},
	}
}

func (r *editStore) Get(ctx context.Context, username string, imageKey int64) (*domain.AnnotationEdit, error) {
	var doc editDoc
	err := r.db.Collection(collEdits).FindOne(ctx, editKey(username, imageKey)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.WrapStorage("annotation get", err)
	}
	return doc.toDomain(), nil
}

func (r *editStore) GetForImages(ctx context.Context, username string, imageKeys []int64) (map[int64]*domain.AnnotationEdit, error) {
	result := make(map[int64]*domain.AnnotationEdit, len(imageKeys))
	if len(imageKeys) == 0 {
		return result, nil
	}
	cur, err := r.db.Collection(collEdits).Find(ctx, bson.D{
		{Key: "username", Value: username},
		{Key: "imageKey", Value: bson.D{{Key: "$in", Value: imageKeys}}},
	})
	if err != nil {
		return nil, domain.WrapStorage("annotation get for images", err)
	}
	var docs []editDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.WrapStorage("annotation get for images", err)
	}
	for i := range docs {
		result[docs[i].ImageKey] = docs[i].toDomain()
	}
	return result, nil
}

func (r *editStore) Upsert(ctx context.Context, e *domain.AnnotationEdit) error {
	_, err := r.db.Collection(collEdits).ReplaceOne(ctx,
		editKey(e.Username, e.ImageKey), toEditDoc(e), options.Replace().SetUpsert(true))
	return domain.WrapStorage("annotation upsert", err)
}

func (r *editStore) CompletePending(ctx context.Context, username string) (int64, error) {
	return r.complete(ctx, pendingFilter(username))
}

func (r *editStore) CompletePendingForImages(ctx context.Context, username string, imageKeys []int64) (int64, error) {
	if len(imageKeys) == 0 {
		return 0, nil
	}
	filter := append(pendingFilter(username),
		bson.E{Key: "imageKey", Value: bson.D{{Key: "$in", Value: imageKeys}}})
	return r.complete(ctx, filter)
}

func (r *editStore) complete(ctx context.Context, filter bson.D) (int64, error) {
	res, err := r.db.Collection(collEdits).UpdateMany(ctx, filter,
		bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: string(domain.EditCompleted)}}}})
	if err != nil {
		return 0, domain.WrapStorage("annotation complete pending", err)
	}
	return res.ModifiedCount, nil
}

func (r *editStore) DeletePending(ctx context.Context, username string) (int64, error) {
	res, err := r.db.Collection(collEdits).DeleteMany(ctx, pendingFilter(username))
	if err != nil {
		return 0, domain.WrapStorage("annotation delete pending", err)
	}
	return res.DeletedCount, nil
}
