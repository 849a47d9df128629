package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vipclub/internal/repositories/interfaces"
	"vipclub/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type blobDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type blobRepository struct {
	collection *mongo.Collection
}

func NewBlobRepository(db *mongo.Database) interfaces.BlobRepository {
	return &blobRepository{
		collection: db.Collection(database.BlobCollection),
	}
}

func (r *blobRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var doc blobDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get blob: %w", err)
	}
	return doc.Value, true, nil
}

func (r *blobRepository) Set(ctx context.Context, key string, value string) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{
			"value":      value,
			"updated_at": time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to set blob: %w", err)
	}
	return nil
}
