package objectstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"vipclub/internal/repositories/interfaces"
	"vipclub/pkg/storage"
)

type blobRepository struct {
	store  storage.ObjectStore
	prefix string
}

// NewBlobRepository keeps each blob as one JSON object named <prefix>/<key>.json.
// Colons in keys become path separators, so user_coupons:u1 lands at user_coupons/u1.json.
func NewBlobRepository(store storage.ObjectStore, prefix string) interfaces.BlobRepository {
	return &blobRepository{
		store:  store,
		prefix: strings.Trim(prefix, "/"),
	}
}

func (r *blobRepository) Get(ctx context.Context, key string) (string, bool, error) {
	data, err := r.store.Get(ctx, r.objectKey(key))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get blob %s: %w", key, err)
	}
	return string(data), true, nil
}

func (r *blobRepository) Set(ctx context.Context, key string, value string) error {
	err := r.store.Put(ctx, &storage.PutRequest{
		Key:          r.objectKey(key),
		Data:         []byte(value),
		ContentType:  storage.ContentTypeJSON,
		CacheControl: "no-store",
	})
	if err != nil {
		return fmt.Errorf("failed to set blob %s: %w", key, err)
	}
	return nil
}

func (r *blobRepository) objectKey(key string) string {
	name := strings.ReplaceAll(key, ":", "/") + ".json"
	if r.prefix == "" {
		return name
	}
	return path.Join(r.prefix, name)
}
