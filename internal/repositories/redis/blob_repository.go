package redis

import (
	"context"
	"fmt"
	"time"

	"vipclub/internal/repositories/interfaces"
	"vipclub/pkg/cache"
)

type blobRepository struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewBlobRepository stores blobs as plain redis strings. A zero ttl keeps them forever.
func NewBlobRepository(cache *cache.RedisCache, ttl time.Duration) interfaces.BlobRepository {
	return &blobRepository{
		cache: cache,
		ttl:   ttl,
	}
}

func (r *blobRepository) Get(ctx context.Context, key string) (string, bool, error) {
	value, ok, err := r.cache.GetString(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("failed to get blob %s: %w", key, err)
	}
	return value, ok, nil
}

func (r *blobRepository) Set(ctx context.Context, key string, value string) error {
	if err := r.cache.SetString(ctx, key, value, r.ttl); err != nil {
		return fmt.Errorf("failed to set blob %s: %w", key, err)
	}
	return nil
}
