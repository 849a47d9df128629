package memory

import (
	"context"
	"sync"

	"vipclub/internal/repositories/interfaces"
)

type blobRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewBlobRepository() interfaces.BlobRepository {
	return &blobRepository{
		values: make(map[string]string),
	}
}

func (r *blobRepository) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	value, ok := r.values[key]
	return value, ok, nil
}

func (r *blobRepository) Set(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.values[key] = value
	return nil
}
