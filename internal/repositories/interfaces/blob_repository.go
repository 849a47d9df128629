package interfaces

import (
	"context"
)

// BlobRepository is the key-value persistence port. Values are JSON documents
// stored verbatim.
type BlobRepository interface {
	// Get returns the stored value and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
}
