package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the object does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectStore holds small documents addressed by key.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, request *PutRequest) error
}

type PutRequest struct {
	Key          string
	Data         []byte
	ContentType  string
	CacheControl string
	Metadata     map[string]string
}

const ContentTypeJSON = "application/json"
