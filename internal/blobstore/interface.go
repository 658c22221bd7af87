package blobstore

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotFound is returned when a key has no backing bytes.
	ErrNotFound = errors.New("blob not found")
	// ErrRangeUnsatisfiable is returned when a read falls outside [0, length).
	ErrRangeUnsatisfiable = errors.New("blob range not satisfiable")
	// ErrIO wraps any underlying storage failure.
	ErrIO = errors.New("blob storage failure")
	// ErrInvalidKey is returned for keys that fail validation.
	ErrInvalidKey = errors.New("invalid blob key")
)

// BlobStore persists and serves raw media bytes by storage key.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Length(ctx context.Context, key string) (int64, error)
	ReadRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Lister enumerates stored keys.
type Lister interface {
	Keys(ctx context.Context) ([]string, error)
}
