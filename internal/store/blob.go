package store

import (
	"context"
	"errors"
)

// Blob adapter errors shared by all BlobStore implementations.
var (
	// ErrBlobNotFound is returned by Get when no value exists under the key.
	ErrBlobNotFound = errors.New("blob not found")

	// ErrQuotaExceeded is returned by Set when the backend rejects a write
	// because of a capacity or quota limit. The message is deliberately
	// distinct so callers can tell quota rejections from other write failures.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// BlobStore is the durability boundary: a synchronous key to string blob
// store. The repository persists the entire task collection as a single
// value under one key and treats this interface as its only way to reach
// durable storage.
type BlobStore interface {
	// Get retrieves the value stored under key.
	// Returns ErrBlobNotFound if no value exists.
	Get(ctx context.Context, key string) (string, error)

	// Set stores the value under key, replacing any previous value.
	// Returns ErrQuotaExceeded when the backend enforces a capacity limit.
	Set(ctx context.Context, key, value string) error
}
