// Package memory provides an in-memory implementation of the blob store
// contract with an optional per-value quota, mirroring the capacity
// behavior of browser local storage.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/phrazzld/taskstore/internal/store"
)

// BlobStore is a map-backed store.BlobStore. It is safe for concurrent use.
type BlobStore struct {
	mu sync.RWMutex
	// quotaBytes caps the byte length of a single value; zero means unlimited.
	quotaBytes int
	data       map[string]string
}

// NewBlobStore creates an empty in-memory blob store.
// quotaBytes limits the size of a single stored value; pass 0 for no limit.
func NewBlobStore(quotaBytes int) *BlobStore {
	if quotaBytes < 0 {
		quotaBytes = 0
	}
	return &BlobStore{
		quotaBytes: quotaBytes,
		data:       make(map[string]string),
	}
}

// Ensure BlobStore implements the store.BlobStore interface
var _ store.BlobStore = (*BlobStore)(nil)

// Get implements store.BlobStore.Get.
func (s *BlobStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return "", store.ErrBlobNotFound
	}
	return value, nil
}

// Set implements store.BlobStore.Set.
// Returns store.ErrQuotaExceeded when the value exceeds the configured quota.
func (s *BlobStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.quotaBytes > 0 && len(value) > s.quotaBytes {
		return fmt.Errorf("%w: value of %d bytes exceeds quota of %d bytes",
			store.ErrQuotaExceeded, len(value), s.quotaBytes)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return nil
}
