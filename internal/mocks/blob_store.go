// Package mocks provides scripted test doubles shared across package tests.
package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/taskstore/internal/store"
)

// BlobStore is a scripted in-memory store.BlobStore for tests. It counts
// writes and can be told to fail deterministically, which is how the
// snapshot/revert properties of the repository are exercised.
type BlobStore struct {
	mu sync.Mutex

	data map[string]string

	// SetErr, when non-nil, is returned by every Set call.
	SetErr error
	// GetErr, when non-nil, is returned by every Get call.
	GetErr error

	setCalls int
	getCalls int
}

// NewBlobStore creates an empty scripted blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{data: make(map[string]string)}
}

// Ensure BlobStore implements the store.BlobStore interface
var _ store.BlobStore = (*BlobStore)(nil)

// Get implements store.BlobStore.Get.
func (s *BlobStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getCalls++
	if s.GetErr != nil {
		return "", s.GetErr
	}
	value, ok := s.data[key]
	if !ok {
		return "", store.ErrBlobNotFound
	}
	return value, nil
}

// Set implements store.BlobStore.Set.
func (s *BlobStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setCalls++
	if s.SetErr != nil {
		return s.SetErr
	}
	s.data[key] = value
	return nil
}

// FailWrites makes every subsequent Set call return err.
func (s *BlobStore) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SetErr = err
}

// AllowWrites clears a previously scripted write failure.
func (s *BlobStore) AllowWrites() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SetErr = nil
}

// SetCalls reports how many times Set was invoked, including failed calls.
func (s *BlobStore) SetCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setCalls
}

// Value returns the currently stored value for key.
func (s *BlobStore) Value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.data[key]
	return value, ok
}

// Seed stores a value directly, bypassing the scripted failure.
func (s *BlobStore) Seed(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}
