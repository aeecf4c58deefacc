// Package redisblob provides a Redis-backed implementation of the blob
// store contract using go-redis.
package redisblob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/taskstore/internal/store"
)

// BlobStore implements store.BlobStore on top of a Redis client. Values are
// stored as plain strings with no expiry; the repository owns replacement.
type BlobStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewBlobStore creates a Redis implementation of the blob store contract.
// The client should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewBlobStore(client *redis.Client, logger *slog.Logger) *BlobStore {
	if client == nil {
		panic("client cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &BlobStore{
		client: client,
		logger: logger.With(slog.String("component", "redis_blob_store")),
	}
}

// Ensure BlobStore implements the store.BlobStore interface
var _ store.BlobStore = (*BlobStore)(nil)

// Get implements store.BlobStore.Get.
func (s *BlobStore) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", store.ErrBlobNotFound
		}
		s.logger.Error("failed to read blob",
			slog.String("error", err.Error()),
			slog.String("key", key))
		return "", err
	}
	return value, nil
}

// Set implements store.BlobStore.Set.
// Redis OOM rejections (maxmemory reached) surface as store.ErrQuotaExceeded.
func (s *BlobStore) Set(ctx context.Context, key, value string) error {
	err := s.client.Set(ctx, key, value, 0).Err()
	if err != nil {
		if isOOMError(err) {
			s.logger.Warn("blob write rejected by redis memory limit",
				slog.String("key", key),
				slog.Int("value_bytes", len(value)))
			return fmt.Errorf("%w: %v", store.ErrQuotaExceeded, err)
		}
		s.logger.Error("failed to write blob",
			slog.String("error", err.Error()),
			slog.String("key", key))
		return err
	}
	return nil
}

// isOOMError reports whether the error is a Redis OOM rejection, which Redis
// signals with an "OOM command not allowed" message when maxmemory is reached.
func isOOMError(err error) bool {
	return err != nil && strings.HasPrefix(strings.ToUpper(err.Error()), "OOM")
}
