// Package postgres provides a PostgreSQL-backed implementation of the blob
// store contract. The whole task collection lives in a single row of the
// task_blobs table, keyed by the configured storage key.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/phrazzld/taskstore/internal/store"

	// Register the pgx stdlib driver for database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// BlobStore implements store.BlobStore using a PostgreSQL database.
type BlobStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewBlobStore creates a PostgreSQL implementation of the blob store contract.
// It accepts a database connection that should be initialized and managed by
// the caller (see NewDB). If logger is nil, a default logger will be used.
func NewBlobStore(db *sql.DB, logger *slog.Logger) *BlobStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &BlobStore{
		db:     db,
		logger: logger.With(slog.String("component", "postgres_blob_store")),
	}
}

// Ensure BlobStore implements the store.BlobStore interface
var _ store.BlobStore = (*BlobStore)(nil)

// EnsureSchema creates the task_blobs table if it does not exist. Schema
// versioning is out of scope, so a single idempotent statement replaces a
// migration tool here.
func (s *BlobStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS task_blobs (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		s.logger.Error("failed to ensure blob schema",
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Get implements store.BlobStore.Get.
func (s *BlobStore) Get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM task_blobs WHERE key = $1`

	var value string
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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
func (s *BlobStore) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO task_blobs (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		s.logger.Error("failed to write blob",
			slog.String("error", err.Error()),
			slog.String("key", key))
		return err
	}
	return nil
}
