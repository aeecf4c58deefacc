// Package taskstore is the public entry point of the task list library. It
// wires a storage backend, the repository, and the task service together so
// presentation layers depend on one package instead of the internal wiring.
package taskstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/taskstore/internal/config"
	"github.com/phrazzld/taskstore/internal/domain"
	"github.com/phrazzld/taskstore/internal/events"
	"github.com/phrazzld/taskstore/internal/platform/blobstore"
	"github.com/phrazzld/taskstore/internal/platform/logger"
	"github.com/phrazzld/taskstore/internal/platform/memory"
	"github.com/phrazzld/taskstore/internal/platform/postgres"
	"github.com/phrazzld/taskstore/internal/platform/redisblob"
	"github.com/phrazzld/taskstore/internal/service"
	"github.com/phrazzld/taskstore/internal/store"
)

// Task is a single to-do item.
type Task = domain.Task

// Service exposes the task operations of an open store.
type Service = service.TaskService

// TaskUpdates carries the optional field updates applied by UpdateTask.
type TaskUpdates = service.TaskUpdates

// ReorderItem assigns a new manual sort position to an existing task.
type ReorderItem = service.ReorderItem

// Statistics summarizes the collection with an integer completion rate.
type Statistics = service.Statistics

// Stats is the repository-level view with a string-formatted completion rate.
type Stats = store.Stats

// Event describes one completed change to the task collection.
type Event = events.Event

// EventType identifies the kind of change an Event describes.
type EventType = events.EventType

// Change event types delivered to Subscribe handlers.
const (
	EventTaskCreated        = events.TaskCreated
	EventTaskUpdated        = events.TaskUpdated
	EventTaskDeleted        = events.TaskDeleted
	EventTasksReordered     = events.TasksReordered
	EventTasksCleared       = events.TasksCleared
	EventCollectionImported = events.CollectionImported
)

// Filter and sort strategy names accepted by GetTasks and GetTasksSorted.
const (
	FilterAll       = service.FilterAll
	FilterCompleted = service.FilterCompleted
	FilterPending   = service.FilterPending

	SortByTitle     = service.SortByTitle
	SortByCreatedAt = service.SortByCreatedAt
	SortByOrder     = service.SortByOrder
)

// Storage backend names accepted by Options.Backend.
const (
	BackendMemory   = config.BackendMemory
	BackendRedis    = config.BackendRedis
	BackendPostgres = config.BackendPostgres
)

// Sentinel errors surfaced by the library. Inspect them with errors.Is.
var (
	ErrValidation      = domain.ErrValidation
	ErrNotFound        = store.ErrNotFound
	ErrTaskNotFound    = store.ErrTaskNotFound
	ErrInvalidArgument = store.ErrInvalidArgument
	ErrPersistence     = store.ErrPersistence
	ErrQuotaExceeded   = store.ErrQuotaExceeded
)

// MaxTitleLength is the maximum number of characters allowed in a task title.
const MaxTitleLength = domain.MaxTitleLength

// IsNotFound checks if the error indicates a missing entity.
func IsNotFound(err error) bool { return store.IsNotFoundError(err) }

// IsPersistence checks if the error indicates a storage failure.
func IsPersistence(err error) bool { return store.IsPersistenceError(err) }

// Options configures Open. The zero value opens an in-memory store under the
// default key.
type Options struct {
	// LogLevel is one of debug, info, warn, error. Empty means info.
	LogLevel string

	// Backend selects the storage backend. Empty means BackendMemory.
	Backend string

	// Key is the blob key the collection is persisted under. Empty means "tasks".
	Key string

	// MemoryQuotaBytes caps a single stored value in the memory backend.
	// Zero means unlimited.
	MemoryQuotaBytes int

	// Redis settings, used when Backend is BackendRedis.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// PostgresURL is the connection string, used when Backend is BackendPostgres.
	PostgresURL string
}

// Client is an open task store. It embeds the Service interface and owns the
// backend connection, which Close releases.
type Client struct {
	Service

	emitter *events.InMemoryEmitter
	closer  func() error
}

// Subscribe registers a handler for change events. Handlers run synchronously
// after each successful mutation; a handler error is logged, never surfaced
// to the mutating caller.
func (c *Client) Subscribe(handler func(ctx context.Context, event Event) error) {
	c.emitter.RegisterHandler(events.HandlerFunc(handler))
}

// Close releases the backend connection. It is a no-op for the memory backend.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// Open validates the options, connects the selected backend, loads the
// persisted collection, and returns a ready-to-use client.
func Open(ctx context.Context, opts Options) (*Client, error) {
	cfg := &config.Config{
		Logging: config.LoggingConfig{Level: opts.LogLevel},
		Storage: config.StorageConfig{
			Backend:          opts.Backend,
			Key:              opts.Key,
			MemoryQuotaBytes: opts.MemoryQuotaBytes,
			Redis: config.RedisConfig{
				Addr:     opts.RedisAddr,
				Password: opts.RedisPassword,
				DB:       opts.RedisDB,
			},
			Postgres: config.PostgresConfig{URL: opts.PostgresURL},
		},
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = config.BackendMemory
	}
	if cfg.Storage.Key == "" {
		cfg.Storage.Key = "tasks"
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	return open(ctx, cfg)
}

// OpenFromEnv builds the configuration from TASKSTORE_ environment variables
// and opens the store, e.g. TASKSTORE_STORAGE_BACKEND=redis selects the redis
// backend.
func OpenFromEnv(ctx context.Context) (*Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return open(ctx, cfg)
}

func open(ctx context.Context, cfg *config.Config) (*Client, error) {
	log, err := logger.Setup(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	var (
		blob   store.BlobStore
		closer func() error
	)

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		blob = memory.NewBlobStore(cfg.Storage.MemoryQuotaBytes)

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		blob = redisblob.NewBlobStore(client, log)
		closer = client.Close

	case config.BackendPostgres:
		db, err := postgres.NewDB(ctx, cfg.Storage.Postgres.URL)
		if err != nil {
			return nil, err
		}
		pgStore := postgres.NewBlobStore(db, log)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		blob = pgStore
		closer = db.Close

	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q",
			ErrInvalidArgument, cfg.Storage.Backend)
	}

	repo := blobstore.New(ctx, blob, cfg.Storage.Key, log)
	emitter := events.NewInMemoryEmitter(log)

	svc, err := service.NewTaskServiceWithEvents(repo, emitter, log)
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, err
	}

	return &Client{Service: svc, emitter: emitter, closer: closer}, nil
}
