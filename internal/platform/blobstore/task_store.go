// Package blobstore implements the task repository contract on top of a
// key to string blob store. The whole collection is kept in memory as the
// source of truth and mirrored to a single blob on every successful mutation.
package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/phrazzld/taskstore/internal/domain"
	"github.com/phrazzld/taskstore/internal/platform/logger"
	"github.com/phrazzld/taskstore/internal/store"
)

// TaskStore implements the store.TaskStore interface using a blob store as
// the durability boundary.
//
// Every mutating operation follows snapshot -> mutate -> persist-or-revert:
// the map and insertion-order slice are shallow-copied up front and restored
// wholesale when the blob write fails, so callers never observe a partial
// mutation. Tasks are immutable values, which is what makes the shallow
// snapshot sufficient.
//
// A single coarse mutex serializes all operations; the snapshot/revert
// invariant does not hold under interleaved mutation.
type TaskStore struct {
	mu     sync.Mutex
	blob   store.BlobStore
	key    string
	logger *slog.Logger

	tasks map[string]domain.Task
	order []string // insertion order of task IDs
}

// New creates a TaskStore persisting under the given blob key and loads any
// previously persisted collection. Loading is best-effort: a corrupt
// top-level payload resets the collection to empty and individually
// malformed records are dropped with a warning, so construction never fails
// on bad data. If logger is nil, a default logger will be used.
func New(ctx context.Context, blob store.BlobStore, key string, log *slog.Logger) *TaskStore {
	if blob == nil {
		panic("blob store cannot be nil")
	}
	if key == "" {
		panic("storage key cannot be empty")
	}

	if log == nil {
		log = slog.Default()
	}

	s := &TaskStore{
		blob:   blob,
		key:    key,
		logger: log.With(slog.String("component", "task_store")),
		tasks:  make(map[string]domain.Task),
		order:  nil,
	}
	s.load(ctx)
	return s
}

// Ensure TaskStore implements the store.TaskStore interface
var _ store.TaskStore = (*TaskStore)(nil)

// load hydrates the in-memory collection from the blob store.
func (s *TaskStore) load(ctx context.Context) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	raw, err := s.blob.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, store.ErrBlobNotFound) {
			log.Debug("no persisted collection found, starting empty",
				slog.String("key", s.key))
			return
		}
		log.Warn("failed to read persisted collection, starting empty",
			slog.String("error", err.Error()),
			slog.String("key", s.key))
		return
	}

	var elements []json.RawMessage
	if !strings.HasPrefix(strings.TrimSpace(raw), "[") {
		log.Warn("persisted collection is not an array, resetting to empty",
			slog.String("key", s.key))
		return
	}
	if err := json.Unmarshal([]byte(raw), &elements); err != nil {
		log.Warn("persisted collection is corrupt, resetting to empty",
			slog.String("error", err.Error()),
			slog.String("key", s.key))
		return
	}

	loaded, dropped := 0, 0
	for i, element := range elements {
		task, err := decodeTask(element)
		if err != nil {
			// Lenient load policy: drop the bad record, keep the rest.
			dropped++
			log.Warn("dropping malformed task record during load",
				slog.Int("index", i),
				slog.String("error", err.Error()))
			continue
		}
		s.putLocked(task)
		loaded++
	}

	log.Info("task collection loaded",
		slog.String("key", s.key),
		slog.Int("loaded", loaded),
		slog.Int("dropped", dropped))
}

// decodeTask parses one persisted record and rebuilds the domain task,
// applying construction-time validation.
func decodeTask(data json.RawMessage) (domain.Task, error) {
	var record domain.Task
	if err := json.Unmarshal(data, &record); err != nil {
		return domain.Task{}, err
	}
	return domain.RehydrateTask(record.ID, record.Title, record.Completed, record.CreatedAt, record.Order)
}

// putLocked inserts or replaces a task, keeping its insertion slot on replace.
// Callers must hold the mutex (or be running during construction).
func (s *TaskStore) putLocked(task domain.Task) {
	if _, exists := s.tasks[task.ID]; !exists {
		s.order = append(s.order, task.ID)
	}
	s.tasks[task.ID] = task
}

// snapshotLocked returns shallow copies of the collection map and order
// slice. Tasks are immutable values, so a map-level copy is all the rollback
// mechanism needs.
func (s *TaskStore) snapshotLocked() (map[string]domain.Task, []string) {
	tasks := make(map[string]domain.Task, len(s.tasks))
	for id, task := range s.tasks {
		tasks[id] = task
	}
	order := make([]string, len(s.order))
	copy(order, s.order)
	return tasks, order
}

// restoreLocked replaces the live collection with a previously taken snapshot.
func (s *TaskStore) restoreLocked(tasks map[string]domain.Task, order []string) {
	s.tasks = tasks
	s.order = order
}

// collectionLocked returns the stored tasks in insertion order.
func (s *TaskStore) collectionLocked() []domain.Task {
	out := make([]domain.Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tasks[id])
	}
	return out
}

// persistLocked writes the whole collection to the blob store, replacing the
// previous blob. Failures wrap both store.ErrPersistence and the adapter's
// cause so quota rejections stay inspectable.
func (s *TaskStore) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.collectionLocked())
	if err != nil {
		return fmt.Errorf("%w: failed to encode collection: %w", store.ErrPersistence, err)
	}
	if err := s.blob.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("%w: %w", store.ErrPersistence, err)
	}
	return nil
}

// Save implements store.TaskStore.Save.
func (s *TaskStore) Save(ctx context.Context, task domain.Task) (domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return domain.Task{}, fmt.Errorf("%w: %w", store.ErrInvalidArgument, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prevTasks, prevOrder := s.snapshotLocked()
	s.putLocked(task)

	if err := s.persistLocked(ctx); err != nil {
		s.restoreLocked(prevTasks, prevOrder)
		log.Error("failed to persist task, reverted",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID))
		return domain.Task{}, store.NewStoreError("task", "save", "failed to persist collection", err)
	}

	log.Debug("task saved", slog.String("task_id", task.ID))
	return task, nil
}

// SaveMany implements store.TaskStore.SaveMany.
func (s *TaskStore) SaveMany(ctx context.Context, tasks []domain.Task) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if tasks == nil {
		return 0, fmt.Errorf("%w: tasks must be a slice", store.ErrInvalidArgument)
	}
	// Validate the whole batch before mutating anything.
	for i, task := range tasks {
		if err := task.Validate(); err != nil {
			return 0, fmt.Errorf("%w: task at index %d: %w", store.ErrInvalidArgument, i, err)
		}
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prevTasks, prevOrder := s.snapshotLocked()
	for _, task := range tasks {
		s.putLocked(task)
	}

	if err := s.persistLocked(ctx); err != nil {
		s.restoreLocked(prevTasks, prevOrder)
		log.Error("failed to persist task batch, reverted",
			slog.String("error", err.Error()),
			slog.Int("batch_size", len(tasks)))
		return 0, store.NewStoreError("task", "save_many", "failed to persist collection", err)
	}

	log.Debug("task batch saved", slog.Int("batch_size", len(tasks)))
	return len(tasks), nil
}

// Exists implements store.TaskStore.Exists.
func (s *TaskStore) Exists(_ context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.tasks[id]
	return ok
}

// FindAll implements store.TaskStore.FindAll.
func (s *TaskStore) FindAll(_ context.Context) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.collectionLocked()
}

// FindBy implements store.TaskStore.FindBy.
func (s *TaskStore) FindBy(_ context.Context, predicate store.TaskPredicate) ([]domain.Task, error) {
	if predicate == nil {
		return nil, fmt.Errorf("%w: predicate cannot be nil", store.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Task, 0)
	for _, id := range s.order {
		if task := s.tasks[id]; predicate(task) {
			out = append(out, task)
		}
	}
	return out, nil
}

// FindByID implements store.TaskStore.FindByID.
func (s *TaskStore) FindByID(_ context.Context, id string) (domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	return task, ok
}

// Delete implements store.TaskStore.Delete.
func (s *TaskStore) Delete(ctx context.Context, id string) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return false, nil
	}

	prevTasks, prevOrder := s.snapshotLocked()
	s.removeLocked(id)

	if err := s.persistLocked(ctx); err != nil {
		s.restoreLocked(prevTasks, prevOrder)
		log.Error("failed to persist task deletion, reverted",
			slog.String("error", err.Error()),
			slog.String("task_id", id))
		return false, store.NewStoreError("task", "delete", "failed to persist collection", err)
	}

	log.Debug("task deleted", slog.String("task_id", id))
	return true, nil
}

// DeleteMany implements store.TaskStore.DeleteMany.
func (s *TaskStore) DeleteMany(ctx context.Context, ids []string) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if ids == nil {
		return 0, fmt.Errorf("%w: ids must be a slice", store.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prevTasks, prevOrder := s.snapshotLocked()
	removed := 0
	for _, id := range ids {
		if _, ok := s.tasks[id]; ok {
			s.removeLocked(id)
			removed++
		}
	}

	// Nothing changed: skip the blob write entirely.
	if removed == 0 {
		return 0, nil
	}

	if err := s.persistLocked(ctx); err != nil {
		s.restoreLocked(prevTasks, prevOrder)
		log.Error("failed to persist bulk deletion, reverted",
			slog.String("error", err.Error()),
			slog.Int("requested", len(ids)))
		return 0, store.NewStoreError("task", "delete_many", "failed to persist collection", err)
	}

	log.Debug("tasks deleted", slog.Int("removed", removed))
	return removed, nil
}

// removeLocked deletes a task from the map and its insertion slot.
func (s *TaskStore) removeLocked(id string) {
	delete(s.tasks, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Clear implements store.TaskStore.Clear.
func (s *TaskStore) Clear(ctx context.Context) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Already empty: no blob write, count stays observable for callers.
	if len(s.tasks) == 0 {
		return 0, nil
	}

	prevTasks, prevOrder := s.snapshotLocked()
	removed := len(s.tasks)
	s.tasks = make(map[string]domain.Task)
	s.order = nil

	if err := s.persistLocked(ctx); err != nil {
		s.restoreLocked(prevTasks, prevOrder)
		log.Error("failed to persist cleared collection, reverted",
			slog.String("error", err.Error()))
		return 0, store.NewStoreError("task", "clear", "failed to persist collection", err)
	}

	log.Info("task collection cleared", slog.Int("removed", removed))
	return removed, nil
}

// Count implements store.TaskStore.Count.
func (s *TaskStore) Count(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.tasks)
}

// CountBy implements store.TaskStore.CountBy.
func (s *TaskStore) CountBy(_ context.Context, predicate store.TaskPredicate) (int, error) {
	if predicate == nil {
		return 0, fmt.Errorf("%w: predicate cannot be nil", store.ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, task := range s.tasks {
		if predicate(task) {
			count++
		}
	}
	return count, nil
}

// Export implements store.TaskStore.Export.
func (s *TaskStore) Export(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.collectionLocked(), "", "  ")
	if err != nil {
		return "", store.NewStoreError("task", "export", "failed to encode collection", err)
	}
	return string(data), nil
}

// Import implements store.TaskStore.Import.
//
// Unlike load, import is strict: any single malformed record fails the whole
// call. The new collection is persisted exactly once before it replaces the
// live one.
func (s *TaskStore) Import(ctx context.Context, data string) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !strings.HasPrefix(strings.TrimSpace(data), "[") {
		return 0, fmt.Errorf("%w: import payload must be a JSON array", domain.ErrValidation)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(data), &elements); err != nil {
		return 0, fmt.Errorf("%w: import payload must be a JSON array: %v", domain.ErrValidation, err)
	}

	nextTasks := make(map[string]domain.Task, len(elements))
	var nextOrder []string
	for i, element := range elements {
		task, err := decodeTask(element)
		if err != nil {
			if errors.Is(err, domain.ErrValidation) {
				return 0, fmt.Errorf("record at index %d: %w", i, err)
			}
			return 0, fmt.Errorf("%w: malformed record at index %d: %v", domain.ErrValidation, i, err)
		}
		if _, exists := nextTasks[task.ID]; !exists {
			nextOrder = append(nextOrder, task.ID)
		}
		nextTasks[task.ID] = task
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prevTasks, prevOrder := s.snapshotLocked()
	s.tasks = nextTasks
	s.order = nextOrder

	if err := s.persistLocked(ctx); err != nil {
		s.restoreLocked(prevTasks, prevOrder)
		log.Error("failed to persist imported collection, reverted",
			slog.String("error", err.Error()))
		return 0, store.NewStoreError("task", "import", "failed to persist collection", err)
	}

	size := len(s.order)
	log.Info("task collection imported", slog.Int("size", size))
	return size, nil
}

// Stats implements store.TaskStore.Stats.
func (s *TaskStore) Stats(_ context.Context) store.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := store.Stats{
		Total:          len(s.tasks),
		CompletionRate: "0.0%",
	}
	for _, task := range s.tasks {
		if task.Completed {
			stats.Completed++
		}
	}
	stats.Pending = stats.Total - stats.Completed

	if stats.Total > 0 {
		rate := float64(stats.Completed) / float64(stats.Total) * 100
		// One decimal place, e.g. "33.3%"
		stats.CompletionRate = fmt.Sprintf("%.1f%%", math.Round(rate*10)/10)
	}
	return stats
}
