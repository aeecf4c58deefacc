package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/phrazzld/taskstore/internal/domain"
	"github.com/phrazzld/taskstore/internal/events"
	"github.com/phrazzld/taskstore/internal/platform/logger"
	"github.com/phrazzld/taskstore/internal/store"
)

// TaskRepository defines the repository contract the service layer depends on.
type TaskRepository interface {
	// Save inserts or replaces a task by ID.
	Save(ctx context.Context, task domain.Task) (domain.Task, error)

	// SaveMany saves a batch of tasks atomically and returns the count processed.
	SaveMany(ctx context.Context, tasks []domain.Task) (int, error)

	// Delete removes a task by ID; returns false if the ID was absent.
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteMany removes the given IDs and returns the count actually removed.
	DeleteMany(ctx context.Context, ids []string) (int, error)

	// Clear removes every task and returns the count removed.
	Clear(ctx context.Context) (int, error)

	// FindAll returns fresh copies of every stored task in insertion order.
	FindAll(ctx context.Context) []domain.Task

	// FindBy returns fresh copies of the tasks matching the predicate.
	FindBy(ctx context.Context, predicate store.TaskPredicate) ([]domain.Task, error)

	// FindByID returns a fresh copy of the task, or ok=false if absent.
	FindByID(ctx context.Context, id string) (domain.Task, bool)

	// Count returns the number of stored tasks.
	Count(ctx context.Context) int

	// CountBy returns the number of stored tasks matching the predicate.
	CountBy(ctx context.Context, predicate store.TaskPredicate) (int, error)

	// Export serializes the collection as a pretty-printed JSON array.
	Export(ctx context.Context) (string, error)

	// Import replaces the entire collection with the tasks parsed from data.
	Import(ctx context.Context, data string) (int, error)
}

// TaskUpdates carries the optional field updates applied by UpdateTask.
// Nil fields are left untouched.
type TaskUpdates struct {
	Title     *string
	Completed *bool
	Order     *int
}

// ReorderItem assigns a new manual sort position to an existing task.
type ReorderItem struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

// Statistics summarizes the collection for the service's callers.
// CompletionRate is an integer percentage rounded to the nearest whole
// number; the repository's Stats offers the string-formatted view.
type Statistics struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	CompletionRate int `json:"completionRate"`
}

// TaskService provides task-related business operations.
type TaskService interface {
	// CreateTask creates and saves a new task with the given title.
	CreateTask(ctx context.Context, title string) (domain.Task, error)

	// UpdateTask applies the given field updates to an existing task.
	// Returns store.ErrTaskNotFound if the ID is absent.
	UpdateTask(ctx context.Context, id string, updates TaskUpdates) (domain.Task, error)

	// ToggleTaskCompletion flips the completion state of an existing task.
	ToggleTaskCompletion(ctx context.Context, id string) (domain.Task, error)

	// ReorderTasks assigns new manual sort positions in one atomic batch.
	// Fails with store.ErrTaskNotFound before any persistence when an ID is missing.
	ReorderTasks(ctx context.Context, items []ReorderItem) (int, error)

	// DeleteTask removes an existing task.
	// Returns store.ErrTaskNotFound if the ID is absent.
	DeleteTask(ctx context.Context, id string) error

	// ClearCompleted deletes every completed task and returns the count removed.
	ClearCompleted(ctx context.Context) (int, error)

	// ClearAll deletes every task and returns the count removed.
	ClearAll(ctx context.Context) (int, error)

	// GetTasks returns the tasks matching the named filter.
	GetTasks(ctx context.Context, filter string) ([]domain.Task, error)

	// GetTasksSorted returns the tasks matching the named filter, sorted by
	// the named sort strategy.
	GetTasksSorted(ctx context.Context, sortBy, filter string) ([]domain.Task, error)

	// GetTaskByID returns the task, or ok=false if absent. Queries do not error.
	GetTaskByID(ctx context.Context, id string) (domain.Task, bool)

	// SearchTasks returns the tasks whose title contains the trimmed term,
	// case-insensitively. An empty term yields an empty result, not an error.
	SearchTasks(ctx context.Context, term string) ([]domain.Task, error)

	// GetStatistics returns aggregate counts with an integer completion rate.
	GetStatistics(ctx context.Context) (Statistics, error)

	// HasTasks reports whether any task is stored.
	HasTasks(ctx context.Context) bool

	// HasCompletedTasks reports whether any completed task is stored.
	HasCompletedTasks(ctx context.Context) (bool, error)

	// HasPendingTasks reports whether any pending task is stored.
	HasPendingTasks(ctx context.Context) (bool, error)

	// ExportTasks serializes the collection for backup.
	ExportTasks(ctx context.Context) (string, error)

	// ImportTasks replaces the collection from serialized data and returns
	// the new collection size.
	ImportTasks(ctx context.Context, data string) (int, error)
}

// taskServiceImpl implements the TaskService interface.
type taskServiceImpl struct {
	repo    TaskRepository
	emitter events.Emitter
	logger  *slog.Logger
}

// NewTaskService creates a new TaskService without change notifications.
// It returns an error if no repository is supplied.
func NewTaskService(repo TaskRepository, log *slog.Logger) (TaskService, error) {
	return NewTaskServiceWithEvents(repo, nil, log)
}

// NewTaskServiceWithEvents creates a new TaskService publishing change events
// to the given emitter. A nil emitter disables notifications.
func NewTaskServiceWithEvents(repo TaskRepository, emitter events.Emitter, log *slog.Logger) (TaskService, error) {
	if repo == nil {
		return nil, fmt.Errorf("%w: repository cannot be nil", store.ErrInvalidArgument)
	}

	if log == nil {
		log = slog.Default()
	}

	return &taskServiceImpl{
		repo:    repo,
		emitter: emitter,
		logger:  log.With(slog.String("component", "task_service")),
	}, nil
}

// emit publishes a change event after a successful mutation. Handler failures
// are logged, never surfaced to the caller; the change itself already stuck.
func (s *taskServiceImpl) emit(ctx context.Context, event events.Event) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		s.logger.Warn("change event handler failed",
			slog.String("event_type", string(event.Type)),
			slog.String("error", err.Error()))
	}
}

// CreateTask implements TaskService.CreateTask.
func (s *taskServiceImpl) CreateTask(ctx context.Context, title string) (domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Title validation lives in the task constructor.
	task, err := domain.NewTask(title)
	if err != nil {
		return domain.Task{}, err
	}

	saved, err := s.repo.Save(ctx, task)
	if err != nil {
		log.Error("failed to create task", slog.String("error", err.Error()))
		return domain.Task{}, NewTaskServiceError("create_task", "failed to save task", err)
	}

	s.emit(ctx, events.TaskEvent(events.TaskCreated, saved.ID))
	log.Debug("task created", slog.String("task_id", saved.ID))
	return saved, nil
}

// UpdateTask implements TaskService.UpdateTask.
// Updates apply in a fixed order: title, then completion (only when the
// requested state differs), then order. Each step yields a new immutable
// task; only the final result is persisted.
func (s *taskServiceImpl) UpdateTask(ctx context.Context, id string, updates TaskUpdates) (domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, ok := s.repo.FindByID(ctx, id)
	if !ok {
		return domain.Task{}, fmt.Errorf("%w: id %q", store.ErrTaskNotFound, id)
	}

	if updates.Title != nil {
		next, err := task.WithTitle(*updates.Title)
		if err != nil {
			return domain.Task{}, NewTaskServiceError("update_task", "invalid title", err)
		}
		task = next
	}

	if updates.Completed != nil && *updates.Completed != task.Completed {
		task = task.ToggleCompleted()
	}

	if updates.Order != nil {
		task = task.WithOrder(*updates.Order)
	}

	saved, err := s.repo.Save(ctx, task)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", id))
		return domain.Task{}, NewTaskServiceError("update_task", "failed to save task", err)
	}

	s.emit(ctx, events.TaskEvent(events.TaskUpdated, saved.ID))
	return saved, nil
}

// ToggleTaskCompletion implements TaskService.ToggleTaskCompletion.
func (s *taskServiceImpl) ToggleTaskCompletion(ctx context.Context, id string) (domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, ok := s.repo.FindByID(ctx, id)
	if !ok {
		return domain.Task{}, fmt.Errorf("%w: id %q", store.ErrTaskNotFound, id)
	}

	saved, err := s.repo.Save(ctx, task.ToggleCompleted())
	if err != nil {
		log.Error("failed to toggle task completion",
			slog.String("error", err.Error()),
			slog.String("task_id", id))
		return domain.Task{}, NewTaskServiceError("toggle_task_completion", "failed to save task", err)
	}

	s.emit(ctx, events.TaskEvent(events.TaskUpdated, saved.ID))
	return saved, nil
}

// ReorderTasks implements TaskService.ReorderTasks.
// Existence is checked for every referenced ID while building the batch,
// before anything touches storage, so a missing ID never leaves a partial
// application behind.
func (s *taskServiceImpl) ReorderTasks(ctx context.Context, items []ReorderItem) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if items == nil {
		return 0, fmt.Errorf("%w: items must be a slice", store.ErrInvalidArgument)
	}

	batch := make([]domain.Task, 0, len(items))
	for _, item := range items {
		task, ok := s.repo.FindByID(ctx, item.ID)
		if !ok {
			return 0, fmt.Errorf("%w: id %q", store.ErrTaskNotFound, item.ID)
		}
		batch = append(batch, task.WithOrder(item.Order))
	}
	if len(batch) == 0 {
		return 0, nil
	}

	count, err := s.repo.SaveMany(ctx, batch)
	if err != nil {
		log.Error("failed to reorder tasks",
			slog.String("error", err.Error()),
			slog.Int("batch_size", len(batch)))
		return 0, NewTaskServiceError("reorder_tasks", "failed to save batch", err)
	}

	s.emit(ctx, events.BatchEvent(events.TasksReordered, count))
	log.Debug("tasks reordered", slog.Int("count", count))
	return count, nil
}

// DeleteTask implements TaskService.DeleteTask.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, id string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id))
		return NewTaskServiceError("delete_task", "failed to delete task", err)
	}
	if !removed {
		return fmt.Errorf("%w: id %q", store.ErrTaskNotFound, id)
	}

	s.emit(ctx, events.TaskEvent(events.TaskDeleted, id))
	return nil
}

// ClearCompleted implements TaskService.ClearCompleted.
func (s *taskServiceImpl) ClearCompleted(ctx context.Context) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	completed, err := s.repo.FindBy(ctx, filterStrategies[FilterCompleted])
	if err != nil {
		return 0, NewTaskServiceError("clear_completed", "failed to query completed tasks", err)
	}
	if len(completed) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(completed))
	for _, task := range completed {
		ids = append(ids, task.ID)
	}

	removed, err := s.repo.DeleteMany(ctx, ids)
	if err != nil {
		log.Error("failed to clear completed tasks", slog.String("error", err.Error()))
		return 0, NewTaskServiceError("clear_completed", "failed to delete tasks", err)
	}

	s.emit(ctx, events.BatchEvent(events.TasksCleared, removed))
	log.Debug("completed tasks cleared", slog.Int("removed", removed))
	return removed, nil
}

// ClearAll implements TaskService.ClearAll.
func (s *taskServiceImpl) ClearAll(ctx context.Context) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	removed, err := s.repo.Clear(ctx)
	if err != nil {
		log.Error("failed to clear tasks", slog.String("error", err.Error()))
		return 0, NewTaskServiceError("clear_all", "failed to clear tasks", err)
	}

	if removed > 0 {
		s.emit(ctx, events.BatchEvent(events.TasksCleared, removed))
	}
	return removed, nil
}

// GetTasks implements TaskService.GetTasks.
func (s *taskServiceImpl) GetTasks(ctx context.Context, filter string) ([]domain.Task, error) {
	predicate, err := lookupFilter(filter)
	if err != nil {
		return nil, err
	}

	tasks, err := s.repo.FindBy(ctx, predicate)
	if err != nil {
		return nil, NewTaskServiceError("get_tasks", "failed to query tasks", err)
	}
	return tasks, nil
}

// GetTasksSorted implements TaskService.GetTasksSorted.
func (s *taskServiceImpl) GetTasksSorted(ctx context.Context, sortBy, filter string) ([]domain.Task, error) {
	comparator, err := lookupSort(sortBy)
	if err != nil {
		return nil, err
	}

	tasks, err := s.GetTasks(ctx, filter)
	if err != nil {
		return nil, err
	}

	// The repository already handed out fresh copies, so sorting in place
	// never touches stored state.
	slices.SortStableFunc(tasks, comparator)
	return tasks, nil
}

// GetTaskByID implements TaskService.GetTaskByID.
func (s *taskServiceImpl) GetTaskByID(ctx context.Context, id string) (domain.Task, bool) {
	return s.repo.FindByID(ctx, id)
}

// SearchTasks implements TaskService.SearchTasks.
func (s *taskServiceImpl) SearchTasks(ctx context.Context, term string) ([]domain.Task, error) {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return []domain.Task{}, nil
	}

	tasks, err := s.repo.FindBy(ctx, func(task domain.Task) bool {
		return strings.Contains(strings.ToLower(task.Title), needle)
	})
	if err != nil {
		return nil, NewTaskServiceError("search_tasks", "failed to query tasks", err)
	}
	return tasks, nil
}

// GetStatistics implements TaskService.GetStatistics.
func (s *taskServiceImpl) GetStatistics(ctx context.Context) (Statistics, error) {
	total := s.repo.Count(ctx)

	completed, err := s.repo.CountBy(ctx, filterStrategies[FilterCompleted])
	if err != nil {
		return Statistics{}, NewTaskServiceError("get_statistics", "failed to count tasks", err)
	}

	stats := Statistics{
		Total:     total,
		Completed: completed,
		Pending:   total - completed,
	}
	if total > 0 {
		stats.CompletionRate = int(math.Round(float64(completed) / float64(total) * 100))
	}
	return stats, nil
}

// HasTasks implements TaskService.HasTasks.
func (s *taskServiceImpl) HasTasks(ctx context.Context) bool {
	return s.repo.Count(ctx) > 0
}

// HasCompletedTasks implements TaskService.HasCompletedTasks.
func (s *taskServiceImpl) HasCompletedTasks(ctx context.Context) (bool, error) {
	count, err := s.repo.CountBy(ctx, filterStrategies[FilterCompleted])
	if err != nil {
		return false, NewTaskServiceError("has_completed_tasks", "failed to count tasks", err)
	}
	return count > 0, nil
}

// HasPendingTasks implements TaskService.HasPendingTasks.
func (s *taskServiceImpl) HasPendingTasks(ctx context.Context) (bool, error) {
	count, err := s.repo.CountBy(ctx, filterStrategies[FilterPending])
	if err != nil {
		return false, NewTaskServiceError("has_pending_tasks", "failed to count tasks", err)
	}
	return count > 0, nil
}

// ExportTasks implements TaskService.ExportTasks.
func (s *taskServiceImpl) ExportTasks(ctx context.Context) (string, error) {
	data, err := s.repo.Export(ctx)
	if err != nil {
		return "", NewTaskServiceError("export_tasks", "failed to export collection", err)
	}
	return data, nil
}

// ImportTasks implements TaskService.ImportTasks.
func (s *taskServiceImpl) ImportTasks(ctx context.Context, data string) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	size, err := s.repo.Import(ctx, data)
	if err != nil {
		log.Error("failed to import tasks", slog.String("error", err.Error()))
		return 0, NewTaskServiceError("import_tasks", "failed to import collection", err)
	}

	s.emit(ctx, events.BatchEvent(events.CollectionImported, size))
	log.Info("tasks imported", slog.Int("size", size))
	return size, nil
}
