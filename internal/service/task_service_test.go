package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskstore/internal/domain"
	"github.com/phrazzld/taskstore/internal/events"
	"github.com/phrazzld/taskstore/internal/mocks"
	"github.com/phrazzld/taskstore/internal/platform/blobstore"
	"github.com/phrazzld/taskstore/internal/store"
	"github.com/phrazzld/taskstore/internal/testutils"
)

var errWriteFailed = errors.New("simulated write failure")

func newTestService(t *testing.T) (TaskService, *blobstore.TaskStore, *mocks.BlobStore) {
	t.Helper()

	blob := mocks.NewBlobStore()
	repo := blobstore.New(context.Background(), blob, "tasks", nil)

	svc, err := NewTaskService(repo, nil)
	require.NoError(t, err)
	return svc, repo, blob
}

func seedTask(t *testing.T, repo *blobstore.TaskStore, title string, completed bool, order int) domain.Task {
	t.Helper()

	saved, err := repo.Save(context.Background(), testutils.TaskFixture(t, title, completed, order))
	require.NoError(t, err)
	return saved
}

func TestNewTaskServiceRequiresRepository(t *testing.T) {
	t.Parallel()

	svc, err := NewTaskService(nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
	assert.Nil(t, svc)
}

func TestCreateTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	task, err := svc.CreateTask(ctx, "  Buy milk  ")
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", task.Title)
	assert.NotEmpty(t, task.ID)
	assert.False(t, task.Completed)

	stored, ok := repo.FindByID(ctx, task.ID)
	require.True(t, ok)
	assert.Equal(t, task, stored)
}

func TestCreateTaskInvalidTitle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	_, err := svc.CreateTask(ctx, "   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, repo.FindAll(ctx), "nothing may be stored on a failed create")
}

func TestCreateTaskWrapsPersistenceFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, blob := newTestService(t)

	blob.FailWrites(errWriteFailed)

	_, err := svc.CreateTask(ctx, "Doomed")
	require.Error(t, err)

	var svcErr *TaskServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "create_task", svcErr.Operation)
	assert.ErrorIs(t, err, store.ErrPersistence)
	assert.ErrorIs(t, err, errWriteFailed, "the original cause must stay inspectable")
}

func TestUpdateTaskNotFound(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)

	_, err := svc.UpdateTask(context.Background(), "missing", TaskUpdates{})
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestUpdateTaskAppliesFieldsInOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	task := seedTask(t, repo, "Original", false, 0)

	title := "Renamed"
	completed := true
	order := 5
	updated, err := svc.UpdateTask(ctx, task.ID, TaskUpdates{
		Title:     &title,
		Completed: &completed,
		Order:     &order,
	})
	require.NoError(t, err)

	assert.Equal(t, task.ID, updated.ID)
	assert.Equal(t, task.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "Renamed", updated.Title)
	assert.True(t, updated.Completed)
	assert.Equal(t, 5, updated.Order)

	stored, ok := repo.FindByID(ctx, task.ID)
	require.True(t, ok)
	assert.Equal(t, updated, stored)
}

func TestUpdateTaskCompletionOnlyWhenDiffering(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	task := seedTask(t, repo, "Pending task", false, 0)

	// Requesting the current state must not flip it
	completed := false
	updated, err := svc.UpdateTask(ctx, task.ID, TaskUpdates{Completed: &completed})
	require.NoError(t, err)
	assert.False(t, updated.Completed)

	completed = true
	updated, err = svc.UpdateTask(ctx, task.ID, TaskUpdates{Completed: &completed})
	require.NoError(t, err)
	assert.True(t, updated.Completed)
}

func TestUpdateTaskInvalidTitle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	task := seedTask(t, repo, "Original", false, 0)

	empty := ""
	_, err := svc.UpdateTask(ctx, task.ID, TaskUpdates{Title: &empty})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTitleEmpty)

	// The stored task is untouched
	stored, ok := repo.FindByID(ctx, task.ID)
	require.True(t, ok)
	assert.Equal(t, "Original", stored.Title)
}

func TestToggleTaskCompletion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	task := seedTask(t, repo, "Toggle me", false, 0)

	toggled, err := svc.ToggleTaskCompletion(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	again, err := svc.ToggleTaskCompletion(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, again.Completed)

	_, err = svc.ToggleTaskCompletion(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestReorderTasks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	a := seedTask(t, repo, "A", false, 0)
	b := seedTask(t, repo, "B", false, 1)

	count, err := svc.ReorderTasks(ctx, []ReorderItem{
		{ID: a.ID, Order: 1},
		{ID: b.ID, Order: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	storedA, _ := repo.FindByID(ctx, a.ID)
	storedB, _ := repo.FindByID(ctx, b.ID)
	assert.Equal(t, 1, storedA.Order)
	assert.Equal(t, 0, storedB.Order)
}

func TestReorderTasksNilInput(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)

	_, err := svc.ReorderTasks(context.Background(), nil)
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
}

func TestReorderTasksMissingIDLeavesCollectionUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, blob := newTestService(t)

	a := seedTask(t, repo, "A", false, 0)

	before, err := repo.Export(ctx)
	require.NoError(t, err)
	writes := blob.SetCalls()

	_, err = svc.ReorderTasks(ctx, []ReorderItem{
		{ID: a.ID, Order: 3},
		{ID: "missing", Order: 0},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	after, err := repo.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after, "a failed reorder must not change the collection")
	assert.Equal(t, writes, blob.SetCalls(), "existence failures happen before any persistence")
}

func TestDeleteTask(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	task := seedTask(t, repo, "Delete me", false, 0)

	require.NoError(t, svc.DeleteTask(ctx, task.ID))
	assert.False(t, repo.Exists(ctx, task.ID))

	err := svc.DeleteTask(ctx, task.ID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestClearCompleted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	seedTask(t, repo, "Done one", true, 0)
	pending := seedTask(t, repo, "Still pending", false, 1)
	seedTask(t, repo, "Done two", true, 2)

	removed, err := svc.ClearCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	remaining := repo.FindAll(ctx)
	require.Len(t, remaining, 1)
	assert.Equal(t, pending.ID, remaining[0].ID)
}

func TestClearCompletedWithNoneCompleted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, blob := newTestService(t)

	seedTask(t, repo, "Pending", false, 0)
	writes := blob.SetCalls()

	removed, err := svc.ClearCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Equal(t, writes, blob.SetCalls(), "no deletions means no write")
}

func TestClearAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	seedTask(t, repo, "A", false, 0)
	seedTask(t, repo, "B", true, 1)

	removed, err := svc.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.False(t, svc.HasTasks(ctx))
}

func TestGetTasksFilters(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	done := seedTask(t, repo, "Done", true, 0)
	pending := seedTask(t, repo, "Pending", false, 1)

	all, err := svc.GetTasks(ctx, FilterAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	completed, err := svc.GetTasks(ctx, FilterCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, done.ID, completed[0].ID)

	open, err := svc.GetTasks(ctx, FilterPending)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, pending.ID, open[0].ID)

	// Empty filter name defaults to "all"
	defaulted, err := svc.GetTasks(ctx, "")
	require.NoError(t, err)
	assert.Len(t, defaulted, 2)
}

func TestGetTasksUnknownFilter(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)

	_, err := svc.GetTasks(context.Background(), "archived")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "all, completed, pending", "the error must name the valid options")
}

func TestGetTasksSortedByOrderWithPendingFilter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	seedTask(t, repo, "Second pending", false, 2)
	seedTask(t, repo, "Completed", true, 1)
	seedTask(t, repo, "First pending", false, 0)

	tasks, err := svc.GetTasksSorted(ctx, SortByOrder, FilterPending)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, 0, tasks[0].Order)
	assert.Equal(t, 2, tasks[1].Order)
	for _, task := range tasks {
		assert.False(t, task.Completed)
	}
}

func TestGetTasksSortedByTitleIsLocaleAware(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	seedTask(t, repo, "cherry", false, 0)
	seedTask(t, repo, "Apple", false, 1)
	seedTask(t, repo, "banana", false, 2)

	tasks, err := svc.GetTasksSorted(ctx, SortByTitle, FilterAll)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	// Case-insensitive collation, not byte order ("Apple" before "banana")
	assert.Equal(t, "Apple", tasks[0].Title)
	assert.Equal(t, "banana", tasks[1].Title)
	assert.Equal(t, "cherry", tasks[2].Title)
}

func TestGetTasksSortedByCreatedAt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	older, err := domain.RehydrateTask("older", "Older", false, 1000, 0)
	require.NoError(t, err)
	newer, err := domain.RehydrateTask("newer", "Newer", false, 2000, 1)
	require.NoError(t, err)

	// Insert newest first to prove sorting does the work
	_, err = repo.Save(ctx, newer)
	require.NoError(t, err)
	_, err = repo.Save(ctx, older)
	require.NoError(t, err)

	tasks, err := svc.GetTasksSorted(ctx, SortByCreatedAt, FilterAll)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "older", tasks[0].ID)
	assert.Equal(t, "newer", tasks[1].ID)
}

func TestGetTasksSortedUnknownSort(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)

	_, err := svc.GetTasksSorted(context.Background(), "priority", FilterAll)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "createdAt, order, title", "the error must name the valid options")
}

func TestGetTaskByID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	task := seedTask(t, repo, "Find me", false, 0)

	found, ok := svc.GetTaskByID(ctx, task.ID)
	require.True(t, ok)
	assert.Equal(t, task, found)

	// Queries report absence without an error
	_, ok = svc.GetTaskByID(ctx, "missing")
	assert.False(t, ok)
}

func TestSearchTasks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	milk := seedTask(t, repo, "Buy milk", false, 0)
	seedTask(t, repo, "Walk the dog", false, 1)

	// Case-insensitive substring match
	results, err := svc.SearchTasks(ctx, "MiLk")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, milk.ID, results[0].ID)

	// The term is trimmed before matching
	results, err = svc.SearchTasks(ctx, "  dog  ")
	require.NoError(t, err)
	assert.Len(t, results, 1)

	// Empty and whitespace-only terms yield an empty result, not an error
	for _, term := range []string{"", "   "} {
		results, err = svc.SearchTasks(ctx, term)
		require.NoError(t, err)
		assert.Empty(t, results)
	}

	results, err = svc.SearchTasks(ctx, "no such task")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGetStatistics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	// Empty collection reports zeros
	stats, err := svc.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, Statistics{}, stats)

	seedTask(t, repo, "Done", true, 0)
	seedTask(t, repo, "Pending one", false, 1)
	seedTask(t, repo, "Pending two", false, 2)

	stats, err = svc.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 33, stats.CompletionRate, "integer rounding, unlike the repository's string rate")

	// Both statistics views stay consistent
	repoStats := repo.Stats(ctx)
	assert.Equal(t, "33.3%", repoStats.CompletionRate)
	assert.Equal(t, stats.Total, repoStats.Total)
}

func TestExistenceQueries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	assert.False(t, svc.HasTasks(ctx))

	seedTask(t, repo, "Pending", false, 0)

	assert.True(t, svc.HasTasks(ctx))

	hasCompleted, err := svc.HasCompletedTasks(ctx)
	require.NoError(t, err)
	assert.False(t, hasCompleted)

	hasPending, err := svc.HasPendingTasks(ctx)
	require.NoError(t, err)
	assert.True(t, hasPending)

	seedTask(t, repo, "Done", true, 1)

	hasCompleted, err = svc.HasCompletedTasks(ctx)
	require.NoError(t, err)
	assert.True(t, hasCompleted)
}

func TestExportImportPassthrough(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, repo, _ := newTestService(t)

	first := seedTask(t, repo, "First", false, 0)
	second := seedTask(t, repo, "Second", true, 1)

	exported, err := svc.ExportTasks(ctx)
	require.NoError(t, err)

	other, otherRepo, _ := newTestService(t)
	size, err := other.ImportTasks(ctx, exported)
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	imported := otherRepo.FindAll(ctx)
	require.Len(t, imported, 2)
	assert.Equal(t, first, imported[0])
	assert.Equal(t, second, imported[1])
}

func TestImportTasksWrapsValidationFailure(t *testing.T) {
	t.Parallel()
	svc, _, _ := newTestService(t)

	_, err := svc.ImportTasks(context.Background(), `{"not":"an array"}`)
	require.Error(t, err)

	var svcErr *TaskServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "import_tasks", svcErr.Operation)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestServiceEmitsChangeEvents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	blob := mocks.NewBlobStore()
	repo := blobstore.New(ctx, blob, "tasks", nil)
	emitter := events.NewInMemoryEmitter(nil)

	svc, err := NewTaskServiceWithEvents(repo, emitter, nil)
	require.NoError(t, err)

	var seen []events.EventType
	emitter.RegisterHandler(events.HandlerFunc(func(_ context.Context, event events.Event) error {
		seen = append(seen, event.Type)
		return nil
	}))

	task, err := svc.CreateTask(ctx, "Watch me change")
	require.NoError(t, err)

	_, err = svc.ToggleTaskCompletion(ctx, task.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(ctx, task.ID))

	// Failed operations emit nothing
	_, err = svc.CreateTask(ctx, "   ")
	require.Error(t, err)

	assert.Equal(t, []events.EventType{
		events.TaskCreated,
		events.TaskUpdated,
		events.TaskDeleted,
	}, seen)
}

func TestClearAllEmitsOnlyWhenSomethingWasRemoved(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	blob := mocks.NewBlobStore()
	repo := blobstore.New(ctx, blob, "tasks", nil)
	emitter := events.NewInMemoryEmitter(nil)

	svc, err := NewTaskServiceWithEvents(repo, emitter, nil)
	require.NoError(t, err)

	emitted := 0
	emitter.RegisterHandler(events.HandlerFunc(func(context.Context, events.Event) error {
		emitted++
		return nil
	}))

	removed, err := svc.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Equal(t, 0, emitted, "clearing an empty collection is not a change")
}
