package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxTitleLength is the maximum number of characters allowed in a task title.
const MaxTitleLength = 200

// Task represents a single to-do item. Tasks are immutable values: every
// "mutation" helper returns a new Task sharing the original ID and CreatedAt.
// The JSON tags match the persisted record format.
type Task struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	CreatedAt int64  `json:"createdAt"`
	Order     int    `json:"order"`
}

// NewTask creates a new Task with the given title. It generates a new UUID
// for the task ID and stamps CreatedAt with the current time in Unix
// milliseconds. Returns an error if validation fails.
func NewTask(title string) (Task, error) {
	task := Task{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		Completed: false,
		CreatedAt: time.Now().UnixMilli(),
		Order:     0,
	}

	if err := task.Validate(); err != nil {
		return Task{}, err
	}

	return task, nil
}

// RehydrateTask rebuilds a Task from a persisted record. A missing ID is
// regenerated and a zero CreatedAt is stamped with the current time, so
// records produced by older clients remain loadable. Title validation is
// enforced exactly as in NewTask.
func RehydrateTask(id, title string, completed bool, createdAt int64, order int) (Task, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	task := Task{
		ID:        id,
		Title:     strings.TrimSpace(title),
		Completed: completed,
		CreatedAt: createdAt,
		Order:     order,
	}

	if err := task.Validate(); err != nil {
		return Task{}, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t Task) Validate() error {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return ErrTitleEmpty
	}
	if len([]rune(title)) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

// WithTitle returns a copy of the task with the given title.
// Returns an error if the new title is invalid; the receiver is unchanged.
func (t Task) WithTitle(title string) (Task, error) {
	next := t
	next.Title = strings.TrimSpace(title)
	if err := next.Validate(); err != nil {
		return Task{}, err
	}
	return next, nil
}

// WithCompleted returns a copy of the task with the given completion state.
func (t Task) WithCompleted(completed bool) Task {
	next := t
	next.Completed = completed
	return next
}

// ToggleCompleted returns a copy of the task with the completion state flipped.
func (t Task) ToggleCompleted() Task {
	return t.WithCompleted(!t.Completed)
}

// WithOrder returns a copy of the task with the given manual sort position.
func (t Task) WithOrder(order int) Task {
	next := t
	next.Order = order
	return next
}
