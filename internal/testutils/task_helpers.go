// Package testutils provides shared task fixtures for package tests.
package testutils

import (
	"testing"

	"github.com/phrazzld/taskstore/internal/domain"
)

// MustNewTask creates a valid task or fails the test.
func MustNewTask(t *testing.T, title string) domain.Task {
	t.Helper()

	task, err := domain.NewTask(title)
	if err != nil {
		t.Fatalf("failed to create task %q: %v", title, err)
	}
	return task
}

// TaskFixture creates a task with explicit completion state and order,
// failing the test on invalid input.
func TaskFixture(t *testing.T, title string, completed bool, order int) domain.Task {
	t.Helper()

	task := MustNewTask(t, title)
	return task.WithCompleted(completed).WithOrder(order)
}
