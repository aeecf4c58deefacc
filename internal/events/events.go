// Package events delivers task change notifications to in-process
// subscribers, so presentation layers can react to mutations without
// polling the service.
package events

import (
	"context"
	"time"
)

// EventType identifies the kind of change an Event describes.
type EventType string

// Change event types emitted by the task service.
const (
	TaskCreated        EventType = "task_created"
	TaskUpdated        EventType = "task_updated"
	TaskDeleted        EventType = "task_deleted"
	TasksReordered     EventType = "tasks_reordered"
	TasksCleared       EventType = "tasks_cleared"
	CollectionImported EventType = "collection_imported"
)

// Event describes one completed change to the task collection. Events are
// emitted after the change has been persisted, never for failed operations.
type Event struct {
	// Type indicates the kind of change
	Type EventType `json:"type"`

	// TaskID is set for single-task changes
	TaskID string `json:"taskId,omitempty"`

	// Count is set for batch changes (reorder, clear, import)
	Count int `json:"count,omitempty"`

	// At is the timestamp when the event was created
	At time.Time `json:"at"`
}

// TaskEvent creates an event describing a change to a single task.
func TaskEvent(eventType EventType, taskID string) Event {
	return Event{
		Type:   eventType,
		TaskID: taskID,
		At:     time.Now(),
	}
}

// BatchEvent creates an event describing a change to multiple tasks.
func BatchEvent(eventType EventType, count int) Event {
	return Event{
		Type:  eventType,
		Count: count,
		At:    time.Now(),
	}
}

// Handler defines an interface for components that consume change events.
type Handler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

// HandleEvent implements Handler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Emitter defines an interface for components that publish change events.
// This lets the service announce changes without direct knowledge of handlers.
type Emitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns the first handler error encountered, if any.
	EmitEvent(ctx context.Context, event Event) error
}
