package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// Entity-specific validation errors wrap this sentinel so callers can
	// check for the whole class with errors.Is.
	ErrValidation = errors.New("validation failed")

	// ErrTitleEmpty is returned when a task title is empty after trimming.
	ErrTitleEmpty = fmt.Errorf("%w: task title cannot be empty", ErrValidation)

	// ErrTitleTooLong is returned when a task title exceeds MaxTitleLength characters.
	ErrTitleTooLong = fmt.Errorf("%w: task title cannot exceed %d characters", ErrValidation, MaxTitleLength)
)
