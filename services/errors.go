package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrValidation        = errors.New("validation failed")

	ErrTaskNotFound    = fmt.Errorf("task %w", ErrNotFound)
	ErrChannelNotFound = fmt.Errorf("channel %w", ErrNotFound)
	ErrWorkLogNotFound = fmt.Errorf("work log %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)

	ErrDuplicateTask   = errors.New("a task with this title already exists in this project")
	ErrInvalidDecision = fmt.Errorf("%w: invalid decision", ErrInvalidTransition)
	ErrInvalidStatus   = fmt.Errorf("%w: invalid status", ErrInvalidTransition)

	// ErrBusy is returned when an update kept losing the version race.
	ErrBusy = errors.New("record is busy, retry later")
)
