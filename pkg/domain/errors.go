package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrUnknownStep is returned when a step ID is not part of the knowledge base.
var ErrUnknownStep = errors.New("unknown step")

// ErrInvalidProgress is returned when a progress value violates the step chain invariant.
var ErrInvalidProgress = errors.New("invalid progress")

// ErrUserNotFound is returned when no progress record exists for a user.
var ErrUserNotFound = errors.New("progress not found")

// ErrTaskNotFound is returned when a task ID is unknown for a user.
var ErrTaskNotFound = errors.New("task not found")

// ErrTemplateNotFound is returned when a document template cannot be resolved.
var ErrTemplateNotFound = errors.New("template not found")
