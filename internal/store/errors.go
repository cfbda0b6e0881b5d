package store

import "errors"

// ErrNotFound is returned when a record does not exist or is not owned by
// the caller.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when a session in a terminal status
// (completed or cancelled) is asked to change status or accept questions.
var ErrInvalidTransition = errors.New("invalid state transition")
