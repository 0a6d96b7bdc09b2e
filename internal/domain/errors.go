package domain

import "errors"

var (
	// ErrValidation marks malformed input; surfaced synchronously, nothing persisted.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an operation rejected by the current state of an entity.
	ErrConflict = errors.New("conflict")
	// ErrConfiguration marks a failure that retrying cannot fix without operator
	// intervention, e.g. no sender registered for a channel.
	ErrConfiguration = errors.New("configuration error")
)
