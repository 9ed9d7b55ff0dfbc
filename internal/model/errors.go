package model

import "errors"

// Error kinds shared by the entity, manager and storage layers.
// Callers match them with errors.Is; concrete errors wrap one of these.
var (
	// ErrValidation reports bad content, names or enum values.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound reports an id that does not resolve to an entity.
	ErrNotFound = errors.New("not found")

	// ErrConflict reports a duplicate name or a delete blocked by owned tasks.
	ErrConflict = errors.New("conflict")

	// ErrStorage reports an unavailable backend or a failed write.
	ErrStorage = errors.New("storage error")
)
