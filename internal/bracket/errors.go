package bracket

import "errors"

var (
	// ErrNotFound is returned when a referenced pool, bracket or game id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned when a structural constraint is violated.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when a mutation is refused because of existing completed games.
	ErrConflict = errors.New("conflict")
)
