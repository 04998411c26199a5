package artifact

import "errors"

var (
	// ErrNotFound is returned when an artifact for the given run / reference
	// pair does not exist in the underlying store.
	ErrNotFound = errors.New("artifact not found")
)
