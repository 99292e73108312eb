package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or missing input rejected before any lookup.
	ErrValidation = errors.New("validation error")
	// ErrDuplicateDocument indicates a document number that already exists.
	ErrDuplicateDocument = errors.New("duplicate document number")
)
