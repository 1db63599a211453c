// Package apperr defines the sentinel error kinds the ranking engine
// surfaces, so handlers can map them to HTTP status codes with
// errors.Is instead of string matching.
package apperr

import "errors"

var (
	// ErrNotFound means the main product id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput means a request payload failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDependencyDegraded means a retrieval channel failed or timed
	// out; callers should log and continue with the remaining channels.
	ErrDependencyDegraded = errors.New("dependency degraded")
	// ErrPersistencePartial means the feedback row was written but the
	// arm upsert failed (or vice versa, which must not happen).
	ErrPersistencePartial = errors.New("partial persistence failure")
)
