package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness conflict.
	ErrAlreadyExists = errors.New("already exists")
)

// ErrBackendUnsuccessful indicates the commerce backend answered but reported
// failure (success=false or a non-2xx status).
var ErrBackendUnsuccessful = errors.New("commerce backend reported failure")
