package usecase

import "errors"

// Sentinel errors shared by the pipeline services. The HTTP layer maps them
// to status codes: invalid input to 400, not found to 404, unauthorized to
// 401, dependency unavailable to 503.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
