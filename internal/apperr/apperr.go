package apperr

import "errors"

// Shared error taxonomy for the service layer. Access denial is never an
// error: resolvers return it as a value so callers can branch without
// exception-style control flow.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
)
