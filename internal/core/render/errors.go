package render

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest indicates a render request is missing required fields
var ErrInvalidRequest = errors.New("invalid render request")

// ValidationError describes which field of a request is invalid.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// IsValidationError reports whether err is a request validation failure.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
