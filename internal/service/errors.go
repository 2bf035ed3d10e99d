package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a record does not exist for the given
	// id/owner pair. A record owned by someone else reports the same error.
	ErrNotFound = errors.New("not found")
	// ErrStorageBackend is returned when the external blob store fails.
	ErrStorageBackend = errors.New("storage backend error")
	// ErrProvider is returned when the external embedding provider fails.
	ErrProvider = errors.New("embedding provider error")
)

// ValidationError represents a validation error with a field name.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// WrapError wraps an error with additional context.
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}
