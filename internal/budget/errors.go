package budget

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds in source category")

	// ErrConflict reports a serialization failure. The operation may be
	// retried as a whole.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrStorageUnavailable reports that the store could not be reached.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError describes malformed input for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
