// Package apperrors defines the error taxonomy shared by the feed
// generator's services. Storage errors are not translated; they wrap
// through with %w so callers can apply their own retry policy.
package apperrors

import (
	"errors"
	"fmt"
)

// ErrAuthRequired is returned when a feed request carries no requester
// identity.
var ErrAuthRequired = errors.New("authentication required")

// ErrNotFound is returned when an update targets a nonexistent record,
// e.g. setting the quota of a followee edge that does not exist.
// Removals of absent records are no-ops, not errors.
var ErrNotFound = errors.New("record not found")

// ValidationError rejects an out-of-range or malformed input before any
// mutation happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// NewValidation builds a ValidationError for a field.
func NewValidation(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
