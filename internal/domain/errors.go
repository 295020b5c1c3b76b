package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the request lifecycle. Callers are expected to branch on
// these with errors.Is and turn them into user-facing messages; none of them
// is fatal to the bot process.
var (
	// ErrSessionNotFound indicates the user has no in-progress form; the
	// caller should instruct the user to start over.
	ErrSessionNotFound = errors.New("no active session")

	// ErrIncompleteSession indicates finalize was attempted before every
	// required field was collected.
	ErrIncompleteSession = errors.New("session is incomplete")

	// ErrDuplicateTransactionID indicates a non-rejected request with the
	// same transaction id and kind already exists.
	ErrDuplicateTransactionID = errors.New("transaction id already submitted")

	// ErrRequestNotFound indicates no stored request matches the given id.
	ErrRequestNotFound = errors.New("transaction request not found")

	// ErrAlreadyDecided indicates the request already left pending status;
	// the first decision stands.
	ErrAlreadyDecided = errors.New("transaction request already decided")

	// ErrUnauthorized indicates the acting user may not decide requests.
	ErrUnauthorized = errors.New("not authorized to decide requests")

	// ErrUserNotFound indicates no stored user matches the given id.
	ErrUserNotFound = errors.New("user not found")
)

// ValidationError reports a rejected form field value. The form state machine
// does not advance past a field until its value validates.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError constructs a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidationError reports whether err is a ValidationError and returns it.
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
