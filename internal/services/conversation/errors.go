// File: internal/services/conversation/errors.go
package conversation

import (
	"errors"
	"fmt"
)

type ErrorType string

const (
	ErrTypeNotFound    ErrorType = "NOT_FOUND"
	ErrTypeValidation  ErrorType = "VALIDATION"
	ErrTypeUnavailable ErrorType = "GENERATION_UNAVAILABLE"
	ErrTypeTimeout     ErrorType = "TIMEOUT"
	ErrTypeInternal    ErrorType = "INTERNAL"
)

type Error struct {
	Type      ErrorType
	Operation string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("conversation %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("conversation %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewNotFoundError covers both absent and not-owned resources; callers
// must not be able to tell the two apart.
func NewNotFoundError(operation, msg string) *Error {
	return &Error{Type: ErrTypeNotFound, Operation: operation, Message: msg}
}

func NewValidationError(operation, msg string) *Error {
	return &Error{Type: ErrTypeValidation, Operation: operation, Message: msg}
}

func NewUnavailableError(operation, msg string, cause error) *Error {
	return &Error{Type: ErrTypeUnavailable, Operation: operation, Message: msg, Cause: cause}
}

func NewInternalError(operation, msg string, cause error) *Error {
	return &Error{Type: ErrTypeInternal, Operation: operation, Message: msg, Cause: cause}
}

func typeOf(err error) (ErrorType, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Type, true
	}
	return "", false
}

func IsNotFound(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeNotFound
}

func IsValidation(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeValidation
}

func IsUnavailable(err error) bool {
	t, ok := typeOf(err)
	return ok && (t == ErrTypeUnavailable || t == ErrTypeTimeout)
}
