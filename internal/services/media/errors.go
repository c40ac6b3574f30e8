// File: internal/services/media/errors.go
package media

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of media service errors
type ErrorType string

const (
	ErrTypeNotFound    ErrorType = "NOT_FOUND"
	ErrTypeValidation  ErrorType = "VALIDATION_ERROR"
	ErrTypeUnavailable ErrorType = "GENERATION_UNAVAILABLE"
	ErrTypeStorage     ErrorType = "STORAGE_ERROR"
	ErrTypeInternal    ErrorType = "INTERNAL_ERROR"
)

// Error represents a media service error with context
type Error struct {
	Type      ErrorType
	Operation string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("media %s [%s]: %s: %v", e.Operation, e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("media %s [%s]: %s", e.Operation, e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewNotFoundError(operation, message string) *Error {
	return &Error{Type: ErrTypeNotFound, Operation: operation, Message: message}
}

func NewValidationError(operation, message string) *Error {
	return &Error{Type: ErrTypeValidation, Operation: operation, Message: message}
}

func NewUnavailableError(operation, message string, cause error) *Error {
	return &Error{Type: ErrTypeUnavailable, Operation: operation, Message: message, Cause: cause}
}

func NewStorageError(operation, message string, cause error) *Error {
	return &Error{Type: ErrTypeStorage, Operation: operation, Message: message, Cause: cause}
}

func NewInternalError(operation, message string, cause error) *Error {
	return &Error{Type: ErrTypeInternal, Operation: operation, Message: message, Cause: cause}
}

func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == ErrTypeNotFound
}

func IsValidation(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == ErrTypeValidation
}

func IsUnavailable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == ErrTypeUnavailable
}
