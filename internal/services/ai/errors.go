// File: internal/services/ai/errors.go
package ai

import (
	"context"
	"errors"
	"fmt"
)

type ErrorType string

const (
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeProvider   ErrorType = "PROVIDER"
	ErrTypeTimeout    ErrorType = "TIMEOUT"
	ErrTypeValidation ErrorType = "VALIDATION"
)

// ErrNotConfigured marks calls against a provider with no API key.
var ErrNotConfigured = errors.New("generation provider is not configured")

type AIError struct {
	Type      ErrorType
	Operation string
	Message   string
	Cause     error
}

func (e *AIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("AI %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("AI %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *AIError) Unwrap() error {
	return e.Cause
}

func NewProviderError(operation, msg string, cause error) *AIError {
	typ := ErrTypeProvider
	if errors.Is(cause, context.DeadlineExceeded) {
		typ = ErrTypeTimeout
	}
	return &AIError{Type: typ, Operation: operation, Message: msg, Cause: cause}
}

// IsTimeout reports whether an error came from a provider deadline.
func IsTimeout(err error) bool {
	var aiErr *AIError
	if errors.As(err, &aiErr) && aiErr.Type == ErrTypeTimeout {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
