package types

import "fmt"

// ErrorCode is a unified error code across the engine.
type ErrorCode string

const (
	ErrCircuitOpen     ErrorCode = "CIRCUIT_OPEN"
	ErrUpstreamTimeout ErrorCode = "UPSTREAM_TIMEOUT"
	ErrUpstreamError   ErrorCode = "UPSTREAM_ERROR"
	ErrSearchFailed    ErrorCode = "SEARCH_FAILED"
	ErrMemoryStore     ErrorCode = "MEMORY_STORE"
	ErrInvalidQuery    ErrorCode = "INVALID_QUERY"
	ErrNotConfigured   ErrorCode = "NOT_CONFIGURED"
	ErrInternalError   ErrorCode = "INTERNAL_ERROR"
)

// Error is a structured error with code, message, and cause.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// NewError creates an Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause attaches a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}
