package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypeAuth         ErrorType = "auth"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeParsing      ErrorType = "parsing"
	ErrorTypeCancelled    ErrorType = "cancelled"
	ErrorTypeNotReady     ErrorType = "not_ready"
	ErrorTypeInvalidInput ErrorType = "invalid_input"
	ErrorTypeUnknown      ErrorType = "unknown"
)

// Error is a typed failure. Code carries the upstream HTTP status when there
// is one; RetryAfter carries a server-provided backoff hint.
type Error struct {
	Type       ErrorType
	Message    string
	Code       int
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same type. This lets callers
// match against the sentinels below with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// Sentinels for errors.Is comparisons.
var (
	ErrNetwork      = &Error{Type: ErrorTypeNetwork}
	ErrRateLimited  = &Error{Type: ErrorTypeRateLimit}
	ErrAuth         = &Error{Type: ErrorTypeAuth}
	ErrForbidden    = &Error{Type: ErrorTypeForbidden}
	ErrNotFound     = &Error{Type: ErrorTypeNotFound}
	ErrParsing      = &Error{Type: ErrorTypeParsing}
	ErrCancelled    = &Error{Type: ErrorTypeCancelled}
	ErrNotReady     = &Error{Type: ErrorTypeNotReady}
	ErrInvalidInput = &Error{Type: ErrorTypeInvalidInput}
)

// New creates a typed error
func New(t ErrorType, msg string) *Error {
	return &Error{Type: t, Message: msg}
}

// Newf creates a typed error with a formatted message
func Newf(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a typed error around an underlying cause
func Wrap(t ErrorType, err error, msg string) *Error {
	return &Error{Type: t, Message: msg, Err: err}
}

// TypeOf returns the ErrorType of the first *Error in err's chain, or
// ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err carries the given type anywhere in its chain
func IsType(err error, t ErrorType) bool {
	return stderrors.Is(err, &Error{Type: t})
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch {
	case statusCode == 0, statusCode == 429:
		return true
	case statusCode >= 500:
		return true
	default:
		return false
	}
}

// UserMessage renders err as a non-empty, human-readable line suitable for a
// job's terminal status.
func UserMessage(err error) string {
	if err == nil {
		return "unknown error"
	}

	var e *Error
	if !stderrors.As(err, &e) {
		return "unexpected error: " + err.Error()
	}

	detail := e.Message
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}

	var prefix string
	switch e.Type {
	case ErrorTypeAuth:
		prefix = "Authentication failed"
	case ErrorTypeForbidden:
		prefix = "Access denied"
	case ErrorTypeNotFound:
		prefix = "Account not found"
	case ErrorTypeRateLimit:
		prefix = "Rate limited by the data provider"
	case ErrorTypeNetwork:
		prefix = "Network error"
	case ErrorTypeParsing:
		prefix = "Unexpected response from the data provider"
	case ErrorTypeCancelled:
		prefix = "Job cancelled"
	case ErrorTypeNotReady:
		prefix = "Result not ready"
	case ErrorTypeInvalidInput:
		prefix = "Invalid request"
	default:
		prefix = "Unexpected error"
	}

	if detail == "" {
		return prefix
	}
	return prefix + ": " + detail
}
