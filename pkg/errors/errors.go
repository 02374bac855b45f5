package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypePersistence   ErrorType = "persistence"
	ErrorTypeNetwork       ErrorType = "network"
	ErrorTypeRateLimit     ErrorType = "rate_limit"
	ErrorTypeAuth          ErrorType = "auth"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeServerError   ErrorType = "server_error"
	ErrorTypeRemote        ErrorType = "remote"
	ErrorTypeParsing       ErrorType = "parsing"
	ErrorTypeUnknown       ErrorType = "unknown"
)

// Error is a typed error carrying an optional HTTP status code and cause
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Type, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap creates a typed error around a cause
func Wrap(t ErrorType, message string, err error) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

// Configuration reports a fatal setup problem such as an empty address list
func Configuration(message string, err error) *Error {
	return Wrap(ErrorTypeConfiguration, message, err)
}

// Persistence reports a failure to write durable state
func Persistence(message string, err error) *Error {
	return Wrap(ErrorTypePersistence, message, err)
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown when err is untyped
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err is a typed error of the given type
func Is(err error, t ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == t
}

// IsRetryable checks if an error type should be retried.
// Everything that comes back from the remote boundary is treated as transient.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeConfiguration, ErrorTypePersistence:
		return false
	default:
		return true
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a transient error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
