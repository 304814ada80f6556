package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeConfig       ErrorType = "config"
	ErrorTypeLaunchFailed ErrorType = "launch_failed"
	ErrorTypeJobFailed    ErrorType = "job_failed"
	ErrorTypeJobTimedOut  ErrorType = "job_timed_out"
	ErrorTypeDatasetFetch ErrorType = "dataset_fetch"
	ErrorTypeParsing      ErrorType = "parsing"
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypeAuth         ErrorType = "auth"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeServerError  ErrorType = "server_error"
	ErrorTypeUnknown      ErrorType = "unknown"
)

// Error is the typed error returned by every goingviral component.
// Code is the HTTP status seen from an upstream service (0 when none),
// Status is the remote job status for job failures, and Details carries
// the raw upstream body when there is one.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Status  string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("%s error: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports bad caller input such as a missing username.
func Validation(msg string) *Error {
	return &Error{Type: ErrorTypeValidation, Message: msg}
}

// Config reports a missing or malformed setting.
func Config(msg string) *Error {
	return &Error{Type: ErrorTypeConfig, Message: msg}
}

// LaunchFailed reports a rejected or unreadable run launch.
func LaunchFailed(code int, body string, err error) *Error {
	msg := fmt.Sprintf("Failed to start scraping job: status %d", code)
	if err != nil {
		msg = "Failed to start scraping job: " + err.Error()
	}
	return &Error{Type: ErrorTypeLaunchFailed, Message: msg, Code: code, Details: body, Err: err}
}

// JobFailed reports a run that reached a terminal non-success status.
func JobFailed(status string) *Error {
	return &Error{
		Type:    ErrorTypeJobFailed,
		Message: "Run failed with status: " + status,
		Status:  status,
	}
}

// JobTimedOut reports a poll budget that ran out before the run finished.
func JobTimedOut(attempts int) *Error {
	return &Error{
		Type:    ErrorTypeJobTimedOut,
		Message: "Timeout waiting for results",
		Details: fmt.Sprintf("gave up after %d status checks", attempts),
	}
}

// DatasetFetch reports a failed dataset download.
func DatasetFetch(code int, body string, err error) *Error {
	msg := fmt.Sprintf("Failed to fetch results: status %d", code)
	if err != nil {
		msg = "Failed to fetch results: " + err.Error()
	}
	return &Error{Type: ErrorTypeDatasetFetch, Message: msg, Code: code, Details: body, Err: err}
}

// Parse reports an upstream body that could not be decoded.
func Parse(msg string, err error) *Error {
	return &Error{Type: ErrorTypeParsing, Message: msg, Err: err}
}

// Network wraps a transport failure.
func Network(msg string, err error) *Error {
	return &Error{Type: ErrorTypeNetwork, Message: msg, Err: err}
}

// Auth reports a missing or rejected session.
func Auth(msg string) *Error {
	return &Error{Type: ErrorTypeAuth, Message: msg, Code: http.StatusUnauthorized}
}

// RateLimited reports a local limiter refusing a request.
func RateLimited(msg string) *Error {
	return &Error{Type: ErrorTypeRateLimit, Message: msg, Code: http.StatusTooManyRequests}
}

// NotFound reports an unknown variant, account or run.
func NotFound(msg string) *Error {
	return &Error{Type: ErrorTypeNotFound, Message: msg}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown.
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// Is reports whether err carries the given type.
func Is(err error, t ErrorType) bool {
	return TypeOf(err) == t
}

// Message returns the user-facing message of err.
func Message(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Detail returns the upstream detail carried by err, or "" when there is
// none. Decode failures fall back to the decoder's message.
func Detail(err error) string {
	var e *Error
	if !stderrors.As(err, &e) {
		return ""
	}
	if e.Details != "" {
		return e.Details
	}
	if e.Type == ErrorTypeParsing && e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// HTTPStatus maps err to a response status. Without strict mapping every
// failure is a 500, which is what deployed clients expect.
func HTTPStatus(err error, strict bool) int {
	if !strict {
		return http.StatusInternalServerError
	}
	switch TypeOf(err) {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeAuth:
		return http.StatusUnauthorized
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeLaunchFailed, ErrorTypeJobFailed, ErrorTypeDatasetFetch:
		return http.StatusBadGateway
	case ErrorTypeJobTimedOut:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeDatasetFetch:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
