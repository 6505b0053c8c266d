package apierr

import "fmt"

// Error is a classified remote API failure.
//
// Contract:
// - Immutability: an Error is produced once per failure and never mutated.
// - Cause: Err holds the original failure and is reachable via Unwrap; it is
//   meant for logs, not for end users.
type Error struct {
	// Code is the stable classification of the failure.
	Code Code

	// HTTPStatus is the response status, if the failure came from an HTTP
	// response. Zero otherwise.
	HTTPStatus int

	// RetryAfter is the verbatim Retry-After header value, if the response
	// carried one. Interpretation (seconds vs HTTP date) is left to the
	// retry layer.
	RetryAfter string

	// Message is a short, user-presentable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Code, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient and worth retrying.
//
// Only rate limiting, network-level failures, and HTTP 503 qualify. A plain
// 500 usually indicates a non-transient application bug on the remote and is
// treated as terminal.
func (e *Error) Retryable() bool {
	switch e.Code {
	case CodeRateLimited, CodeNetwork:
		return true
	case CodeServer:
		return e.HTTPStatus == 503
	default:
		return false
	}
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error with the given code, message, and cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}
