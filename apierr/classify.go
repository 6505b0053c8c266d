package apierr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// errorEnvelope is the error body shape used by the remote Table API.
// Both fields are best-effort detail; classification never depends on them.
type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	} `json:"error"`
	Status string `json:"status"`
}

// FromResponse classifies a non-2xx HTTP response.
//
// The body, when parseable as the remote's error envelope, contributes a
// more specific message. retryAfter is the verbatim Retry-After header value
// (empty when absent).
func FromResponse(status int, body []byte, retryAfter string) *Error {
	message := messageFromBody(body)
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}

	return &Error{
		Code:       codeForStatus(status),
		HTTPStatus: status,
		RetryAfter: retryAfter,
		Message:    message,
	}
}

func codeForStatus(status int) Code {
	switch status {
	case 400:
		return CodeValidation
	case 401:
		return CodeAuthentication
	case 403:
		return CodeAuthorization
	case 404:
		return CodeNotFound
	case 429:
		return CodeRateLimited
	}
	if status >= 500 {
		return CodeServer
	}
	// Unrecognized non-5xx statuses are treated as request problems.
	return CodeValidation
}

func messageFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return envelope.Error.Detail
}

// Classify converts an arbitrary failure into an *Error.
//
// Already-classified errors pass through unchanged. Transport-level failures
// (connection refused, DNS failure, timed-out attempt) become CodeNetwork.
// Context cancellation is deliberately NOT classified: a cancelled operation
// must propagate its context error so callers can distinguish it from a
// transient network failure. Use IsCancellation first.
func Classify(err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return Wrap(CodeNetwork, urlErr.Err.Error(), err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Wrap(CodeNetwork, "request timed out", err)
		}
		return Wrap(CodeNetwork, netErr.Error(), err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(CodeNetwork, "request timed out", err)
	}

	return Wrap(CodeNetwork, err.Error(), err)
}

// IsCancellation reports whether err represents cancellation by the caller
// (as opposed to a per-attempt deadline owned by the client).
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
