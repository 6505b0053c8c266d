package apierr

// Code identifies the class of a remote API failure.
//
// The set is closed: classification maps every failure to exactly one of
// these values, and callers may exhaustively switch on them.
type Code string

const (
	// CodeValidation indicates the request was malformed (HTTP 400, or any
	// unrecognized non-5xx status).
	CodeValidation Code = "VALIDATION_ERROR"

	// CodeAuthentication indicates missing or invalid credentials (HTTP 401),
	// including a failed OAuth token exchange.
	CodeAuthentication Code = "AUTHENTICATION_ERROR"

	// CodeAuthorization indicates the credentials lack access (HTTP 403).
	CodeAuthorization Code = "AUTHORIZATION_ERROR"

	// CodeNotFound indicates the record or table does not exist (HTTP 404).
	CodeNotFound Code = "NOT_FOUND"

	// CodeRateLimited indicates the remote throttled the request (HTTP 429).
	CodeRateLimited Code = "RATE_LIMITED"

	// CodeServer indicates a remote server failure (HTTP 5xx).
	CodeServer Code = "SERVER_ERROR"

	// CodeNetwork indicates a transport-level failure: connection refused,
	// DNS failure, or a timed-out attempt.
	CodeNetwork Code = "NETWORK_ERROR"

	// CodeCircuitOpen indicates the call was rejected locally because the
	// circuit breaker for the target is open. No I/O was performed.
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)

// String returns the stable wire name of the code.
func (c Code) String() string {
	return string(c)
}
