// Package apierr defines the closed error taxonomy for remote API calls.
//
// Every failure raised while talking to a remote instance (a non-2xx HTTP
// response, a network-level error, a timed-out attempt, or a rejection by an
// open circuit breaker) is normalized into an *Error carrying one of a
// fixed set of Codes. Callers branch on the Code rather than on transport
// error types, and the retry layer uses Retryable to decide whether a
// failure is transient.
package apierr
