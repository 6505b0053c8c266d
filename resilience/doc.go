// Package resilience makes outbound API calls failure-tolerant.
//
// It provides the patterns the client composes around every request:
//
//   - Breaker: a per-target circuit breaker that stops issuing calls to an
//     endpoint after a run of consecutive failures and probes it for
//     recovery after a cool-down.
//
//   - Retryer: wraps one logical operation, retries transient failures with
//     capped exponential backoff and full jitter, honors Retry-After, and
//     reports every outcome to the target's breaker.
//
//   - RateLimiter: token-bucket pacing of outbound calls.
//
//   - Bulkhead: bounds the number of in-flight requests.
//
// Failures are classified through the apierr package; only RATE_LIMITED,
// NETWORK_ERROR, and HTTP 503 are retried. Everything else propagates on
// first occurrence.
package resilience
