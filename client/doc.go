// Package client provides a resilient HTTP client for a ServiceNow-style
// Table API.
//
// A Client is built from a Config naming the target instance and a credential
// strategy, and exposes the table operations (list, get, create, update,
// delete, aggregate) as typed methods. Every call runs under the resilience
// stack: per-target circuit breaking, classification-aware retries with
// backoff and Retry-After handling, optional rate limiting and bulkheading,
// and a per-attempt timeout so one slow attempt never consumes the whole
// retry budget.
//
// Failures surface as *apierr.Error values carrying the classified code;
// caller cancellation propagates as the context's own error.
package client
