package auth

import "context"

// Provider produces the authorization headers for an outbound request.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Headers must honor cancellation/deadlines when it performs I/O
//   (e.g. a token refresh); stateless providers ignore the context.
// - Errors: a failed credential exchange is returned as an error; a provider
//   never hands out a header it knows to be stale.
type Provider interface {
	// Name returns a unique identifier for this credential strategy.
	Name() string

	// Headers returns the header names and values to attach to a request.
	Headers(ctx context.Context) (map[string]string, error)
}
