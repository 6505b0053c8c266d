package auth

import "errors"

// Sentinel errors for credential construction and refresh.
var (
	// ErrMissingCredentials indicates required credential material is empty.
	ErrMissingCredentials = errors.New("auth: missing credentials")

	// ErrMalformedCredentials indicates credential material that can never
	// produce a valid header (e.g. a username containing a colon).
	ErrMalformedCredentials = errors.New("auth: malformed credentials")

	// ErrUnknownStrategy indicates an unrecognized credential type tag.
	ErrUnknownStrategy = errors.New("auth: unknown credential strategy")

	// ErrTokenExchange indicates the OAuth client-credentials exchange failed.
	ErrTokenExchange = errors.New("auth: token exchange failed")
)
