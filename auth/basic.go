package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// Basic encodes a username/password pair into an Authorization header.
// It is stateless: the header is computed once at construction.
type Basic struct {
	header string
}

// NewBasic creates a Basic provider.
//
// Empty username or password is rejected, as is a username containing a
// colon, which RFC 7617 cannot represent.
func NewBasic(username, password string) (*Basic, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	if strings.Contains(username, ":") {
		return nil, fmt.Errorf("%w: username must not contain ':'", ErrMalformedCredentials)
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return &Basic{header: "Basic " + encoded}, nil
}

// Name returns "basic".
func (b *Basic) Name() string {
	return "basic"
}

// Headers returns the precomputed Authorization header.
func (b *Basic) Headers(_ context.Context) (map[string]string, error) {
	return map[string]string{"Authorization": b.header}, nil
}

// Ensure Basic implements Provider
var _ Provider = (*Basic)(nil)
