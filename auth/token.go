package auth

import "context"

// StaticToken wraps a fixed bearer token. It is stateless.
type StaticToken struct {
	header string
}

// NewStaticToken creates a StaticToken provider. An empty token is rejected.
func NewStaticToken(token string) (*StaticToken, error) {
	if token == "" {
		return nil, ErrMissingCredentials
	}
	return &StaticToken{header: "Bearer " + token}, nil
}

// Name returns "token".
func (t *StaticToken) Name() string {
	return "token"
}

// Headers returns the fixed Authorization header.
func (t *StaticToken) Headers(_ context.Context) (map[string]string, error) {
	return map[string]string{"Authorization": t.header}, nil
}

// Ensure StaticToken implements Provider
var _ Provider = (*StaticToken)(nil)
