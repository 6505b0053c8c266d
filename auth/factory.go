package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jonwraymond/ticketops/secret"
)

// Config selects and configures a credential strategy.
//
// Values may reference environment variables (`${VAR}`); they are expanded
// strictly at construction, so a missing variable fails fast rather than
// producing an empty credential at call time.
type Config struct {
	// Type selects the strategy: "basic", "token", or "oauth".
	Type string

	// Username and Password configure the basic strategy.
	Username string
	Password string

	// Token configures the static-token strategy.
	Token string

	// ClientID, ClientSecret, and TokenURL configure the oauth strategy.
	ClientID     string
	ClientSecret string
	TokenURL     string

	// RefreshBuffer tunes oauth token staleness. Default: 60 seconds.
	RefreshBuffer time.Duration

	// HTTPClient is used by strategies that perform I/O.
	HTTPClient *http.Client

	// OnRefresh is forwarded to the oauth strategy.
	OnRefresh func(err error)
}

// New constructs the Provider selected by cfg.Type.
//
// Unknown type tags are rejected here, at construction, never at call time.
func New(cfg Config) (Provider, error) {
	switch cfg.Type {
	case "basic":
		username, err := secret.ExpandEnvStrict(cfg.Username)
		if err != nil {
			return nil, fmt.Errorf("auth: resolve username: %w", err)
		}
		password, err := secret.ExpandEnvStrict(cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("auth: resolve password: %w", err)
		}
		return NewBasic(username, password)

	case "token":
		token, err := secret.ExpandEnvStrict(cfg.Token)
		if err != nil {
			return nil, fmt.Errorf("auth: resolve token: %w", err)
		}
		return NewStaticToken(token)

	case "oauth":
		clientID, err := secret.ExpandEnvStrict(cfg.ClientID)
		if err != nil {
			return nil, fmt.Errorf("auth: resolve client id: %w", err)
		}
		clientSecret, err := secret.ExpandEnvStrict(cfg.ClientSecret)
		if err != nil {
			return nil, fmt.Errorf("auth: resolve client secret: %w", err)
		}
		return NewOAuth(OAuthConfig{
			TokenURL:      cfg.TokenURL,
			ClientID:      clientID,
			ClientSecret:  clientSecret,
			RefreshBuffer: cfg.RefreshBuffer,
			HTTPClient:    cfg.HTTPClient,
			OnRefresh:     cfg.OnRefresh,
		})

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Type)
	}
}
