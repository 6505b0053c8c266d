package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/ticketops/apierr"
)

// OAuthConfig configures the client-credentials provider.
type OAuthConfig struct {
	// TokenURL is the token endpoint of the remote instance.
	TokenURL string

	// ClientID is the OAuth client identifier.
	ClientID string

	// ClientSecret is the OAuth client secret.
	ClientSecret string

	// RefreshBuffer is how long before expiry a token is considered stale,
	// so a token never expires mid-flight of the request it authorizes.
	// Default: 60 seconds.
	RefreshBuffer time.Duration

	// HTTPClient is the client used for token exchanges.
	// If nil, a default client with a 30s timeout is used.
	HTTPClient *http.Client

	// OnRefresh, when set, is called after every token exchange with its
	// outcome. Intended for logging/metrics.
	OnRefresh func(err error)
}

// fallbackLifetime is assumed when the token endpoint reports no expiry at
// all (no expires_in field and no exp claim in the access token).
const fallbackLifetime = 30 * time.Minute

// exchangeTimeout bounds a detached token exchange once it no longer
// inherits the initiating caller's deadline.
const exchangeTimeout = 30 * time.Second

// OAuth obtains bearer tokens via the OAuth2 client-credentials grant and
// caches them until they are within RefreshBuffer of expiry.
//
// Refreshes are single-flight: concurrent callers observing a stale token
// coalesce onto one in-flight token exchange and all receive its outcome.
type OAuth struct {
	config OAuthConfig

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	sfGroup singleflight.Group // prevents redundant token exchanges

	now func() time.Time // test seam
}

// NewOAuth creates an OAuth provider.
func NewOAuth(config OAuthConfig) (*OAuth, error) {
	if config.ClientID == "" || config.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if config.TokenURL == "" {
		return nil, fmt.Errorf("%w: token URL is required", ErrMalformedCredentials)
	}
	if _, err := url.Parse(config.TokenURL); err != nil {
		return nil, fmt.Errorf("%w: invalid token URL: %v", ErrMalformedCredentials, err)
	}
	if config.RefreshBuffer <= 0 {
		config.RefreshBuffer = 60 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &OAuth{
		config: config,
		now:    time.Now,
	}, nil
}

// Name returns "oauth".
func (o *OAuth) Name() string {
	return "oauth"
}

// Headers returns a bearer Authorization header, refreshing the cached token
// first when it is stale. A fresh cached token is returned without I/O.
func (o *OAuth) Headers(ctx context.Context) (map[string]string, error) {
	o.mu.RLock()
	token, fresh := o.token, o.freshLocked()
	o.mu.RUnlock()

	if fresh {
		return map[string]string{"Authorization": "Bearer " + token}, nil
	}

	// Stale or absent: join (or start) the single in-flight refresh. Waiters
	// that are cancelled stop waiting; the exchange runs on a detached
	// context so one caller's cancellation cannot fail the other waiters.
	ch := o.sfGroup.DoChan("refresh", func() (any, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exchangeTimeout)
		defer cancel()
		return o.refresh(refreshCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return map[string]string{"Authorization": "Bearer " + res.Val.(string)}, nil
	}
}

// freshLocked reports whether the cached token is usable. Caller must hold
// at least RLock.
func (o *OAuth) freshLocked() bool {
	if o.token == "" {
		return false
	}
	return o.now().Add(o.config.RefreshBuffer).Before(o.expiresAt)
}

// tokenResponse is the token endpoint response shape.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// refresh performs one client-credentials exchange and updates the cache.
// On failure the cached token is cleared so the next call retries the
// exchange instead of reusing a doomed token.
func (o *OAuth) refresh(ctx context.Context) (token string, err error) {
	// Re-check under the lock: a caller that observed a stale token while a
	// refresh was completing must reuse that outcome, not exchange again.
	o.mu.RLock()
	if o.freshLocked() {
		cached := o.token
		o.mu.RUnlock()
		return cached, nil
	}
	o.mu.RUnlock()

	defer func() {
		if o.config.OnRefresh != nil {
			o.config.OnRefresh(err)
		}
		if err != nil {
			o.mu.Lock()
			o.token = ""
			o.expiresAt = time.Time{}
			o.mu.Unlock()
		}
	}()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", o.config.ClientID)
	form.Set("client_secret", o.config.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", apierr.Wrap(apierr.CodeAuthentication, "token exchange request failed", fmt.Errorf("%w: %v", ErrTokenExchange, err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := o.config.HTTPClient.Do(req)
	if err != nil {
		return "", apierr.Wrap(apierr.CodeAuthentication, "token exchange failed", fmt.Errorf("%w: %v", ErrTokenExchange, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		cause := fmt.Errorf("%w: status %d: %s", ErrTokenExchange, resp.StatusCode, strings.TrimSpace(string(body)))
		return "", apierr.Wrap(apierr.CodeAuthentication, "token exchange rejected", cause)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", apierr.Wrap(apierr.CodeAuthentication, "token exchange returned malformed body", fmt.Errorf("%w: %v", ErrTokenExchange, err))
	}
	if tr.AccessToken == "" {
		return "", apierr.Wrap(apierr.CodeAuthentication, "token exchange returned no access token", ErrTokenExchange)
	}

	expiresAt := o.expiryFor(tr)

	o.mu.Lock()
	o.token = tr.AccessToken
	o.expiresAt = expiresAt
	o.mu.Unlock()

	return tr.AccessToken, nil
}

// expiryFor derives the token expiry: expires_in when present, otherwise the
// exp claim of a JWT access token, otherwise a conservative fallback. The
// token is not verified here; expiry is a cache hint, not a trust decision.
func (o *OAuth) expiryFor(tr tokenResponse) time.Time {
	now := o.now()
	if tr.ExpiresIn > 0 {
		return now.Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tr.AccessToken, &claims); err == nil {
		if claims.ExpiresAt != nil && claims.ExpiresAt.After(now) {
			return claims.ExpiresAt.Time
		}
	}

	return now.Add(fallbackLifetime)
}

// Ensure OAuth implements Provider
var _ Provider = (*OAuth)(nil)
