package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/ticketops/apierr"
)

func tokenServer(t *testing.T, exchanges *atomic.Int64, respond func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges.Add(1)
		if r.Method != http.MethodPost {
			t.Errorf("token exchange method = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q, want client_credentials", got)
		}
		respond(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOAuth_Headers(t *testing.T) {
	var exchanges atomic.Int64
	server := tokenServer(t, &exchanges, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"tok-1","token_type":"Bearer","expires_in":1800}`)
	})

	o, err := NewOAuth(OAuthConfig{TokenURL: server.URL, ClientID: "id", ClientSecret: "secret"})
	if err != nil {
		t.Fatalf("NewOAuth() error = %v", err)
	}

	headers, err := o.Headers(context.Background())
	if err != nil {
		t.Fatalf("Headers() error = %v", err)
	}
	if headers["Authorization"] != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want %q", headers["Authorization"], "Bearer tok-1")
	}

	// Second call must be served from cache.
	if _, err := o.Headers(context.Background()); err != nil {
		t.Fatalf("Headers() error = %v", err)
	}
	if n := exchanges.Load(); n != 1 {
		t.Errorf("token exchanges = %d, want 1", n)
	}
}

func TestOAuth_SingleFlightUnderContention(t *testing.T) {
	var exchanges atomic.Int64
	server := tokenServer(t, &exchanges, func(w http.ResponseWriter, r *http.Request) {
		// Hold the exchange open so all callers pile up on it.
		time.Sleep(50 * time.Millisecond)
		fmt.Fprint(w, `{"access_token":"tok-shared","expires_in":1800}`)
	})

	o, err := NewOAuth(OAuthConfig{TokenURL: server.URL, ClientID: "id", ClientSecret: "secret"})
	if err != nil {
		t.Fatalf("NewOAuth() error = %v", err)
	}

	const callers = 10
	tokens := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			headers, err := o.Headers(context.Background())
			if err != nil {
				errs[i] = err
				return
			}
			tokens[i] = headers["Authorization"]
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d error = %v", i, errs[i])
		}
		if tokens[i] != "Bearer tok-shared" {
			t.Errorf("caller %d token = %q, want %q", i, tokens[i], "Bearer tok-shared")
		}
	}

	if n := exchanges.Load(); n != 1 {
		t.Errorf("token exchanges = %d, want exactly 1", n)
	}
}

func TestOAuth_RefreshSurvivesInitiatorCancellation(t *testing.T) {
	var exchanges atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	server := tokenServer(t, &exchanges, func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(started) })
		<-release
		fmt.Fprint(w, `{"access_token":"tok-late","expires_in":1800}`)
	})

	o, err := NewOAuth(OAuthConfig{TokenURL: server.URL, ClientID: "id", ClientSecret: "secret"})
	if err != nil {
		t.Fatalf("NewOAuth() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	initiator := make(chan error, 1)
	go func() {
		_, err := o.Headers(ctx)
		initiator <- err
	}()
	<-started

	// A second caller joins the in-flight refresh before the initiator
	// gives up.
	type result struct {
		headers map[string]string
		err     error
	}
	waiter := make(chan result, 1)
	go func() {
		h, err := o.Headers(context.Background())
		waiter <- result{h, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-initiator; !errors.Is(err, context.Canceled) {
		t.Fatalf("initiator error = %v, want context.Canceled", err)
	}

	close(release)
	res := <-waiter
	if res.err != nil {
		t.Fatalf("waiter error = %v (initiator cancellation must not abort the exchange)", res.err)
	}
	if res.headers["Authorization"] != "Bearer tok-late" {
		t.Errorf("Authorization = %q, want %q", res.headers["Authorization"], "Bearer tok-late")
	}
	if n := exchanges.Load(); n != 1 {
		t.Errorf("token exchanges = %d, want 1", n)
	}
}

func TestOAuth_StaleWithinBuffer(t *testing.T) {
	var exchanges atomic.Int64
	server := tokenServer(t, &exchanges, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":1800}`, exchanges.Load())
	})

	o, err := NewOAuth(OAuthConfig{TokenURL: server.URL, ClientID: "id", ClientSecret: "secret"})
	if err != nil {
		t.Fatalf("NewOAuth() error = %v", err)
	}

	if _, err := o.Headers(context.Background()); err != nil {
		t.Fatalf("Headers() error = %v", err)
	}

	// Move the clock to 30s before expiry: inside the 60s refresh buffer,
	// so the token must be treated as stale.
	o.now = func() time.Time { return time.Now().Add(1800*time.Second - 30*time.Second) }

	if _, err := o.Headers(context.Background()); err != nil {
		t.Fatalf("Headers() error = %v", err)
	}
	if n := exchanges.Load(); n != 2 {
		t.Errorf("token exchanges = %d, want 2 (stale token must refresh)", n)
	}
}

func TestOAuth_RefreshFailureClearsToken(t *testing.T) {
	var exchanges atomic.Int64
	var fail atomic.Bool
	server := tokenServer(t, &exchanges, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, `{"error":"access_denied"}`, http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"access_token":"tok-ok","expires_in":1800}`)
	})

	o, err := NewOAuth(OAuthConfig{TokenURL: server.URL, ClientID: "id", ClientSecret: "secret"})
	if err != nil {
		t.Fatalf("NewOAuth() error = %v", err)
	}

	fail.Store(true)
	_, err = o.Headers(context.Background())
	if err == nil {
		t.Fatal("expected refresh failure")
	}

	var classified *apierr.Error
	if !errors.As(err, &classified) || classified.Code != apierr.CodeAuthentication {
		t.Errorf("refresh failure = %v, want AUTHENTICATION_ERROR", err)
	}
	if !errors.Is(err, ErrTokenExchange) {
		t.Errorf("refresh failure should wrap ErrTokenExchange, got %v", err)
	}

	// The failed exchange must not leave a stale token behind: the next call
	// retries the exchange and succeeds.
	fail.Store(false)
	headers, err := o.Headers(context.Background())
	if err != nil {
		t.Fatalf("Headers() after recovery error = %v", err)
	}
	if headers["Authorization"] != "Bearer tok-ok" {
		t.Errorf("Authorization = %q, want %q", headers["Authorization"], "Bearer tok-ok")
	}
	if n := exchanges.Load(); n != 2 {
		t.Errorf("token exchanges = %d, want 2", n)
	}
}

func TestOAuth_ExpiresInAbsentUsesJWTExp(t *testing.T) {
	// Unsigned JWT with exp far in the future; header/claims are base64url
	// {"alg":"none","typ":"JWT"} . {"exp":33260976000} . empty signature.
	const jwtToken = "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJleHAiOjMzMjYwOTc2MDAwfQ."

	var exchanges atomic.Int64
	server := tokenServer(t, &exchanges, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"access_token":"%s"}`, jwtToken)
	})

	o, err := NewOAuth(OAuthConfig{TokenURL: server.URL, ClientID: "id", ClientSecret: "secret"})
	if err != nil {
		t.Fatalf("NewOAuth() error = %v", err)
	}

	if _, err := o.Headers(context.Background()); err != nil {
		t.Fatalf("Headers() error = %v", err)
	}
	if _, err := o.Headers(context.Background()); err != nil {
		t.Fatalf("Headers() error = %v", err)
	}
	if n := exchanges.Load(); n != 1 {
		t.Errorf("token exchanges = %d, want 1 (exp claim should cache the token)", n)
	}
}

func TestOAuth_ConstructionRejection(t *testing.T) {
	if _, err := NewOAuth(OAuthConfig{TokenURL: "https://x/oauth_token.do"}); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("missing client credentials: error = %v, want ErrMissingCredentials", err)
	}
	if _, err := NewOAuth(OAuthConfig{ClientID: "id", ClientSecret: "s"}); !errors.Is(err, ErrMalformedCredentials) {
		t.Errorf("missing token URL: error = %v, want ErrMalformedCredentials", err)
	}
}
