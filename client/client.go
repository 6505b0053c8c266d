package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonwraymond/ticketops/apierr"
	"github.com/jonwraymond/ticketops/auth"
	"github.com/jonwraymond/ticketops/cache"
	"github.com/jonwraymond/ticketops/observe"
	"github.com/jonwraymond/ticketops/resilience"
)

const (
	tablePath = "/api/now/table/"
	statsPath = "/api/now/stats/"

	// oauthTokenPath is the conventional token endpoint of an instance,
	// used when the credential config names no explicit token URL.
	oauthTokenPath = "/oauth_token.do"

	defaultTimeout  = 30 * time.Second
	defaultCacheTTL = 30 * time.Second
)

// Record is one row of a table, keyed by field name.
type Record = map[string]any

// Config configures a Client.
type Config struct {
	// Instance names the remote instance: either a short instance name
	// ("dev12345", normalized to https://dev12345.service-now.com) or a
	// fully-qualified base URL. Required.
	Instance string

	// Auth is the credential strategy. Either Auth or Credentials is
	// required; Auth wins when both are set.
	Auth auth.Provider

	// Credentials builds a Provider via auth.New when Auth is nil. An empty
	// TokenURL for the oauth strategy is derived from the instance base URL.
	Credentials *auth.Config

	// Retry tunes the retry policy. An entirely zero policy takes
	// resilience.DefaultPolicy; to disable retries set MaxAttempts to 0
	// alongside a non-zero BaseDelay.
	Retry resilience.Policy

	// Breaker tunes the per-target circuit breakers. Zero values take the
	// package defaults.
	Breaker resilience.BreakerConfig

	// Timeout bounds each individual attempt. Default: 30s.
	Timeout time.Duration

	// RateLimiter, when set, paces outbound attempts.
	RateLimiter *resilience.RateLimiter

	// Bulkhead, when set, bounds concurrent in-flight operations.
	Bulkhead *resilience.Bulkhead

	// HTTPClient is the underlying transport. Default: http.DefaultClient.
	// Attempt deadlines come from context, so the client's own Timeout
	// should stay zero.
	HTTPClient *http.Client

	// Headers are added to every request, after the defaults and the
	// credential headers, so they win on conflict.
	Headers map[string]string

	// Cache, when set, serves repeated reads of the same query from memory
	// for CacheTTL. Writes bypass it; staleness is bounded by the TTL only.
	Cache cache.Cache

	// CacheTTL is the lifetime of cached read responses. Default: 30s.
	CacheTTL time.Duration

	// Logger, Metrics, and Tracer receive telemetry. Nil values are
	// replaced with no-op implementations.
	Logger  observe.Logger
	Metrics observe.Metrics
	Tracer  observe.Tracer
}

// Client issues table operations against one instance.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Context: every operation honors cancellation and deadlines; caller
//   cancellation aborts the in-flight attempt and is never retried.
// - Errors: failures are *apierr.Error values except propagated context
//   errors.
type Client struct {
	baseURL  *url.URL
	target   string
	auth     auth.Provider
	http     *http.Client
	retryer  *resilience.Retryer
	policy   resilience.Policy
	timeout  time.Duration
	limiter  *resilience.RateLimiter
	bulkhead *resilience.Bulkhead
	headers  map[string]string
	cache    cache.Cache
	cacheTTL time.Duration
	logger   observe.Logger
	metrics  observe.Metrics
	tracer   observe.Tracer
}

// New builds a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.Instance == "" {
		return nil, ErrMissingInstance
	}

	base, err := normalizeInstance(cfg.Instance)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.NopMetrics()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = observe.NewNoopTracer()
	}

	target := base.Host
	targetLogger := logger.WithTarget(target)

	provider := cfg.Auth
	if provider == nil {
		if cfg.Credentials == nil {
			return nil, ErrMissingAuth
		}
		ac := *cfg.Credentials
		if ac.Type == "oauth" && ac.TokenURL == "" {
			ac.TokenURL = base.String() + oauthTokenPath
		}
		if ac.HTTPClient == nil {
			ac.HTTPClient = cfg.HTTPClient
		}
		if ac.OnRefresh == nil {
			ac.OnRefresh = func(refreshErr error) {
				if refreshErr != nil {
					targetLogger.Warn(context.Background(), "token refresh failed",
						observe.Field{Key: "error", Value: refreshErr.Error()},
					)
				} else {
					targetLogger.Debug(context.Background(), "token refreshed")
				}
				metrics.RecordTokenRefresh(context.Background(), refreshErr == nil)
			}
		}
		provider, err = auth.New(ac)
		if err != nil {
			return nil, err
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}

	breakers := resilience.NewBreakerGroup(cfg.Breaker)
	breakers.OnStateChange = func(target string, from, to resilience.State) {
		targetLogger.Warn(context.Background(), "breaker transition",
			observe.Field{Key: "from", Value: from.String()},
			observe.Field{Key: "to", Value: to.String()},
		)
		metrics.RecordBreakerTransition(context.Background(), target, from.String(), to.String())
	}

	policy := cfg.Retry
	if policy == (resilience.Policy{}) {
		policy = resilience.DefaultPolicy()
	}

	retryer := resilience.NewRetryer(resilience.RetryerConfig{
		Breakers: breakers,
		OnRetry: func(target string, attempt int, err *apierr.Error, delay time.Duration) {
			targetLogger.Warn(context.Background(), "retrying request",
				observe.Field{Key: "attempt", Value: attempt},
				observe.Field{Key: "code", Value: string(err.Code)},
				observe.Field{Key: "delay_ms", Value: delay.Milliseconds()},
			)
		},
	})

	return &Client{
		baseURL:  base,
		target:   target,
		auth:     provider,
		http:     httpClient,
		retryer:  retryer,
		policy:   policy,
		timeout:  timeout,
		limiter:  cfg.RateLimiter,
		bulkhead: cfg.Bulkhead,
		headers:  cfg.Headers,
		cache:    cfg.Cache,
		cacheTTL: cacheTTL,
		logger:   targetLogger,
		metrics:  metrics,
		tracer:   tracer,
	}, nil
}

// normalizeInstance turns an instance name or URL into a base URL.
func normalizeInstance(instance string) (*url.URL, error) {
	raw := strings.TrimRight(strings.TrimSpace(instance), "/")
	if raw == "" {
		return nil, ErrMissingInstance
	}

	if !strings.Contains(raw, "://") {
		if strings.Contains(raw, ".") {
			raw = "https://" + raw
		} else {
			raw = "https://" + raw + ".service-now.com"
		}
	}

	base, err := url.Parse(raw)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInstance, instance)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidInstance, base.Scheme)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	return base, nil
}

// Target returns the host the client issues requests to.
func (c *Client) Target() string {
	return c.target
}

// Breakers exposes the per-target circuit breakers, for health reporting.
func (c *Client) Breakers() *resilience.BreakerGroup {
	return c.retryer.Breakers()
}

// Get lists records from table matching params. An empty result list is a
// successful outcome, not an error.
func (c *Client) Get(ctx context.Context, table string, params Params) ([]Record, error) {
	if table == "" {
		return nil, ErrEmptyTable
	}

	meta := observe.CallMeta{Target: c.target, Operation: "list", Table: table, Method: http.MethodGet}
	data, err := c.doCached(ctx, meta, tablePath+table, params.encode())
	if err != nil {
		return nil, err
	}

	var env struct {
		Result []Record `json:"result"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, apierr.Wrap(apierr.CodeServer, "decode list response", err)
	}
	if env.Result == nil {
		env.Result = []Record{}
	}
	return env.Result, nil
}

// GetByID fetches one record by sys_id.
func (c *Client) GetByID(ctx context.Context, table, sysID string) (Record, error) {
	if table == "" {
		return nil, ErrEmptyTable
	}
	if sysID == "" {
		return nil, ErrEmptyRecordID
	}

	meta := observe.CallMeta{Target: c.target, Operation: "get", Table: table, Method: http.MethodGet}
	data, err := c.doCached(ctx, meta, tablePath+table+"/"+url.PathEscape(sysID), nil)
	if err != nil {
		return nil, err
	}
	return decodeRecord(data)
}

// Create inserts a record into table and returns the created row.
func (c *Client) Create(ctx context.Context, table string, payload Record) (Record, error) {
	if table == "" {
		return nil, ErrEmptyTable
	}
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeValidation, "encode payload", err)
	}

	meta := observe.CallMeta{Target: c.target, Operation: "create", Table: table, Method: http.MethodPost}
	data, err := c.do(ctx, meta, tablePath+table, nil, body)
	if err != nil {
		return nil, err
	}
	return decodeRecord(data)
}

// Update patches fields of an existing record and returns the updated row.
func (c *Client) Update(ctx context.Context, table, sysID string, payload Record) (Record, error) {
	if table == "" {
		return nil, ErrEmptyTable
	}
	if sysID == "" {
		return nil, ErrEmptyRecordID
	}
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeValidation, "encode payload", err)
	}

	meta := observe.CallMeta{Target: c.target, Operation: "update", Table: table, Method: http.MethodPatch}
	data, err := c.do(ctx, meta, tablePath+table+"/"+url.PathEscape(sysID), nil, body)
	if err != nil {
		return nil, err
	}
	return decodeRecord(data)
}

// Delete removes a record. A 204 response with no body is the success shape.
func (c *Client) Delete(ctx context.Context, table, sysID string) error {
	if table == "" {
		return ErrEmptyTable
	}
	if sysID == "" {
		return ErrEmptyRecordID
	}

	meta := observe.CallMeta{Target: c.target, Operation: "delete", Table: table, Method: http.MethodDelete}
	_, err := c.do(ctx, meta, tablePath+table+"/"+url.PathEscape(sysID), nil, nil)
	return err
}

// Aggregate runs a stats query against table and returns the stats object.
func (c *Client) Aggregate(ctx context.Context, table string, params Params) (Record, error) {
	if table == "" {
		return nil, ErrEmptyTable
	}

	meta := observe.CallMeta{Target: c.target, Operation: "aggregate", Table: table, Method: http.MethodGet}
	data, err := c.doCached(ctx, meta, statsPath+table, params.encode())
	if err != nil {
		return nil, err
	}

	var env struct {
		Result struct {
			Stats Record `json:"stats"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, apierr.Wrap(apierr.CodeServer, "decode aggregate response", err)
	}
	if env.Result.Stats == nil {
		env.Result.Stats = Record{}
	}
	return env.Result.Stats, nil
}

// Ping issues a minimal authenticated read to verify the instance is
// reachable and the credentials are accepted.
func (c *Client) Ping(ctx context.Context) error {
	meta := observe.CallMeta{Target: c.target, Operation: "list", Table: "sys_user", Method: http.MethodGet}
	_, err := c.do(ctx, meta, tablePath+"sys_user", url.Values{"sysparm_limit": {"1"}}, nil)
	return err
}

func decodeRecord(data []byte) (Record, error) {
	var env struct {
		Result Record `json:"result"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, apierr.Wrap(apierr.CodeServer, "decode record response", err)
	}
	return env.Result, nil
}

// doCached serves reads from the cache when one is configured, falling back
// to a real request on miss and storing the body on success.
func (c *Client) doCached(ctx context.Context, meta observe.CallMeta, path string, query url.Values) ([]byte, error) {
	if c.cache == nil {
		return c.do(ctx, meta, path, query, nil)
	}

	key := cache.ReadKey(path, query)
	if data, ok := c.cache.Get(ctx, key); ok {
		c.logger.Debug(ctx, "cache hit",
			observe.Field{Key: "operation", Value: meta.Operation},
			observe.Field{Key: "table", Value: meta.Table},
		)
		return data, nil
	}

	data, err := c.do(ctx, meta, path, query, nil)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Set(ctx, key, data, c.cacheTTL); err != nil {
		c.logger.Warn(ctx, "cache store failed",
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
	return data, nil
}

// do runs one logical operation under the resilience stack and returns the
// raw response body of the successful attempt.
func (c *Client) do(ctx context.Context, meta observe.CallMeta, path string, query url.Values, body []byte) ([]byte, error) {
	ctx, span := c.tracer.StartSpan(ctx, meta)

	rawURL := c.baseURL.String() + path
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	// Local pacing happens before the resilience stack so a rejection is
	// never classified or counted against the target's breaker.
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.tracer.EndSpan(span, err)
			return nil, err
		}
	}

	var out []byte
	run := func(ctx context.Context) error {
		return c.retryer.Do(ctx, c.target, c.policy, func(ctx context.Context) error {
			return c.attempt(ctx, meta, rawURL, body, &out)
		})
	}

	var err error
	if c.bulkhead != nil {
		err = c.bulkhead.Execute(ctx, run)
	} else {
		err = run(ctx)
	}

	c.tracer.EndSpan(span, err)
	if err != nil {
		c.logger.Error(ctx, "request failed",
			observe.Field{Key: "operation", Value: meta.Operation},
			observe.Field{Key: "table", Value: meta.Table},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return nil, err
	}
	return out, nil
}

// attempt performs one HTTP exchange under the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, meta observe.CallMeta, rawURL string, body []byte, out *[]byte) error {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, meta.Method, rawURL, reader)
	if err != nil {
		return apierr.Wrap(apierr.CodeValidation, "build request", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	headers, err := c.auth.Headers(attemptCtx)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			// The caller gave up, not the attempt deadline.
			return ctx.Err()
		}
		classified := apierr.Classify(err)
		c.metrics.RecordAttempt(ctx, c.target, meta.Method, duration, string(classified.Code))
		return classified
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		classified := apierr.Classify(err)
		c.metrics.RecordAttempt(ctx, c.target, meta.Method, duration, string(classified.Code))
		return classified
	}

	if resp.StatusCode >= 400 {
		apiErr := apierr.FromResponse(resp.StatusCode, data, resp.Header.Get("Retry-After"))
		c.metrics.RecordAttempt(ctx, c.target, meta.Method, duration, string(apiErr.Code))
		return apiErr
	}

	c.metrics.RecordAttempt(ctx, c.target, meta.Method, duration, "OK")
	c.logger.Debug(ctx, "request ok",
		observe.Field{Key: "operation", Value: meta.Operation},
		observe.Field{Key: "table", Value: meta.Table},
		observe.Field{Key: "status", Value: resp.StatusCode},
	)
	*out = data
	return nil
}
