package resilience

import (
	"context"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/jonwraymond/ticketops/apierr"
)

// Policy configures retry behavior for one logical operation.
type Policy struct {
	// MaxAttempts is the number of retries allowed after the initial
	// attempt; an operation is invoked at most MaxAttempts+1 times.
	// Default: 3
	MaxAttempts int

	// BaseDelay is the backoff for the first retry. Default: 1s
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff. Default: 30s
	MaxDelay time.Duration
}

// DefaultPolicy returns the default retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts < 0 {
		p.MaxAttempts = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	return p
}

// RetryerConfig configures a Retryer.
type RetryerConfig struct {
	// Breakers supplies the per-target circuit breakers the Retryer consults
	// before every attempt. Required.
	Breakers *BreakerGroup

	// OnRetry is called before each retry wait. Intended for logging.
	OnRetry func(target string, attempt int, err *apierr.Error, delay time.Duration)
}

// Retryer wraps one logical operation with classification-aware retries.
//
// Every attempt, not only the first, asks the target's breaker for
// permission, so a target that opens mid-sequence stops consuming attempts.
// Each outcome is reported back to the breaker. The error returned after
// exhausted retries is exactly the last classified failure, unwrapped.
type Retryer struct {
	breakers *BreakerGroup
	onRetry  func(target string, attempt int, err *apierr.Error, delay time.Duration)

	now   func() time.Time             // test seam
	sleep func(context.Context, time.Duration) error // test seam
}

// NewRetryer creates a Retryer. A nil Breakers group gets a default one.
func NewRetryer(config RetryerConfig) *Retryer {
	breakers := config.Breakers
	if breakers == nil {
		breakers = NewBreakerGroup(BreakerConfig{})
	}

	return &Retryer{
		breakers: breakers,
		onRetry:  config.OnRetry,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Breakers returns the breaker group the Retryer consults.
func (r *Retryer) Breakers() *BreakerGroup {
	return r.breakers
}

// Do runs op under policy against the named target.
//
// Cancellation is never retried and propagates as the context's own error,
// not as a classified failure. A breaker rejection is terminal for the whole
// sequence and surfaces as CIRCUIT_OPEN without performing I/O.
func (r *Retryer) Do(ctx context.Context, target string, policy Policy, op func(context.Context) error) error {
	policy = policy.withDefaults()
	breaker := r.breakers.Get(target)

	for attempt := 0; ; attempt++ {
		if err := breaker.Allow(); err != nil {
			return apierr.Wrap(apierr.CodeCircuitOpen, "circuit open for "+target, err)
		}

		err := op(ctx)
		if err == nil {
			breaker.ReportSuccess()
			return nil
		}

		if apierr.IsCancellation(err) || ctx.Err() != nil {
			// The caller gave up; the target is not to blame and the
			// breaker is not updated.
			return ctx.Err()
		}

		classified := apierr.Classify(err)
		breaker.ReportFailure()

		if attempt >= policy.MaxAttempts || !classified.Retryable() {
			return classified
		}

		delay := r.delayFor(classified, policy, attempt)
		if r.onRetry != nil {
			r.onRetry(target, attempt, classified, delay)
		}

		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// delayFor computes the wait before retrying attempt n.
//
// A parseable Retry-After value is used verbatim. Otherwise the wait is
// capped exponential backoff with full jitter: uniform in [0, delay], so
// many callers retrying the same transient condition decorrelate.
func (r *Retryer) delayFor(err *apierr.Error, policy Policy, attempt int) time.Duration {
	if d, ok := parseRetryAfter(err.RetryAfter, r.now()); ok {
		return d
	}

	delay := backoffDelay(policy, attempt)
	if delay <= 0 {
		return 0
	}
	// #nosec G404 -- jitter is non-cryptographic timing variance.
	return time.Duration(rand.Int64N(int64(delay) + 1))
}

// backoffDelay returns min(BaseDelay * 2^attempt, MaxDelay) without overflow.
func backoffDelay(policy Policy, attempt int) time.Duration {
	delay := policy.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= policy.MaxDelay || delay < 0 {
			return policy.MaxDelay
		}
	}
	if delay > policy.MaxDelay {
		return policy.MaxDelay
	}
	return delay
}

// parseRetryAfter interprets a Retry-After header value as either an integer
// count of seconds or an HTTP date. A date in the past yields zero, never a
// negative duration.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}

	if at, err := http.ParseTime(value); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}

	return 0, false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
