package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records telemetry for outbound API calls.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordAttempt records one HTTP attempt with its duration and outcome
	// code ("OK" for success, otherwise the classified error code).
	RecordAttempt(ctx context.Context, target, method string, duration time.Duration, code string)

	// RecordBreakerTransition records a circuit breaker state change.
	RecordBreakerTransition(ctx context.Context, target, from, to string)

	// RecordTokenRefresh records the outcome of an OAuth token exchange.
	RecordTokenRefresh(ctx context.Context, success bool)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	attemptCount  metric.Int64Counter
	attemptErrors metric.Int64Counter
	durationHist  metric.Float64Histogram
	breakerTrans  metric.Int64Counter
	tokenRefresh  metric.Int64Counter
}

// newMetrics creates a Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	attemptCount, err := meter.Int64Counter(
		"api.attempt.total",
		metric.WithDescription("Total number of HTTP attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	attemptErrors, err := meter.Int64Counter(
		"api.attempt.errors",
		metric.WithDescription("Total number of failed HTTP attempts"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"api.attempt.duration_ms",
		metric.WithDescription("HTTP attempt duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	breakerTrans, err := meter.Int64Counter(
		"api.breaker.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	tokenRefresh, err := meter.Int64Counter(
		"api.token.refresh.total",
		metric.WithDescription("OAuth token exchanges"),
		metric.WithUnit("{refresh}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		attemptCount:  attemptCount,
		attemptErrors: attemptErrors,
		durationHist:  durationHist,
		breakerTrans:  breakerTrans,
		tokenRefresh:  tokenRefresh,
	}, nil
}

func (m *metricsImpl) RecordAttempt(ctx context.Context, target, method string, duration time.Duration, code string) {
	opt := metric.WithAttributes(
		attribute.String("target", target),
		attribute.String("method", method),
		attribute.String("code", code),
	)

	m.attemptCount.Add(ctx, 1, opt)
	if code != "OK" {
		m.attemptErrors.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordBreakerTransition(ctx context.Context, target, from, to string) {
	m.breakerTrans.Add(ctx, 1, metric.WithAttributes(
		attribute.String("target", target),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

func (m *metricsImpl) RecordTokenRefresh(ctx context.Context, success bool) {
	m.tokenRefresh.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("success", success),
	))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordAttempt(ctx context.Context, target, method string, duration time.Duration, code string) {
}
func (m *noopMetrics) RecordBreakerTransition(ctx context.Context, target, from, to string) {}
func (m *noopMetrics) RecordTokenRefresh(ctx context.Context, success bool)                 {}

// NopMetrics returns a Metrics recorder that discards everything.
func NopMetrics() Metrics {
	return &noopMetrics{}
}
