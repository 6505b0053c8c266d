// Package health reports the operational state of the API access layer.
//
// A Checker is any component that can report its health status: Healthy,
// Degraded, or Unhealthy. Two domain checkers are provided: BreakerChecker
// derives status from the per-target circuit breakers, and InstanceChecker
// performs a lightweight authenticated ping of the remote instance.
//
// An Aggregator runs a set of checkers concurrently under a shared timeout
// and folds their results into one overall status:
//
//	agg := health.NewAggregator(health.AggregatorConfig{Timeout: 5 * time.Second})
//	agg.Register("breakers", health.NewBreakerChecker(c.Breakers()))
//	agg.Register("instance", health.NewInstanceChecker(c))
//
//	results := agg.CheckAll(ctx)
//	overall := OverallStatus(results)
package health
