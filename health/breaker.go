package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/ticketops/resilience"
)

// BreakerChecker derives health from the per-target circuit breakers.
//
// All breakers closed is healthy. Any open or half-open breaker degrades the
// status; when every known target is open the checker reports unhealthy.
type BreakerChecker struct {
	breakers *resilience.BreakerGroup
}

// NewBreakerChecker creates a checker over the given breaker group.
func NewBreakerChecker(breakers *resilience.BreakerGroup) *BreakerChecker {
	return &BreakerChecker{breakers: breakers}
}

var _ Checker = (*BreakerChecker)(nil)

func (b *BreakerChecker) Name() string { return "breakers" }

func (b *BreakerChecker) Check(ctx context.Context) Result {
	if b.breakers == nil {
		return Unhealthy("no breaker group", ErrCheckFailed)
	}

	snapshots := b.breakers.Snapshots()
	if len(snapshots) == 0 {
		return Healthy("no targets seen yet")
	}

	details := make(map[string]any, len(snapshots))
	open := 0
	tripped := 0
	for target, snap := range snapshots {
		details[target] = map[string]any{
			"state":                snap.State.String(),
			"consecutive_failures": snap.ConsecutiveFailures,
		}
		switch snap.State {
		case resilience.StateOpen:
			open++
			tripped++
		case resilience.StateHalfOpen:
			tripped++
		}
	}

	switch {
	case open == len(snapshots):
		return Unhealthy("all targets have open breakers", ErrCheckFailed).WithDetails(details)
	case tripped > 0:
		return Degraded(fmt.Sprintf("%d of %d targets impaired", tripped, len(snapshots))).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("all %d breakers closed", len(snapshots))).WithDetails(details)
	}
}
