package health

import (
	"context"
	"errors"

	"github.com/jonwraymond/ticketops/apierr"
)

// Pinger is the slice of the API client the instance checker needs.
type Pinger interface {
	// Ping issues a minimal authenticated read against the instance.
	Ping(ctx context.Context) error

	// Target returns the host being checked.
	Target() string
}

// InstanceChecker verifies the remote instance is reachable with the
// configured credentials.
type InstanceChecker struct {
	pinger Pinger
}

// NewInstanceChecker creates a checker over the given client.
func NewInstanceChecker(pinger Pinger) *InstanceChecker {
	return &InstanceChecker{pinger: pinger}
}

var _ Checker = (*InstanceChecker)(nil)

func (i *InstanceChecker) Name() string { return "instance" }

func (i *InstanceChecker) Check(ctx context.Context) Result {
	if i.pinger == nil {
		return Unhealthy("no client", ErrCheckFailed)
	}

	target := i.pinger.Target()
	details := map[string]any{"target": target}

	err := i.pinger.Ping(ctx)
	if err == nil {
		return Healthy("instance reachable").WithDetails(details)
	}

	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		details["code"] = string(apiErr.Code)
		// A rate-limited or briefly unavailable instance is impaired, not down.
		if apiErr.Code == apierr.CodeRateLimited || apiErr.Code == apierr.CodeCircuitOpen {
			return Degraded(apiErr.Message).WithDetails(details)
		}
	}

	return Unhealthy("instance unreachable", err).WithDetails(details)
}
