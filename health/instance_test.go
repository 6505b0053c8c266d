package health

import (
	"context"
	"testing"

	"github.com/jonwraymond/ticketops/apierr"
)

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(ctx context.Context) error { return s.err }
func (s *stubPinger) Target() string                 { return "dev.example.com" }

func TestInstanceChecker(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		err  error
		want Status
	}{
		{name: "reachable", err: nil, want: StatusHealthy},
		{name: "rate limited", err: apierr.New(apierr.CodeRateLimited, "slow down"), want: StatusDegraded},
		{name: "circuit open", err: apierr.New(apierr.CodeCircuitOpen, "open"), want: StatusDegraded},
		{name: "auth failure", err: apierr.New(apierr.CodeAuthentication, "denied"), want: StatusUnhealthy},
		{name: "network failure", err: apierr.New(apierr.CodeNetwork, "unreachable"), want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewInstanceChecker(&stubPinger{err: tt.err})
			got := checker.Check(ctx)
			if got.Status != tt.want {
				t.Errorf("status = %v, want %v", got.Status, tt.want)
			}
			if got.Details["target"] != "dev.example.com" {
				t.Errorf("target detail = %v", got.Details["target"])
			}
		})
	}
}

func TestInstanceChecker_NilPinger(t *testing.T) {
	checker := NewInstanceChecker(nil)
	if got := checker.Check(context.Background()); got.Status != StatusUnhealthy {
		t.Errorf("status = %v, want unhealthy", got.Status)
	}
}
