package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestResultConstructors(t *testing.T) {
	cause := errors.New("boom")

	h := Healthy("ok")
	if h.Status != StatusHealthy || h.Message != "ok" || h.Timestamp.IsZero() {
		t.Errorf("Healthy() = %+v", h)
	}

	d := Degraded("slow")
	if d.Status != StatusDegraded {
		t.Errorf("Degraded() status = %v", d.Status)
	}

	u := Unhealthy("down", cause)
	if u.Status != StatusUnhealthy || !errors.Is(u.Error, cause) {
		t.Errorf("Unhealthy() = %+v", u)
	}

	withDetails := h.WithDetails(map[string]any{"k": "v"})
	if withDetails.Details["k"] != "v" {
		t.Errorf("WithDetails() = %+v", withDetails.Details)
	}
}

func TestCheckerFunc(t *testing.T) {
	checker := NewCheckerFunc("custom", func(ctx context.Context) Result {
		return Healthy("fine")
	})

	if checker.Name() != "custom" {
		t.Errorf("Name() = %q", checker.Name())
	}
	if got := checker.Check(context.Background()); got.Status != StatusHealthy {
		t.Errorf("Check() status = %v", got.Status)
	}
}
