package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func staticChecker(result Result) Checker {
	return NewCheckerFunc("static", func(ctx context.Context) Result { return result })
}

func TestAggregator_CheckAll(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	agg.Register("a", staticChecker(Healthy("ok")))
	agg.Register("b", staticChecker(Degraded("slow")))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results["a"].Status != StatusHealthy {
		t.Errorf("a = %v", results["a"].Status)
	}
	if results["b"].Status != StatusDegraded {
		t.Errorf("b = %v", results["b"].Status)
	}
}

func TestAggregator_CheckNamed(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	agg.Register("a", staticChecker(Healthy("ok")))

	if _, err := agg.Check(context.Background(), "missing"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check(missing) err = %v", err)
	}

	result, err := agg.Check(context.Background(), "a")
	if err != nil {
		t.Fatalf("Check(a): %v", err)
	}
	if result.Status != StatusHealthy {
		t.Errorf("status = %v", result.Status)
	}
}

func TestAggregator_StuckCheckerTimesOut(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	agg.Register("stuck", NewCheckerFunc("stuck", func(ctx context.Context) Result {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond) // keeps running past the deadline
		return Healthy("late")
	}))

	results := agg.CheckAll(context.Background())
	stuck := results["stuck"]
	if stuck.Status != StatusUnhealthy {
		t.Errorf("status = %v, want unhealthy", stuck.Status)
	}
	if !errors.Is(stuck.Error, ErrCheckTimeout) {
		t.Errorf("error = %v, want %v", stuck.Error, ErrCheckTimeout)
	}
}

func TestAggregator_RegistrationLifecycle(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	agg.Register("a", staticChecker(Healthy("ok")))
	agg.Register("b", staticChecker(Healthy("ok")))
	agg.Unregister("a")

	names := agg.CheckerNames()
	if len(names) != 1 || names[0] != "b" {
		t.Errorf("names = %v, want [b]", names)
	}
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{name: "empty", results: nil, want: StatusHealthy},
		{
			name:    "all healthy",
			results: map[string]Result{"a": Healthy(""), "b": Healthy("")},
			want:    StatusHealthy,
		},
		{
			name:    "one degraded",
			results: map[string]Result{"a": Healthy(""), "b": Degraded("")},
			want:    StatusDegraded,
		},
		{
			name:    "unhealthy wins",
			results: map[string]Result{"a": Degraded(""), "b": Unhealthy("", nil)},
			want:    StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverallStatus(tt.results); got != tt.want {
				t.Errorf("OverallStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}
