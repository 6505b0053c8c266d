package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewBreaker_Defaults(t *testing.T) {
	b := NewBreaker(BreakerConfig{})

	if b.config.FailureThreshold != 5 {
		t.Errorf("FailureThreshold = %d, want 5", b.config.FailureThreshold)
	}
	if b.config.CoolDown != 30*time.Second {
		t.Errorf("CoolDown = %v, want 30s", b.config.CoolDown)
	}
	if b.config.FailureWindow != time.Minute {
		t.Errorf("FailureWindow = %v, want 1m", b.config.FailureWindow)
	}
	if b.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", b.State())
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 5})

	for i := 0; i < 4; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("Allow() before threshold = %v", err)
		}
		b.ReportFailure()
		if b.State() != StateClosed {
			t.Fatalf("after %d failures, state = %v, want closed", i+1, b.State())
		}
	}

	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() = %v", err)
	}
	b.ReportFailure()

	if b.State() != StateOpen {
		t.Fatalf("after 5 failures, state = %v, want open", b.State())
	}

	// The 6th call is rejected without I/O while the cool-down runs.
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Allow() while open = %v, want ErrCircuitOpen", err)
	}
}

func TestBreaker_SuccessResetsRun(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3})

	b.ReportFailure()
	b.ReportFailure()
	b.ReportSuccess()
	b.ReportFailure()
	b.ReportFailure()

	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed (success resets the failure run)", b.State())
	}
}

func TestBreaker_FailureWindowRestartsRun(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, FailureWindow: time.Minute})

	clock := time.Now()
	b.now = func() time.Time { return clock }

	b.ReportFailure()
	b.ReportFailure()

	// A failure arriving after the window starts a fresh run.
	clock = clock.Add(2 * time.Minute)
	b.ReportFailure()

	if b.State() != StateClosed {
		t.Fatalf("state = %v, want closed", b.State())
	}
	if got := b.Snapshot().ConsecutiveFailures; got != 1 {
		t.Errorf("ConsecutiveFailures = %d, want 1", got)
	}
}

func openBreaker(t *testing.T, clock *time.Time) *Breaker {
	t.Helper()
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, CoolDown: 30 * time.Second})
	b.now = func() time.Time { return *clock }
	b.ReportFailure()
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	return b
}

func TestBreaker_ProbeAfterCoolDown(t *testing.T) {
	clock := time.Now()
	b := openBreaker(t, &clock)

	// Before the cool-down elapses, calls are rejected.
	clock = clock.Add(29 * time.Second)
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Allow() before cool-down = %v, want ErrCircuitOpen", err)
	}

	// After it elapses, exactly one probe is admitted.
	clock = clock.Add(2 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() after cool-down = %v, want probe admitted", err)
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", b.State())
	}

	// A concurrent call while the probe is outstanding is rejected.
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Allow() during probe = %v, want ErrCircuitOpen", err)
	}
}

func TestBreaker_ProbeSuccessCloses(t *testing.T) {
	clock := time.Now()
	b := openBreaker(t, &clock)

	clock = clock.Add(31 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() = %v", err)
	}
	b.ReportSuccess()

	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
	if got := b.Snapshot().ConsecutiveFailures; got != 0 {
		t.Errorf("ConsecutiveFailures = %d, want 0", got)
	}
}

func TestBreaker_ProbeFailureReopensWithFreshCoolDown(t *testing.T) {
	clock := time.Now()
	b := openBreaker(t, &clock)

	clock = clock.Add(31 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow() = %v", err)
	}
	b.ReportFailure()

	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	// The cool-down restarted at the probe failure.
	clock = clock.Add(29 * time.Second)
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Allow() = %v, want ErrCircuitOpen (cool-down restarted)", err)
	}
	clock = clock.Add(2 * time.Second)
	if err := b.Allow(); err != nil {
		t.Errorf("Allow() = %v, want new probe admitted", err)
	}
}

func TestBreaker_OnStateChange(t *testing.T) {
	var mu sync.Mutex
	var transitions []string

	clock := time.Now()
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		CoolDown:         time.Second,
		OnStateChange: func(from, to State) {
			mu.Lock()
			transitions = append(transitions, from.String()+"->"+to.String())
			mu.Unlock()
		},
	})
	b.now = func() time.Time { return clock }

	b.ReportFailure()
	clock = clock.Add(2 * time.Second)
	_ = b.Allow()
	b.ReportSuccess()

	mu.Lock()
	defer mu.Unlock()

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %q, want %q", i, transitions[i], want[i])
		}
	}
}

func TestBreakerGroup_PerTargetIsolation(t *testing.T) {
	g := NewBreakerGroup(BreakerConfig{FailureThreshold: 1})

	g.Get("instance-a").ReportFailure()

	if got := g.Get("instance-a").State(); got != StateOpen {
		t.Errorf("instance-a state = %v, want open", got)
	}
	if got := g.Get("instance-b").State(); got != StateClosed {
		t.Errorf("instance-b state = %v, want closed", got)
	}
}

func TestBreakerGroup_SameBreakerPerTarget(t *testing.T) {
	g := NewBreakerGroup(BreakerConfig{})

	if g.Get("x") != g.Get("x") {
		t.Error("Get should return the same breaker for the same target")
	}
}

func TestBreakerGroup_OnStateChangeCarriesTarget(t *testing.T) {
	var mu sync.Mutex
	var gotTarget string

	g := NewBreakerGroup(BreakerConfig{FailureThreshold: 1})
	g.OnStateChange = func(target string, from, to State) {
		mu.Lock()
		gotTarget = target
		mu.Unlock()
	}

	g.Get("instance-a").ReportFailure()

	mu.Lock()
	defer mu.Unlock()
	if gotTarget != "instance-a" {
		t.Errorf("target = %q, want %q", gotTarget, "instance-a")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("State.String() = %v, want %v", got, tt.want)
			}
		})
	}
}
