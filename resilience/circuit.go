package resilience

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means calls pass through normally.
	StateClosed State = iota
	// StateOpen means calls are rejected without I/O.
	StateOpen
	// StateHalfOpen means a single probe call is testing recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit. Default: 5
	FailureThreshold int

	// FailureWindow is the rolling window within which consecutive failures
	// must accumulate to count toward the threshold. A failure arriving
	// after the window restarts the run. Default: 1 minute
	FailureWindow time.Duration

	// CoolDown is how long an open circuit rejects calls before admitting a
	// recovery probe. Default: 30 seconds
	CoolDown time.Duration

	// OnStateChange is called when the state changes.
	OnStateChange func(from, to State)
}

// Breaker is a circuit breaker for one target.
//
// Transitions: CLOSED opens after FailureThreshold consecutive failures;
// OPEN admits a single probe once CoolDown has elapsed; the probe's success
// closes the circuit, its failure re-opens it with a fresh cool-down.
type Breaker struct {
	config BreakerConfig

	mu            sync.Mutex
	state         State
	failures      int
	firstFailure  time.Time
	openedAt      time.Time
	probeInFlight bool

	now func() time.Time // test seam
}

// NewBreaker creates a circuit breaker.
func NewBreaker(config BreakerConfig) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.FailureWindow <= 0 {
		config.FailureWindow = time.Minute
	}
	if config.CoolDown <= 0 {
		config.CoolDown = 30 * time.Second
	}

	return &Breaker{
		config: config,
		state:  StateClosed,
		now:    time.Now,
	}
}

// Allow reports whether a call may proceed, returning ErrCircuitOpen when it
// may not. An open circuit whose cool-down has elapsed admits the caller as
// the half-open probe.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		if b.now().Sub(b.openedAt) < b.config.CoolDown {
			return ErrCircuitOpen
		}
		b.setStateLocked(StateHalfOpen)
		b.probeInFlight = true
		return nil

	case StateHalfOpen:
		if b.probeInFlight {
			return ErrCircuitOpen
		}
		b.probeInFlight = true
		return nil
	}

	return nil
}

// ReportSuccess records a successful call outcome.
func (b *Breaker) ReportSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0

	case StateHalfOpen:
		b.probeInFlight = false
		b.failures = 0
		b.setStateLocked(StateClosed)
	}
}

// ReportFailure records a failed call outcome.
func (b *Breaker) ReportFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()

	switch b.state {
	case StateClosed:
		if b.failures == 0 || now.Sub(b.firstFailure) > b.config.FailureWindow {
			b.failures = 0
			b.firstFailure = now
		}
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.openedAt = now
			b.setStateLocked(StateOpen)
		}

	case StateHalfOpen:
		// The probe failed: restart the cool-down.
		b.probeInFlight = false
		b.openedAt = now
		b.setStateLocked(StateOpen)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns the current breaker statistics.
func (b *Breaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BreakerSnapshot{
		State:               b.state,
		ConsecutiveFailures: b.failures,
		OpenedAt:            b.openedAt,
	}
}

func (b *Breaker) setStateLocked(state State) {
	from := b.state
	if from == state {
		return
	}
	b.state = state
	if b.config.OnStateChange != nil {
		b.config.OnStateChange(from, state)
	}
}

// BreakerSnapshot contains breaker statistics at one point in time.
type BreakerSnapshot struct {
	State               State
	ConsecutiveFailures int
	OpenedAt            time.Time
}

// BreakerGroup holds one Breaker per target, created lazily on first use.
// Breakers live for the life of the group and are never evicted.
type BreakerGroup struct {
	config BreakerConfig

	mu       sync.Mutex
	breakers map[string]*Breaker

	// OnStateChange, when set, is called with the target on every breaker
	// transition in the group.
	OnStateChange func(target string, from, to State)
}

// NewBreakerGroup creates a group sharing one configuration.
func NewBreakerGroup(config BreakerConfig) *BreakerGroup {
	return &BreakerGroup{
		config:   config,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for target, creating it if needed.
func (g *BreakerGroup) Get(target string) *Breaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	if b, ok := g.breakers[target]; ok {
		return b
	}

	config := g.config
	if g.OnStateChange != nil {
		notify := g.OnStateChange
		config.OnStateChange = func(from, to State) {
			notify(target, from, to)
		}
	}

	b := NewBreaker(config)
	g.breakers[target] = b
	return b
}

// Snapshots returns statistics for every breaker in the group.
func (g *BreakerGroup) Snapshots() map[string]BreakerSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[string]BreakerSnapshot, len(g.breakers))
	for target, b := range g.breakers {
		out[target] = b.Snapshot()
	}
	return out
}
