package dispatch

import (
	"sync"
	"time"

	"ai-orchestrator-be/pkg/apperror"

	"github.com/cenkalti/backoff/v5"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

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

type BreakerConfig struct {
	// Window is the rolling period over which the failure rate is measured.
	Window      time.Duration
	MinRequests int
	FailureRate float64
	// ConsecutiveFailures trips the circuit on its own once that many
	// failures in a row land inside Window, whatever the failure rate.
	ConsecutiveFailures int
	// Cooldown is the first open period; each failed probe multiplies it by
	// CooldownMultiplier up to MaxCooldown.
	Cooldown           time.Duration
	CooldownMultiplier float64
	MaxCooldown        time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Window:              60 * time.Second,
		MinRequests:         5,
		FailureRate:         0.5,
		ConsecutiveFailures: 5,
		Cooldown:            10 * time.Second,
		CooldownMultiplier:  2,
		MaxCooldown:         5 * time.Minute,
	}
}

// Permit is handed out by Allow and must be returned through exactly one of
// Success, Failure, Throttle or Release.
type Permit struct {
	Probe bool
}

type outcome struct {
	at     time.Time
	failed bool
}

// Breaker is the per-target circuit. Every method takes the mutex for a
// single check-and-update and never blocks while holding it.
type Breaker struct {
	mu       sync.Mutex
	target   string
	cfg      BreakerConfig
	state    State
	outcomes []outcome
	// cooldowns grows the open period across consecutive failed probes.
	cooldowns     *backoff.ExponentialBackOff
	cooldown      time.Duration
	openUntil     time.Time
	probeInFlight bool
	trips         int
	// streak is the current run of back-to-back failures, begun at streakStart.
	streak      int
	streakStart time.Time
	now           func() time.Time
}

func NewBreaker(target string, cfg BreakerConfig, now func() time.Time) *Breaker {
	if now == nil {
		now = time.Now
	}
	cooldowns := &backoff.ExponentialBackOff{
		InitialInterval:     cfg.Cooldown,
		RandomizationFactor: 0,
		Multiplier:          cfg.CooldownMultiplier,
		MaxInterval:         cfg.MaxCooldown,
	}
	cooldowns.Reset()
	return &Breaker{
		target:    target,
		cfg:       cfg,
		state:     StateClosed,
		cooldowns: cooldowns,
		now:       now,
	}
}

// Allow decides whether a call may go out now. While open it returns a
// CircuitOpen error carrying the time left until a probe is possible.
func (b *Breaker) Allow() (Permit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	switch b.state {
	case StateOpen:
		if now.Before(b.openUntil) {
			return Permit{}, apperror.CircuitOpen(b.target, b.openUntil.Sub(now))
		}
		b.state = StateHalfOpen
		b.probeInFlight = true
		return Permit{Probe: true}, nil
	case StateHalfOpen:
		if b.probeInFlight {
			return Permit{}, apperror.CircuitOpen(b.target, 0)
		}
		b.probeInFlight = true
		return Permit{Probe: true}, nil
	default:
		return Permit{}, nil
	}
}

// Success closes a half-open circuit or records a healthy call.
func (b *Breaker) Success(p Permit) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p.Probe && b.state == StateHalfOpen {
		b.state = StateClosed
		b.probeInFlight = false
		b.outcomes = nil
		b.cooldowns.Reset()
		b.cooldown = 0
		return
	}
	if b.state == StateClosed {
		b.record(false)
		b.streak = 0
	}
}

// Failure reopens a half-open circuit with a longer cooldown, or records a
// failure and trips the circuit once the window's failure rate is breached
// or enough failures arrive in a row.
func (b *Breaker) Failure(p Permit) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p.Probe && b.state == StateHalfOpen {
		b.open(max(b.cooldown, b.cooldowns.NextBackOff()))
		return
	}
	if b.state != StateClosed {
		return
	}
	now := b.now()
	b.record(true)

	if b.streak == 0 || now.Sub(b.streakStart) > b.cfg.Window {
		b.streak = 0
		b.streakStart = now
	}
	b.streak++
	if b.cfg.ConsecutiveFailures > 0 && b.streak >= b.cfg.ConsecutiveFailures {
		b.open(b.cooldowns.NextBackOff())
		return
	}

	requests, failures := b.counts()
	if requests >= b.cfg.MinRequests && float64(failures)/float64(requests) >= b.cfg.FailureRate {
		b.open(b.cooldowns.NextBackOff())
	}
}

// Throttle opens the circuit after a rate-limit response. The backend's own
// retryAfter sets the cooldown when present; otherwise the exponential schedule does.
func (b *Breaker) Throttle(p Permit, retryAfter time.Duration) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	cooldown := retryAfter
	if cooldown <= 0 {
		cooldown = b.cooldowns.NextBackOff()
	}
	b.open(cooldown)
	return cooldown
}

// Release returns a permit without judging the backend, e.g. when the caller
// gave up. A released probe lets the next caller probe instead.
func (b *Breaker) Release(p Permit) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p.Probe && b.state == StateHalfOpen {
		b.probeInFlight = false
	}
}

func (b *Breaker) open(cooldown time.Duration) {
	b.state = StateOpen
	b.cooldown = cooldown
	b.openUntil = b.now().Add(cooldown)
	b.probeInFlight = false
	b.outcomes = nil
	b.streak = 0
	b.trips++
}

func (b *Breaker) record(failed bool) {
	now := b.now()
	b.outcomes = append(b.outcomes, outcome{at: now, failed: failed})
	b.prune(now)
}

func (b *Breaker) prune(now time.Time) {
	cutoff := now.Add(-b.cfg.Window)
	i := 0
	for i < len(b.outcomes) && !b.outcomes[i].at.After(cutoff) {
		i++
	}
	b.outcomes = b.outcomes[i:]
}

func (b *Breaker) counts() (requests, failures int) {
	for _, o := range b.outcomes {
		requests++
		if o.failed {
			failures++
		}
	}
	return requests, failures
}

type BreakerSnapshot struct {
	Target    string        `json:"target"`
	State     string        `json:"state"`
	Requests  int           `json:"requests_in_window"`
	Failures  int           `json:"failures_in_window"`
	Cooldown  time.Duration `json:"cooldown"`
	OpenUntil *time.Time    `json:"open_until,omitempty"`
	Trips     int           `json:"trips"`
}

func (b *Breaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.prune(b.now())
	requests, failures := b.counts()
	snap := BreakerSnapshot{
		Target:   b.target,
		State:    b.state.String(),
		Requests: requests,
		Failures: failures,
		Cooldown: b.cooldown,
		Trips:    b.trips,
	}
	if b.state == StateOpen {
		until := b.openUntil
		snap.OpenUntil = &until
	}
	return snap
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
