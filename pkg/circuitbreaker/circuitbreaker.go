// Package circuitbreaker stops calling a failing optional dependency for a
// while so callers can take their fallback path without waiting on timeouts.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the current state of the circuit breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown elapses.
	StateOpen
	// StateHalfOpen lets a limited number of probe calls through.
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

// ErrOpen is returned instead of calling the dependency.
var ErrOpen = errors.New("circuit breaker is open")

// Config holds circuit breaker configuration.
type Config struct {
	// Name identifies the dependency in callbacks.
	Name string

	// FailureThreshold consecutive failures open the circuit. Default 5.
	FailureThreshold int

	// SuccessThreshold consecutive probe successes close it again. Default 2.
	SuccessThreshold int

	// Cooldown is how long the circuit stays open. Default 30s.
	Cooldown time.Duration

	// MaxProbes bounds concurrent calls while half-open. Default 1.
	MaxProbes int

	// IsFailure classifies errors. Nil counts every non-nil error except
	// context cancellation.
	IsFailure func(error) bool

	OnStateChange func(name string, from, to State)

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig returns defaults for the named dependency.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         30 * time.Second,
		MaxProbes:        1,
	}
}

// Counts holds cumulative call statistics.
type Counts struct {
	Requests             int
	Rejected             int
	TotalFailures        int
	ConsecutiveSuccesses int
	ConsecutiveFailures  int
}

// Breaker implements the circuit breaker pattern.
type Breaker struct {
	config Config

	mu       sync.Mutex
	state    State
	counts   Counts
	openedAt time.Time
	probes   int
}

// New creates a Breaker. Zero fields in config take their defaults.
func New(config Config) *Breaker {
	def := DefaultConfig(config.Name)
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = def.SuccessThreshold
	}
	if config.Cooldown <= 0 {
		config.Cooldown = def.Cooldown
	}
	if config.MaxProbes <= 0 {
		config.MaxProbes = def.MaxProbes
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Breaker{config: config}
}

// Execute runs fn unless the circuit is open, in which case it returns ErrOpen.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !b.Allow() {
		return ErrOpen
	}
	err := fn(ctx)
	b.Record(err)
	return err
}

// Allow reports whether a call may proceed. Every allowed call must be
// followed by exactly one Record.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.config.Now().Sub(b.openedAt) < b.config.Cooldown {
			b.counts.Rejected++
			return false
		}
		b.setState(StateHalfOpen)
		b.probes = 1
		return true

	case StateHalfOpen:
		if b.probes >= b.config.MaxProbes {
			b.counts.Rejected++
			return false
		}
		b.probes++
		return true

	default:
		return true
	}
}

// Record reports the outcome of an allowed call.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.counts.Requests++
	if b.state == StateHalfOpen && b.probes > 0 {
		b.probes--
	}

	if !b.isFailure(err) {
		b.counts.ConsecutiveSuccesses++
		b.counts.ConsecutiveFailures = 0
		if b.state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.config.SuccessThreshold {
			b.setState(StateClosed)
		}
		return
	}

	b.counts.TotalFailures++
	b.counts.ConsecutiveFailures++
	b.counts.ConsecutiveSuccesses = 0

	switch b.state {
	case StateClosed:
		if b.counts.ConsecutiveFailures >= b.config.FailureThreshold {
			b.open()
		}
	case StateHalfOpen:
		b.open()
	}
}

func (b *Breaker) isFailure(err error) bool {
	if err == nil {
		return false
	}
	if b.config.IsFailure != nil {
		return b.config.IsFailure(err)
	}
	return !errors.Is(err, context.Canceled)
}

func (b *Breaker) open() {
	b.openedAt = b.config.Now()
	b.setState(StateOpen)
}

// setState must be called with mu held.
func (b *Breaker) setState(next State) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	b.counts.ConsecutiveSuccesses = 0
	b.counts.ConsecutiveFailures = 0
	b.probes = 0

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.config.Name, prev, next)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Counts returns a snapshot of the statistics.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Name returns the dependency name.
func (b *Breaker) Name() string {
	return b.config.Name
}
