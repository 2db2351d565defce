// Package circuitbreaker guards an upstream so that, once it has failed
// repeatedly, widget fetches take their fallback without waiting out the
// client timeout.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by Call while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker open")

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// State is the breaker state (Closed, Open, HalfOpen).
type State int

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config holds breaker parameters.
type Config struct {
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold int
	// Cooldown is how long the breaker stays open before one probe call.
	Cooldown time.Duration
	// Upstream names the guarded service in state change callbacks.
	Upstream string
	// OnStateChange, when set, is called outside the lock.
	OnStateChange func(upstream string, from, to State)
}

// Breaker is a consecutive-failure circuit breaker. Half-open admits a
// single probe; its outcome closes or reopens the breaker.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failures  int
	openedAt  time.Time
	probing   bool
	threshold int
	cooldown  time.Duration
	upstream  string
	onChange  func(upstream string, from, to State)
	now       func() time.Time
}

// New returns a closed Breaker.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Breaker{
		state:     StateClosed,
		threshold: cfg.FailureThreshold,
		cooldown:  cfg.Cooldown,
		upstream:  cfg.Upstream,
		onChange:  cfg.OnStateChange,
		now:       time.Now,
	}
}

// Call runs fn unless the breaker is open. Caller cancellation does not
// count as an upstream failure.
func (b *Breaker) Call(ctx context.Context, fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}
	err := fn()
	b.record(err != nil && !errors.Is(err, context.Canceled))
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	from := b.state
	switch from {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return ErrOpen
		}
		b.state, b.probing = StateHalfOpen, true
	case StateHalfOpen:
		if b.probing {
			b.mu.Unlock()
			return ErrOpen
		}
		b.probing = true
	}
	to := b.state
	b.mu.Unlock()
	b.notify(from, to)
	return nil
}

func (b *Breaker) record(failed bool) {
	b.mu.Lock()
	from := b.state
	b.probing = false
	switch {
	case failed && (from == StateHalfOpen || b.failures+1 >= b.threshold):
		b.state, b.failures, b.openedAt = StateOpen, 0, b.now()
	case failed:
		b.failures++
	default:
		b.state, b.failures = StateClosed, 0
	}
	to := b.state
	b.mu.Unlock()
	b.notify(from, to)
}

func (b *Breaker) notify(from, to State) {
	if from != to && b.onChange != nil {
		b.onChange(b.upstream, from, to)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
