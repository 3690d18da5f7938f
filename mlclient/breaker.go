package mlclient

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by Breaker.Call while calls are blocked.
var ErrBreakerOpen = errors.New("circuit breaker open")

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	// StateClosed lets calls through.
	StateClosed BreakerState = iota
	// StateOpen blocks calls until the cooldown passes.
	StateOpen
	// StateHalfOpen lets a trial call through.
	StateHalfOpen
)

func (s BreakerState) String() string {
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

// Breaker stops calling the forecasting service after threshold consecutive
// failures and retries once cooldown has elapsed.
type Breaker struct {
	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	threshold   int
	cooldown    time.Duration
	state       BreakerState
	now         func() time.Time
}

// NewBreaker creates a closed breaker. threshold <= 0 disables tripping.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		state:     StateClosed,
		now:       time.Now,
	}
}

// Allow reports whether a call may go through now. An open breaker whose
// cooldown has elapsed moves to half-open and allows a trial call.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.allowLocked()
}

func (b *Breaker) allowLocked() bool {
	if b.state == StateOpen && b.now().Sub(b.lastFailure) >= b.cooldown {
		b.state = StateHalfOpen
	}
	return b.state != StateOpen
}

// Call runs fn unless the breaker is open.
func (b *Breaker) Call(fn func() error) error {
	b.mu.Lock()
	if !b.allowLocked() {
		b.mu.Unlock()
		return ErrBreakerOpen
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		b.lastFailure = b.now()
		if b.state == StateHalfOpen || (b.threshold > 0 && b.failures >= b.threshold) {
			b.state = StateOpen
		}
		return err
	}

	b.failures = 0
	b.state = StateClosed
	return nil
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset closes the breaker and clears the failure count.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.state = StateClosed
	b.lastFailure = time.Time{}
}
