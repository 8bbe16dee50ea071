// Package resilience sheds load when planning requests pile up or keep failing.
package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrOpen is returned while the breaker is rejecting work after
	// repeated failures.
	ErrOpen = errors.New("resilience: circuit open")

	// ErrBusy is returned when the concurrency limit is reached.
	ErrBusy = errors.New("resilience: too many concurrent operations")
)

// State represents the state of a circuit breaker.
type State int

const (
	Closed   State = iota // Normal operation
	Open                  // Rejecting requests
	HalfOpen              // Letting one probe through
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker bounds concurrent operations and trips after consecutive
// failures. Once the cooldown passes a single probe is admitted; its
// outcome closes or re-opens the circuit.
type Breaker struct {
	mu sync.Mutex

	maxConcurrent int
	maxFailures   int
	cooldown      time.Duration

	state    State
	failures int
	tripTime time.Time
	inFlight int
	probing  bool
	now      func() time.Time

	OnTrip  func(reason string)
	OnReset func()
}

// NewBreaker creates a breaker with sensible defaults.
func NewBreaker() *Breaker {
	return &Breaker{
		maxConcurrent: 8,
		maxFailures:   5,
		cooldown:      30 * time.Second,
		state:         Closed,
		now:           time.Now,
	}
}

// WithMaxConcurrent sets the maximum concurrent operations.
func (b *Breaker) WithMaxConcurrent(n int) *Breaker {
	b.maxConcurrent = n
	return b
}

// WithMaxFailures sets how many consecutive failures trip the breaker.
func (b *Breaker) WithMaxFailures(n int) *Breaker {
	b.maxFailures = n
	return b
}

// WithCooldown sets the cooldown period after tripping.
func (b *Breaker) WithCooldown(d time.Duration) *Breaker {
	b.cooldown = d
	return b
}

// Acquire reserves a slot for one operation. Every successful Acquire must
// be paired with one Release.
func (b *Breaker) Acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.tripTime) < b.cooldown {
			return ErrOpen
		}
		b.state = HalfOpen
		fallthrough
	case HalfOpen:
		if b.probing {
			return ErrOpen
		}
		b.probing = true
	}

	if b.maxConcurrent > 0 && b.inFlight >= b.maxConcurrent {
		if b.state == HalfOpen {
			b.probing = false
		}
		return ErrBusy
	}
	b.inFlight++
	return nil
}

// Release ends an operation started with Acquire.
func (b *Breaker) Release(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.inFlight--

	if b.state == HalfOpen && b.probing {
		b.probing = false
		if success {
			b.reset()
		} else {
			b.trip("probe failed")
		}
		return
	}

	if success {
		b.failures = 0
		return
	}
	b.failures++
	if b.maxFailures > 0 && b.failures >= b.maxFailures && b.state == Closed {
		b.trip("consecutive failures")
	}
}

// Do runs fn under the breaker. fn's error counts as a failure.
func (b *Breaker) Do(fn func() error) error {
	if err := b.Acquire(); err != nil {
		return err
	}
	err := fn()
	b.Release(err == nil)
	return err
}

// State returns the current circuit state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// called with mu held
func (b *Breaker) trip(reason string) {
	b.state = Open
	b.tripTime = b.now()
	if b.OnTrip != nil {
		go b.OnTrip(reason)
	}
}

// called with mu held
func (b *Breaker) reset() {
	b.state = Closed
	b.failures = 0
	if b.OnReset != nil {
		go b.OnReset()
	}
}
