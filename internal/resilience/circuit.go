package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrCircuitOpen is returned when work is refused because the breaker is
// open. Callers should back off rather than retry immediately.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// Breaker is a consecutive-failure circuit breaker. After Threshold
// consecutive failures it refuses work until either a cool-off period has
// elapsed (allowing a single probe) or Reset is called. Any success clears
// the failure counter and closes the breaker.
type Breaker struct {
	threshold int
	cooloff   time.Duration

	mu           sync.Mutex
	failures     int
	openedAt     time.Time
	probeInFlight bool

	nowFunc func() time.Time
}

// NewBreaker creates a breaker that opens after threshold consecutive
// failures and allows a probe after cooloff. Non-positive arguments fall
// back to 5 failures / 30s.
func NewBreaker(threshold int, cooloff time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooloff <= 0 {
		cooloff = 30 * time.Second
	}
	return &Breaker{threshold: threshold, cooloff: cooloff, nowFunc: time.Now}
}

// Allow reports whether a new unit of work may start. Returns ErrCircuitOpen
// while the breaker is open and the cool-off has not elapsed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return nil
	}
	if b.nowFunc().Sub(b.openedAt) >= b.cooloff && !b.probeInFlight {
		// One probe through the open breaker.
		b.probeInFlight = true
		return nil
	}
	return ErrCircuitOpen
}

// Success records a successful unit of work and closes the breaker.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probeInFlight = false
}

// Failure records a failed unit of work; opens the breaker when the
// threshold is reached.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.probeInFlight = false
	if b.failures == b.threshold {
		b.openedAt = b.nowFunc()
	}
}

// Open reports whether the breaker is currently refusing work.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures >= b.threshold && b.nowFunc().Sub(b.openedAt) < b.cooloff
}

// Failures returns the current consecutive-failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset clears the breaker for manual recovery or tests.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probeInFlight = false
}

// WithNow injects a clock for tests.
func (b *Breaker) WithNow(now func() time.Time) *Breaker {
	b.nowFunc = now
	return b
}
