package analysis

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"
)

// CircuitBreaker trips after a run of consecutive upstream failures and
// rejects analysis attempts until a cooldown elapses. Reset is lazy: the
// breaker closes on the first IsOpen check after the cooldown, not on a
// background timer.
type CircuitBreaker struct {
	mu        sync.Mutex
	logger    arbor.ILogger
	threshold int
	cooldown  time.Duration
	failures  int
	openedAt  time.Time
	open      bool

	// now is swapped in tests to drive the cooldown clock.
	now func() time.Time
}

// NewCircuitBreaker creates a breaker that opens after threshold
// consecutive failures and stays open for cooldown.
func NewCircuitBreaker(threshold int, cooldown time.Duration, logger arbor.ILogger) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	return &CircuitBreaker{
		logger:    logger,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// IsOpen reports whether the breaker currently rejects attempts. An open
// breaker whose cooldown has elapsed closes here and resets its failure
// count.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.open {
		return false
	}

	if cb.now().Sub(cb.openedAt) >= cb.cooldown {
		cb.open = false
		cb.failures = 0
		cb.logger.Info().Msg("Circuit breaker cooldown elapsed, closing")
		return false
	}
	return true
}

// RetryAfter returns the remaining cooldown in whole seconds, rounded up.
// Zero when the breaker is closed.
func (cb *CircuitBreaker) RetryAfter() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.open {
		return 0
	}
	remaining := cb.cooldown - cb.now().Sub(cb.openedAt)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Second - 1) / time.Second)
}

// RecordFailure counts one upstream failure, opening the breaker when the
// consecutive-failure threshold is reached.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	if !cb.open && cb.failures >= cb.threshold {
		cb.open = true
		cb.openedAt = cb.now()
		cb.logger.Warn().
			Int("failures", cb.failures).
			Dur("cooldown", cb.cooldown).
			Msg("Circuit breaker opened")
	}
}

// RecordSuccess resets the consecutive-failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.open = false
}
