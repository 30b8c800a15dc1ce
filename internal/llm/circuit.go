package llm

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// circuitBreaker trips after a run of consecutive failures and refuses
// further calls until resetAfter has elapsed, grounded on the teacher's
// internal/core/embeddings.CircuitBreaker (same threshold/openUntil
// shape, trimmed to one provider instead of a per-provider registry).
type circuitBreaker struct {
	threshold  int
	resetAfter time.Duration

	mu                  sync.Mutex
	consecutiveFailures int
	openUntil           time.Time
	logger              *zerolog.Logger
}

func newCircuitBreaker(threshold int, resetAfter time.Duration, logger *zerolog.Logger) *circuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}

	if resetAfter <= 0 {
		resetAfter = time.Minute
	}

	return &circuitBreaker{threshold: threshold, resetAfter: resetAfter, logger: logger}
}

func (cb *circuitBreaker) check() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if time.Now().Before(cb.openUntil) {
		return fmt.Errorf("%w until %v", ErrCircuitBreakerOpen, cb.openUntil)
	}

	return nil
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures++

	if cb.consecutiveFailures >= cb.threshold {
		cb.openUntil = time.Now().Add(cb.resetAfter)

		if cb.logger != nil {
			cb.logger.Warn().
				Int("consecutive_failures", cb.consecutiveFailures).
				Time("open_until", cb.openUntil).
				Msg("llm circuit breaker opened")
		}
	}
}
