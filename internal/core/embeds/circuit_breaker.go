package embeds

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// circuitState represents the state of a circuit breaker
type circuitState int

const (
	stateClosed   circuitState = iota // Normal operation
	stateOpen                         // Embedder failing, requests skipped
	stateHalfOpen                     // One retry allowed
)

func (s circuitState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// circuitBreaker tracks consecutive failures per embedder and stops calling
// embedders whose upstream keeps failing.
type circuitBreaker struct {
	failures         map[string]int
	lastFailure      map[string]time.Time
	state            map[string]circuitState
	lastStateLog     map[string]time.Time
	logger           *slog.Logger
	now              func() time.Time
	failureThreshold int
	openDuration     time.Duration
	mu               sync.Mutex
}

// newCircuitBreaker creates a circuit breaker with default settings
func newCircuitBreaker(logger *slog.Logger) *circuitBreaker {
	return &circuitBreaker{
		failureThreshold: 3,               // Open after 3 consecutive failures
		openDuration:     5 * time.Minute, // Keep open for 5 minutes
		failures:         make(map[string]int),
		lastFailure:      make(map[string]time.Time),
		state:            make(map[string]circuitState),
		lastStateLog:     make(map[string]time.Time),
		logger:           logger,
		now:              time.Now,
	}
}

// canAttempt returns nil if the embedder may be called, or an error
// wrapping ErrCircuitOpen while its circuit is open.
func (cb *circuitBreaker) canAttempt(name string) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.getState(name) != stateOpen {
		return nil
	}

	lastFail := cb.lastFailure[name]
	if cb.now().Sub(lastFail) > cb.openDuration {
		cb.state[name] = stateHalfOpen
		cb.logStateChange(name, stateHalfOpen)
		return nil
	}

	return fmt.Errorf("%w for embedder '%s' (failures: %d, next retry: %s)",
		ErrCircuitOpen,
		name,
		cb.failures[name],
		lastFail.Add(cb.openDuration).Format("15:04:05"),
	)
}

// recordSuccess resets the failure count for an embedder
func (cb *circuitBreaker) recordSuccess(name string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := cb.getState(name)

	delete(cb.failures, name)
	delete(cb.lastFailure, name)
	cb.state[name] = stateClosed

	if oldState != stateClosed {
		cb.logStateChange(name, stateClosed)
	}
}

// recordFailure records a failed fetch
func (cb *circuitBreaker) recordFailure(name string, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures[name]++
	cb.lastFailure[name] = cb.now()
	failCount := cb.failures[name]

	if failCount < cb.failureThreshold {
		cb.logger.Debug("[EMBED-CIRCUIT] Embedder failure",
			"embedder", name, "failures", failCount, "threshold", cb.failureThreshold, "error", err)
		return
	}

	oldState := cb.getState(name)
	cb.state[name] = stateOpen
	if oldState != stateOpen {
		cb.logger.Warn("[EMBED-CIRCUIT] Opening circuit after consecutive failures",
			"embedder", name, "failures", failCount, "error", err)
		cb.lastStateLog[name] = cb.now()
	}
}

// getState returns the current state (must be called with lock held)
func (cb *circuitBreaker) getState(name string) circuitState {
	if state, exists := cb.state[name]; exists {
		return state
	}
	return stateClosed
}

// logStateChange logs state transitions (must be called with lock held)
// Debounced to once per minute per embedder
func (cb *circuitBreaker) logStateChange(name string, newState circuitState) {
	lastLog, exists := cb.lastStateLog[name]
	if exists && cb.now().Sub(lastLog) < time.Minute {
		return
	}
	cb.logger.Info("[EMBED-CIRCUIT] Circuit state changed", "embedder", name, "state", newState.String())
	cb.lastStateLog[name] = cb.now()
}

// BreakerStats is a snapshot of one embedder's circuit.
type BreakerStats struct {
	LastFailure time.Time `json:"lastFailure,omitempty"`
	State       string    `json:"state"`
	Failures    int       `json:"failures"`
}

// stats returns the circuit state of every embedder with recorded activity
func (cb *circuitBreaker) stats() map[string]BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	out := make(map[string]BreakerStats, len(cb.state))
	for name := range cb.state {
		out[name] = BreakerStats{}
	}
	for name := range cb.failures {
		out[name] = BreakerStats{}
	}
	for name := range out {
		out[name] = BreakerStats{
			State:       cb.getState(name).String(),
			Failures:    cb.failures[name],
			LastFailure: cb.lastFailure[name],
		}
	}
	return out
}
