// Package resilience guards backend calls with a circuit breaker.
package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// ErrOpen is returned by Do while the breaker rejects calls.
var ErrOpen = errors.New("circuit breaker open")

var breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "rule_resolver_circuit_breaker_state",
	Help: "Circuit breaker state (0 closed, 1 open, 2 half-open)",
}, []string{"breaker"})

// State represents the state of the circuit breaker.
type State int

const (
	// Closed lets calls through.
	Closed State = iota

	// Open rejects calls immediately.
	Open

	// HalfOpen lets a limited number of probe calls through.
	HalfOpen
)

// String returns the string representation of the state.
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

// Config holds circuit breaker settings.
type Config struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before probing.
	ResetTimeout time.Duration

	// HalfOpenMaxCalls is the number of successful probes needed to close again.
	HalfOpenMaxCalls int
}

// DefaultConfig returns the default breaker configuration.
func DefaultConfig() Config {
	return Config{
		MaxFailures:      5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// Breaker implements the circuit breaker pattern. A rejected call is reported
// as ErrOpen and is never retried by the breaker.
type Breaker struct {
	mu              sync.Mutex
	name            string
	state           State
	failureCount    int
	successCount    int
	inFlightProbes  int
	generation      uint64
	lastFailureTime time.Time
	config          Config
	logger          *zerolog.Logger
	now             func() time.Time
}

// New creates a closed breaker.
func New(name string, config Config, logger *zerolog.Logger) *Breaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = DefaultConfig().MaxFailures
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = DefaultConfig().ResetTimeout
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = DefaultConfig().HalfOpenMaxCalls
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	breakerState.WithLabelValues(name).Set(float64(Closed))
	return &Breaker{
		name:   name,
		state:  Closed,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Do runs fn if the breaker allows it and records the outcome.
// Errors for which countable returns false are neutral: they neither count
// as failures nor as successes. Outcomes of calls admitted before the last
// state change are ignored.
func (b *Breaker) Do(fn func() error, countable func(error) bool) error {
	gen, ok := b.allow()
	if !ok {
		return ErrOpen
	}

	err := fn()
	switch {
	case err == nil:
		b.recordSuccess(gen)
	case countable == nil || countable(err):
		b.recordFailure(gen, err)
	default:
		b.recordNeutral(gen)
	}
	return err
}

// allow reports whether a call may proceed and the generation it was admitted in.
func (b *Breaker) allow() (uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return b.generation, true
	case Open:
		if b.now().Sub(b.lastFailureTime) < b.config.ResetTimeout {
			return 0, false
		}
		b.transitionTo(HalfOpen)
		b.logger.Info().Str("circuit_breaker", b.name).Msg("Circuit breaker half-open, probing backend")
		fallthrough
	case HalfOpen:
		if b.inFlightProbes >= b.config.HalfOpenMaxCalls {
			return 0, false
		}
		b.inFlightProbes++
		return b.generation, true
	}
	return 0, false
}

func (b *Breaker) recordSuccess(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.generation {
		return
	}
	switch b.state {
	case Closed:
		b.failureCount = 0
	case HalfOpen:
		b.inFlightProbes--
		b.successCount++
		if b.successCount >= b.config.HalfOpenMaxCalls {
			b.transitionTo(Closed)
			b.logger.Info().Str("circuit_breaker", b.name).Msg("Circuit breaker closed after successful probe")
		}
	}
}

// recordNeutral releases a probe slot without judging the backend.
func (b *Breaker) recordNeutral(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gen == b.generation && b.state == HalfOpen {
		b.inFlightProbes--
	}
}

func (b *Breaker) recordFailure(gen uint64, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.generation {
		return
	}
	b.failureCount++
	b.lastFailureTime = b.now()

	switch b.state {
	case Closed:
		if b.failureCount >= b.config.MaxFailures {
			b.transitionTo(Open)
			b.logger.Warn().
				Err(err).
				Str("circuit_breaker", b.name).
				Int("failure_count", b.failureCount).
				Dur("reset_timeout", b.config.ResetTimeout).
				Msg("Circuit breaker opening after max failures")
		}
	case HalfOpen:
		b.transitionTo(Open)
		b.logger.Warn().Err(err).Str("circuit_breaker", b.name).Msg("Circuit breaker re-opening after failed probe")
	}
}

func (b *Breaker) transitionTo(s State) {
	b.state = s
	b.generation++
	b.successCount = 0
	b.inFlightProbes = 0
	if s == Closed {
		b.failureCount = 0
	}
	breakerState.WithLabelValues(b.name).Set(float64(s))
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
