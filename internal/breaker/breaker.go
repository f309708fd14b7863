// Package breaker isolates flaky sources behind a per-source circuit breaker
// so repeated transport failures degrade one source without affecting the
// rest of the scan loop.
package breaker

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oddsflow/rosterwatch/internal/monitor"
	"github.com/oddsflow/rosterwatch/internal/telemetry"
)

// State is the circuit state for one source.
type State string

// Circuit states.
const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Config controls breaker thresholds.
type Config struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
}

const (
	defaultFailureThreshold = 3
	defaultRecoveryTimeout  = 5 * time.Minute
)

type circuit struct {
	state         State
	failures      int
	lastFailure   time.Time
	probeInFlight bool
}

// Breaker tracks per-source failure history. Allow is advisory only; late
// success/failure reports are applied idempotently.
type Breaker struct {
	mu       sync.Mutex
	circuits map[string]*circuit
	cfg      Config
	clock    monitor.Clock
	logger   *zap.Logger
}

// New constructs a Breaker.
func New(cfg Config, clock monitor.Clock, logger *zap.Logger) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = defaultRecoveryTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Breaker{
		circuits: make(map[string]*circuit),
		cfg:      cfg,
		clock:    clock,
		logger:   logger,
	}
}

// Allow reports whether the source should be attempted this cycle. An OPEN
// circuit whose recovery deadline has passed moves to HALF_OPEN and grants
// exactly one probe attempt.
func (b *Breaker) Allow(sourceID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.circuit(sourceID)
	switch c.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.clock.Now().Sub(c.lastFailure) < b.cfg.RecoveryTimeout {
			return false
		}
		b.transition(sourceID, c, StateHalfOpen)
		c.probeInFlight = true
		return true
	case StateHalfOpen:
		if c.probeInFlight {
			return false
		}
		c.probeInFlight = true
		return true
	}
	return true
}

// RecordSuccess resets the circuit. A success always closes, even if it
// arrives after the circuit opened.
func (b *Breaker) RecordSuccess(sourceID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.circuit(sourceID)
	c.failures = 0
	c.probeInFlight = false
	if c.state != StateClosed {
		b.transition(sourceID, c, StateClosed)
	}
}

// RecordFailure records an attempt outcome. Only network-class failures count
// toward the open threshold; a quiet-but-reachable source never trips the
// breaker.
func (b *Breaker) RecordFailure(sourceID string, networkClass bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := b.circuit(sourceID)
	c.probeInFlight = false
	if !networkClass {
		return
	}
	now := b.clock.Now()
	switch c.state {
	case StateHalfOpen:
		c.lastFailure = now
		b.transition(sourceID, c, StateOpen)
	case StateClosed:
		c.failures++
		c.lastFailure = now
		if c.failures >= b.cfg.FailureThreshold {
			b.transition(sourceID, c, StateOpen)
		}
	case StateOpen:
		c.lastFailure = now
	}
}

// SourceState is a point-in-time view of one circuit for introspection.
type SourceState struct {
	SourceID    string    `json:"source_id"`
	State       State     `json:"state"`
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure,omitempty"`
}

// Snapshot returns the current state of every tracked circuit.
func (b *Breaker) Snapshot() []SourceState {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]SourceState, 0, len(b.circuits))
	for id, c := range b.circuits {
		out = append(out, SourceState{
			SourceID:    id,
			State:       c.state,
			Failures:    c.failures,
			LastFailure: c.lastFailure,
		})
	}
	return out
}

func (b *Breaker) circuit(sourceID string) *circuit {
	c, ok := b.circuits[sourceID]
	if !ok {
		c = &circuit{state: StateClosed}
		b.circuits[sourceID] = c
	}
	return c
}

func (b *Breaker) transition(sourceID string, c *circuit, next State) {
	c.state = next
	telemetry.IncCircuitTransition(sourceID, string(next))
	b.logger.Info("circuit state changed",
		zap.String("source_id", sourceID),
		zap.String("state", string(next)),
		zap.Int("failures", c.failures),
	)
}
