package circuitbreaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/querysift/querysift/types"
	"go.uber.org/zap"
)

// State is the breaker's position in the failure-isolation state
// machine.
type State int

const (
	// StateClosed allows calls through (normal operation).
	StateClosed State = iota
	// StateOpen short-circuits calls to a degraded dependency.
	StateOpen
	// StateHalfOpen probes the dependency after the reset timeout.
	StateHalfOpen
)

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

// ErrCircuitOpen is returned when the breaker refuses a call and no
// fallback was supplied.
var ErrCircuitOpen = types.NewError(types.ErrCircuitOpen, "circuit breaker open")

// Config tunes one breaker instance.
type Config struct {
	// FailureThreshold is the number of failures inside
	// MonitoringWindow that opens the circuit.
	FailureThreshold int

	// MonitoringWindow is the rolling window failures are counted over.
	MonitoringWindow time.Duration

	// ResetTimeout is how long the circuit stays open before a probe
	// call is allowed (open -> half-open).
	ResetTimeout time.Duration

	// CallTimeout bounds each protected call.
	CallTimeout time.Duration

	// OnStateChange is invoked on every transition.
	OnStateChange func(from, to State)
}

// DefaultConfig returns the default breaker configuration.
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 5,
		MonitoringWindow: 2 * time.Minute,
		ResetTimeout:     60 * time.Second,
		CallTimeout:      30 * time.Second,
	}
}

// Operation is a protected call. Fallback has the same shape and runs
// when the circuit refuses or the operation fails.
type Operation func(ctx context.Context) (any, error)

// CircuitBreaker isolates one upstream dependency class (an embedding
// API, a search transport). One instance is shared by every caller of
// that dependency: aggregate failures across requests are exactly what
// it exists to detect.
type CircuitBreaker struct {
	name   string
	config *Config
	logger *zap.Logger

	mu          sync.Mutex
	state       State
	failures    []time.Time
	lastFailure time.Time

	now func() time.Time // injected in tests
}

// New creates a breaker guarding the named dependency. A nil config
// uses defaults; non-positive fields are corrected to defaults.
func New(name string, config *Config, logger *zap.Logger) *CircuitBreaker {
	if config == nil {
		config = DefaultConfig()
	}
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.MonitoringWindow <= 0 {
		config.MonitoringWindow = 2 * time.Minute
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 60 * time.Second
	}
	if config.CallTimeout <= 0 {
		config.CallTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CircuitBreaker{
		name:   name,
		config: config,
		logger: logger.With(zap.String("component", "circuitbreaker"), zap.String("dependency", name)),
		state:  StateClosed,
		now:    time.Now,
	}
}

// Execute runs op under the breaker's protection. While the circuit is
// open and the reset timeout has not elapsed, fallback is invoked if
// non-nil, else ErrCircuitOpen is returned. A failed operation records
// a timestamped failure, possibly opens the circuit, then falls back
// if a fallback was supplied.
func (b *CircuitBreaker) Execute(ctx context.Context, op Operation, fallback Operation) (any, error) {
	if err := b.beforeCall(); err != nil {
		if fallback != nil {
			return fallback(ctx)
		}
		return nil, fmt.Errorf("%s: %w", b.name, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, b.config.CallTimeout)
	defer cancel()

	resultCh := make(chan callResult, 1)
	go func() {
		result, err := op(callCtx)
		resultCh <- callResult{result: result, err: err}
	}()

	select {
	case <-callCtx.Done():
		// Caller cancellation is not a dependency failure; only the
		// call timeout counts against the breaker.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", b.name, ctx.Err())
		}
		b.recordFailure()
		err := fmt.Errorf("%s: call timed out: %w", b.name, callCtx.Err())
		if fallback != nil {
			return fallback(ctx)
		}
		return nil, err

	case res := <-resultCh:
		if res.err != nil {
			b.recordFailure()
			if fallback != nil {
				return fallback(ctx)
			}
			return nil, res.err
		}
		b.recordSuccess()
		return res.result, nil
	}
}

type callResult struct {
	result any
	err    error
}

// beforeCall gates the call on the current state. It performs the
// open -> half-open transition when the reset timeout has elapsed.
func (b *CircuitBreaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return nil

	case StateOpen:
		if b.now().Sub(b.lastFailure) > b.config.ResetTimeout {
			b.setState(StateHalfOpen)
			b.logger.Info("probing dependency after reset timeout")
			return nil
		}
		return ErrCircuitOpen

	default:
		return fmt.Errorf("unknown breaker state: %v", b.state)
	}
}

// recordSuccess clears failure history; a half-open success closes the
// circuit.
func (b *CircuitBreaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = b.failures[:0]
	if b.state == StateHalfOpen {
		b.logger.Info("dependency recovered")
		b.setState(StateClosed)
	}
}

// recordFailure appends a timestamped failure, prunes entries older
// than the monitoring window, and opens the circuit when the threshold
// is reached. Half-open failures reopen through the same count: the
// probe failure is recorded like any other.
func (b *CircuitBreaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.lastFailure = now
	b.failures = append(b.failures, now)

	cutoff := now.Add(-b.config.MonitoringWindow)
	kept := b.failures[:0]
	for _, t := range b.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.failures = kept

	if b.state == StateHalfOpen {
		b.logger.Warn("probe failed, reopening circuit")
		b.setState(StateOpen)
		return
	}

	if b.state == StateClosed && len(b.failures) >= b.config.FailureThreshold {
		b.logger.Warn("failure threshold reached, opening circuit",
			zap.Int("failures", len(b.failures)),
			zap.Int("threshold", b.config.FailureThreshold),
		)
		b.setState(StateOpen)
	}
}

func (b *CircuitBreaker) setState(next State) {
	prev := b.state
	b.state = next
	if b.config.OnStateChange != nil && prev != next {
		go b.config.OnStateChange(prev, next)
	}
}

// State returns the current state.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Name returns the dependency name this breaker guards.
func (b *CircuitBreaker) Name() string { return b.name }

// Stats is a point-in-time snapshot of the breaker.
type Stats struct {
	Name           string    `json:"name"`
	State          string    `json:"state"`
	RecentFailures int       `json:"recent_failures"`
	LastFailure    time.Time `json:"last_failure,omitempty"`
}

// GetStats returns a snapshot of the breaker's state and failure
// history.
func (b *CircuitBreaker) GetStats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Name:           b.name,
		State:          b.state.String(),
		RecentFailures: len(b.failures),
		LastFailure:    b.lastFailure,
	}
}

// Reset manually closes the circuit and clears failure history.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev := b.state
	b.state = StateClosed
	b.failures = b.failures[:0]
	b.logger.Info("breaker reset", zap.String("from_state", prev.String()))

	if b.config.OnStateChange != nil && prev != StateClosed {
		go b.config.OnStateChange(prev, StateClosed)
	}
}
