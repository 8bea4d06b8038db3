// Package circuit implements the circuit breaker guarding calls to an
// upstream dependency: repeated failures open the circuit, a recovery
// timeout lets a limited number of probe calls through, and a probe
// success closes it again.
package circuit

import (
	"errors"
	"sync"
	"time"
)

// Circuit breaker states
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// ErrCircuitOpen is returned by Execute-style helpers when the breaker
// refuses a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config configures a circuit breaker.
type Config struct {
	// Name identifies the guarded dependency.
	Name string

	// FailureThreshold is the number of consecutive failures before opening.
	FailureThreshold int

	// RecoveryTimeout is how long after the last failure the breaker
	// stays open before allowing probe calls.
	RecoveryTimeout time.Duration

	// HalfOpenMaxCalls is how many probe calls may proceed while
	// half-open before further calls are refused.
	HalfOpenMaxCalls int

	// OnStateChange is called when the state changes.
	OnStateChange func(name, from, to string)
}

// Breaker is a mutex-guarded circuit breaker. It is the one component
// shared across goroutines (turn loop and summarization both record
// outcomes on the same breaker).
type Breaker struct {
	config Config

	mu            sync.Mutex
	state         string
	failures      int
	lastFailure   time.Time
	halfOpenCalls int
}

// New creates a breaker with the given config, applying defaults for
// unset fields.
func New(config Config) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 60 * time.Second
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 1
	}

	return &Breaker{
		config: config,
		state:  StateClosed,
	}
}

// Name returns the name of the guarded dependency.
func (b *Breaker) Name() string {
	return b.config.Name
}

// Allow reports whether a call may proceed. While half-open each
// permitted call consumes one probe slot; the caller must follow up with
// RecordSuccess or RecordFailure.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh()

	switch b.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if b.halfOpenCalls >= b.config.HalfOpenMaxCalls {
			return false
		}
		b.halfOpenCalls++
		return true
	default:
		return false
	}
}

// RecordSuccess notes a successful call. Any success clears the failure
// count; a half-open success closes the circuit.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.transitionTo(StateClosed)
	case StateClosed:
		b.failures = 0
	}
}

// RecordFailure notes a failed call. A half-open failure reopens the
// circuit immediately; in closed state the circuit opens once the
// consecutive failure count reaches the threshold.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = time.Now()

	switch b.state {
	case StateHalfOpen:
		b.transitionTo(StateOpen)
	case StateClosed:
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.transitionTo(StateOpen)
		}
	}
}

// Reset forces the breaker back to closed from any state.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateClosed {
		b.transitionTo(StateClosed)
	}
	b.failures = 0
	b.halfOpenCalls = 0
}

// State returns the current state, applying the open-to-half-open
// transition if the recovery timeout has elapsed.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh()
	return b.state
}

// refresh moves an expired open circuit to half-open. The recovery
// timeout is measured from the last recorded failure. Callers must hold mu.
func (b *Breaker) refresh() {
	if b.state == StateOpen && time.Since(b.lastFailure) >= b.config.RecoveryTimeout {
		b.transitionTo(StateHalfOpen)
	}
}

// transitionTo changes state and resets per-state counters. Callers must
// hold mu.
func (b *Breaker) transitionTo(newState string) {
	oldState := b.state
	b.state = newState
	b.halfOpenCalls = 0
	if newState == StateClosed {
		b.failures = 0
	}

	if b.config.OnStateChange != nil && oldState != newState {
		// Call asynchronously to avoid blocking under the lock
		go b.config.OnStateChange(b.config.Name, oldState, newState)
	}
}

// Stats is a consistent snapshot of breaker state.
type Stats struct {
	Name          string
	State         string
	Failures      int
	LastFailure   time.Time
	HalfOpenCalls int
}

// Stats returns a snapshot of the breaker.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh()
	return Stats{
		Name:          b.config.Name,
		State:         b.state,
		Failures:      b.failures,
		LastFailure:   b.lastFailure,
		HalfOpenCalls: b.halfOpenCalls,
	}
}

// Registry manages one breaker per named dependency. Construct one per
// session; sharing is explicit, never ambient.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	defaults Config
}

// NewRegistry creates a registry whose breakers default to the given config.
func NewRegistry(defaults Config) *Registry {
	return &Registry{
		breakers: make(map[string]*Breaker),
		defaults: defaults,
	}
}

// Get returns the breaker for name, creating it from the registry
// defaults on first use. The same name always yields the same breaker.
func (r *Registry) Get(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()

	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if b, ok := r.breakers[name]; ok {
		return b
	}

	config := r.defaults
	config.Name = name
	b = New(config)
	r.breakers[name] = b
	return b
}

// GetWithConfig returns the breaker for name, creating it with a custom
// config on first use. An existing breaker keeps its original config.
func (r *Registry) GetWithConfig(name string, config Config) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}

	config.Name = name
	b := New(config)
	r.breakers[name] = b
	return b
}

// Stats returns snapshots for all registered breakers.
func (r *Registry) Stats() []Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make([]Stats, 0, len(r.breakers))
	for _, b := range r.breakers {
		stats = append(stats, b.Stats())
	}
	return stats
}

// OpenCircuits returns the names of all currently open breakers.
func (r *Registry) OpenCircuits() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var open []string
	for name, b := range r.breakers {
		if b.State() == StateOpen {
			open = append(open, name)
		}
	}
	return open
}

// ResetAll closes every registered breaker.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.breakers {
		b.Reset()
	}
}
