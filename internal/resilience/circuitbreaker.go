// Package resilience implements a circuit breaker that guards a single
// backend feature call (internal/backend.FeatureName) against a
// connection that has started failing repeatedly — a flaky IMAP session,
// an SMTP relay mid-outage, a notmuch database a crashed writer left
// locked. Once a feature's breaker trips, further calls to it fail fast
// with ErrCircuitOpen instead of retrying into the same timeout, giving
// the backend time to recover before the sync engine or CLI hammers it
// again.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrCircuitOpen is returned when a feature's breaker is open and the
// call is rejected without reaching the backend.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ErrCircuitTimeout is returned when a feature call exceeds its
// breaker's ExecutionTimeout.
var ErrCircuitTimeout = errors.New("circuit breaker execution timeout")

// State is a circuit breaker's position in the closed/open/half-open
// state machine.
type State int32

const (
	// StateClosed is the normal state: feature calls reach the backend.
	StateClosed State = iota
	// StateOpen rejects every feature call immediately without touching
	// the backend.
	StateOpen
	// StateHalfOpen allows a limited number of trial feature calls
	// through to probe whether the backend has recovered.
	StateHalfOpen
)

func (s State) String() string {
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

// Config configures one feature's circuit breaker.
type Config struct {
	// Name identifies the guarded feature, e.g. "list_envelopes" or
	// "send_message" — the same string a FeatureName carries.
	Name string

	// FailureThreshold is the number of consecutive failed feature calls
	// before the breaker opens.
	FailureThreshold int64

	// SuccessThreshold is the number of successful trial calls in
	// half-open state needed to close the breaker again.
	SuccessThreshold int64

	// Timeout is how long the breaker stays open before allowing a
	// half-open trial call.
	Timeout time.Duration

	// HalfOpenMaxCalls limits how many trial calls run concurrently
	// while the breaker is half-open.
	HalfOpenMaxCalls int64

	// ExecutionTimeout bounds a single feature call (0 = no bound); a
	// slow IMAP server hanging mid-fetch counts as a failure once this
	// elapses rather than blocking the caller indefinitely.
	ExecutionTimeout time.Duration

	// OnStateChange, if set, is notified of every state transition —
	// useful for logging "sync: send_message breaker opened" style
	// messages.
	OnStateChange func(name string, from, to State)

	// IsFailure classifies a feature call's error as a breaker failure.
	// nil treats every non-nil error as a failure, including
	// mailerr.KindCapabilityMissing, which callers may want to exclude
	// since a missing feature will never recover by waiting.
	IsFailure func(err error) bool
}

// DefaultConfig returns a breaker configuration with defaults reasonable
// for a mail backend's feature calls: five failures trip it, it waits 30
// seconds before probing again, and no single call may run past 10
// seconds.
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 3,
		ExecutionTimeout: 10 * time.Second,
	}
}

// CircuitBreaker guards one feature's calls against a backend that has
// started failing.
type CircuitBreaker struct {
	config Config

	state           int32 // atomic State
	failureCount    int64 // atomic
	successCount    int64 // atomic
	halfOpenCalls   int64 // atomic
	lastFailureTime int64 // atomic (unix nano)
	lastStateChange int64 // atomic (unix nano)

	mu sync.RWMutex
}

// NewCircuitBreaker creates a breaker for one feature from cfg.
func NewCircuitBreaker(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 3
	}

	return &CircuitBreaker{
		config:          cfg,
		state:           int32(StateClosed),
		lastStateChange: time.Now().UnixNano(),
	}
}

// Execute runs fn — ordinarily a backend feature dispatch — through the
// breaker: rejected outright while open, subject to ExecutionTimeout and
// panic recovery while allowed through.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx == nil {
		return errors.New("context is nil")
	}
	if fn == nil {
		return errors.New("function is nil")
	}

	if err := cb.beforeCall(); err != nil {
		return err
	}

	// Apply execution timeout if configured
	execCtx := ctx
	var cancel context.CancelFunc
	if cb.config.ExecutionTimeout > 0 {
		execCtx, cancel = context.WithTimeout(ctx, cb.config.ExecutionTimeout)
		defer cancel()
	}

	// Execute the function with panic recovery
	// Use buffered channel to prevent goroutine leak
	errCh := make(chan error, 1)

	// Track goroutine completion
	done := make(chan struct{})
	go func() {
		defer func() {
			close(done)
			if r := recover(); r != nil {
				// Try to send panic error, but don't block if channel is full
				select {
				case errCh <- fmt.Errorf("panic in circuit breaker: %v", r):
				default:
				}
			}
		}()

		err := fn(execCtx)

		// Try to send result, but don't block if context is cancelled
		select {
		case errCh <- err:
		case <-execCtx.Done():
			// Context cancelled, function result doesn't matter
		}
	}()

	var err error
	select {
	case err = <-errCh:
		// Function completed normally or panicked
	case <-execCtx.Done():
		// Context cancelled or timed out
		if execCtx.Err() == context.DeadlineExceeded {
			err = ErrCircuitTimeout
		} else {
			err = execCtx.Err()
		}
		// Wait for goroutine to finish with timeout to prevent leak
		select {
		case <-done:
			// Goroutine finished
		case <-time.After(100 * time.Millisecond):
			// Goroutine still running, but we can't wait forever
			// This is acceptable as the goroutine will eventually finish
		}
	}

	cb.afterCall(err)
	return err
}

// beforeCall checks whether a feature call should be allowed through.
func (cb *CircuitBreaker) beforeCall() error {
	state := State(atomic.LoadInt32(&cb.state))

	switch state {
	case StateClosed:
		return nil

	case StateOpen:
		// Check if timeout has elapsed
		lastFailure := time.Unix(0, atomic.LoadInt64(&cb.lastFailureTime))
		if time.Since(lastFailure) >= cb.config.Timeout {
			// Transition to half-open
			cb.transitionTo(StateHalfOpen)
			return nil
		}
		return ErrCircuitOpen

	case StateHalfOpen:
		// Limit concurrent trial calls in half-open state
		calls := atomic.AddInt64(&cb.halfOpenCalls, 1)
		if calls > cb.config.HalfOpenMaxCalls {
			atomic.AddInt64(&cb.halfOpenCalls, -1)
			return ErrCircuitOpen
		}
		return nil

	default:
		return nil
	}
}

// afterCall records the outcome of a feature call that was let through.
func (cb *CircuitBreaker) afterCall(err error) {
	isFailure := err != nil
	if cb.config.IsFailure != nil && err != nil {
		isFailure = cb.config.IsFailure(err)
	}

	state := State(atomic.LoadInt32(&cb.state))

	switch state {
	case StateClosed:
		if isFailure {
			failures := atomic.AddInt64(&cb.failureCount, 1)
			atomic.StoreInt64(&cb.lastFailureTime, time.Now().UnixNano())

			if failures >= cb.config.FailureThreshold {
				cb.transitionTo(StateOpen)
			}
		} else {
			// Reset failure count on success
			atomic.StoreInt64(&cb.failureCount, 0)
		}

	case StateHalfOpen:
		atomic.AddInt64(&cb.halfOpenCalls, -1)

		if isFailure {
			// Any failure in half-open goes back to open
			atomic.StoreInt64(&cb.lastFailureTime, time.Now().UnixNano())
			cb.transitionTo(StateOpen)
		} else {
			successes := atomic.AddInt64(&cb.successCount, 1)
			if successes >= cb.config.SuccessThreshold {
				cb.transitionTo(StateClosed)
			}
		}

	case StateOpen:
		// Shouldn't happen, but handle gracefully
		if isFailure {
			atomic.StoreInt64(&cb.lastFailureTime, time.Now().UnixNano())
		}
	}
}

// transitionTo moves the breaker to newState, resetting its counters and
// notifying Config.OnStateChange.
func (cb *CircuitBreaker) transitionTo(newState State) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := State(atomic.LoadInt32(&cb.state))
	if oldState == newState {
		return
	}

	// Reset counters on transition
	atomic.StoreInt64(&cb.failureCount, 0)
	atomic.StoreInt64(&cb.successCount, 0)
	atomic.StoreInt64(&cb.halfOpenCalls, 0)
	atomic.StoreInt64(&cb.lastStateChange, time.Now().UnixNano())
	atomic.StoreInt32(&cb.state, int32(newState))

	if cb.config.OnStateChange != nil {
		// Call in background with timeout to prevent goroutine leak
		callback := cb.config.OnStateChange
		name := cb.config.Name
		go func() {
			// Use a timer to ensure callback doesn't run forever
			done := make(chan struct{})
			go func() {
				defer close(done)
				callback(name, oldState, newState)
			}()

			select {
			case <-done:
				// Callback completed
			case <-time.After(5 * time.Second):
				// Callback took too long - let it finish but don't wait
			}
		}()
	}
}

// State returns the feature's current breaker state.
func (cb *CircuitBreaker) State() State {
	return State(atomic.LoadInt32(&cb.state))
}

// Stats reports the feature breaker's current counters, useful for a
// "mailctl sync" status line or a /metrics scrape.
func (cb *CircuitBreaker) Stats() Stats {
	return Stats{
		State:           State(atomic.LoadInt32(&cb.state)),
		FailureCount:    atomic.LoadInt64(&cb.failureCount),
		SuccessCount:    atomic.LoadInt64(&cb.successCount),
		LastFailureTime: time.Unix(0, atomic.LoadInt64(&cb.lastFailureTime)),
		LastStateChange: time.Unix(0, atomic.LoadInt64(&cb.lastStateChange)),
	}
}

// Stats is a snapshot of one feature breaker's counters.
type Stats struct {
	State           State
	FailureCount    int64
	SuccessCount    int64
	LastFailureTime time.Time
	LastStateChange time.Time
}

// Reset forces the breaker back to closed, as if the backend had just
// recovered.
func (cb *CircuitBreaker) Reset() {
	cb.transitionTo(StateClosed)
}

// Validate checks a feature breaker configuration for internal
// consistency before NewCircuitBreaker is handed it.
func (cfg Config) Validate() error {
	if cfg.Name == "" {
		return errors.New("circuit breaker name is required")
	}
	if cfg.FailureThreshold <= 0 {
		return errors.New("failure threshold must be positive")
	}
	if cfg.SuccessThreshold <= 0 {
		return errors.New("success threshold must be positive")
	}
	if cfg.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		return errors.New("half-open max calls must be positive")
	}
	return nil
}

// BreakerRegistry lazily creates and holds one CircuitBreaker per
// backend feature name, so a multi-feature backend (IMAP's
// list_envelopes, send_message, add_flags, ...) gets independent
// failure tracking per feature instead of one breaker shared across all
// of them.
type BreakerRegistry struct {
	breakers sync.Map
	config   func(feature string) Config
	mu       sync.RWMutex
}

// NewBreakerRegistry creates a registry that builds a new feature's
// breaker configuration on first use via configFactory.
func NewBreakerRegistry(configFactory func(feature string) Config) *BreakerRegistry {
	if configFactory == nil {
		panic("config factory cannot be nil")
	}
	return &BreakerRegistry{
		config: configFactory,
	}
}

// Get returns the circuit breaker for feature, creating it on first use.
// Safe for concurrent use by the worker goroutines calling into a single
// backend.Pool.
func (r *BreakerRegistry) Get(feature string) *CircuitBreaker {
	if feature == "" {
		return nil
	}

	// Fast path: check if breaker exists
	if cb, ok := r.breakers.Load(feature); ok {
		return cb.(*CircuitBreaker)
	}

	// Slow path: create new breaker
	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring lock
	if cb, ok := r.breakers.Load(feature); ok {
		return cb.(*CircuitBreaker)
	}

	newCB := NewCircuitBreaker(r.config(feature))
	r.breakers.Store(feature, newCB)
	return newCB
}

// Remove drops feature's breaker from the registry; the next Get for
// that feature starts fresh in StateClosed.
func (r *BreakerRegistry) Remove(feature string) {
	r.breakers.Delete(feature)
}

// All returns every feature's breaker currently tracked. The returned
// map is a snapshot and safe to modify.
func (r *BreakerRegistry) All() map[string]*CircuitBreaker {
	result := make(map[string]*CircuitBreaker)
	r.breakers.Range(func(key, value interface{}) bool {
		if k, ok := key.(string); ok {
			if cb, ok := value.(*CircuitBreaker); ok {
				result[k] = cb
			}
		}
		return true
	})
	return result
}

// Reset resets every tracked feature's breaker to closed.
func (r *BreakerRegistry) Reset() {
	r.breakers.Range(func(key, value interface{}) bool {
		if cb, ok := value.(*CircuitBreaker); ok {
			cb.Reset()
		}
		return true
	})
}

// Count returns the number of features with a breaker in the registry.
func (r *BreakerRegistry) Count() int {
	count := 0
	r.breakers.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}
