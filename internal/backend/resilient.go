package backend

import (
	"context"

	"github.com/fenilsonani/mailcore/internal/resilience"
)

// Caller is satisfied by Handler, Pool, and ResilientHandler, letting
// consumers like the sync engine depend on the capability-dispatch
// contract without naming a concrete backend type.
type Caller interface {
	Call(name FeatureName, fn func(any) error) error
}

// ResilientHandler wraps a Caller with one circuit breaker per feature, so
// a backend that starts failing repeatedly (a flaky IMAP connection, an
// SMTP relay mid-outage) stops being hammered on every subsequent call and
// instead fails fast with resilience.ErrCircuitOpen until its breaker's
// timeout elapses and a trial call is allowed through again.
type ResilientHandler struct {
	inner    Caller
	breakers *resilience.BreakerRegistry
}

// NewResilientHandler wraps inner. configFor builds the circuit breaker
// configuration for a given feature name; pass nil to use
// resilience.DefaultConfig for every feature.
func NewResilientHandler(inner Caller, configFor func(feature string) resilience.Config) *ResilientHandler {
	if configFor == nil {
		configFor = resilience.DefaultConfig
	}
	return &ResilientHandler{
		inner:    inner,
		breakers: resilience.NewBreakerRegistry(configFor),
	}
}

// Call dispatches through the feature's circuit breaker before reaching
// inner. fn's own error becomes the breaker's failure signal.
func (r *ResilientHandler) Call(name FeatureName, fn func(any) error) error {
	cb := r.breakers.Get(string(name))
	return cb.Execute(context.Background(), func(context.Context) error {
		return r.inner.Call(name, fn)
	})
}

// Stats reports the current state of every feature's circuit breaker that
// has been exercised so far.
func (r *ResilientHandler) Stats() map[string]resilience.Stats {
	out := make(map[string]resilience.Stats)
	for key, cb := range r.breakers.All() {
		out[key] = cb.Stats()
	}
	return out
}
