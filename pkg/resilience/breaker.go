package resilience

import (
	"context"
	"errors"

	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the breaker rejects a call
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Operation is the unit of work protected by a CircuitBreaker
type Operation func(ctx context.Context) (interface{}, error)

// CircuitBreaker wraps gobreaker with metrics and an optional fallback
type CircuitBreaker struct {
	name     string
	cb       *gobreaker.CircuitBreaker[interface{}]
	fallback FallbackFunc
	// ignore reports errors that should not count as breaker failures
	ignore func(error) bool
}

// NewCircuitBreaker builds a breaker from settings. A nil fallback returns ErrCircuitOpen.
func NewCircuitBreaker(settings Settings, fallback FallbackFunc) *CircuitBreaker {
	name := breakerName(settings.Name)
	if fallback == nil {
		fallback = NoopFallback
	}

	b := &CircuitBreaker{name: name, fallback: fallback}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: settings.SuccessThreshold,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observeTransition(name, from, to)
		},
		IsExcluded: func(err error) bool {
			return b.ignore != nil && b.ignore(err)
		},
	}

	b.cb = gobreaker.NewCircuitBreaker[interface{}](st)
	observeState(name, gobreaker.StateClosed)
	return b
}

// IgnoreErrors keeps errors matching fn out of the breaker's counts, e.g. data problems
// that say nothing about the health of the remote side
func (b *CircuitBreaker) IgnoreErrors(fn func(error) bool) *CircuitBreaker {
	b.ignore = fn
	return b
}

// Name returns the breaker name used in metrics
func (b *CircuitBreaker) Name() string {
	return b.name
}

// State returns the current breaker state
func (b *CircuitBreaker) State() gobreaker.State {
	return b.cb.State()
}

// Execute runs op through the breaker
func (b *CircuitBreaker) Execute(ctx context.Context, op Operation) (interface{}, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return op(ctx)
	})
	switch {
	case err == nil:
		observeExecution(b.name, outcomeSuccess)
		return result, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		observeExecution(b.name, outcomeRejected)
		return b.fallback(ctx, err)
	case b.ignore != nil && b.ignore(err):
		observeExecution(b.name, outcomeExcluded)
	default:
		observeExecution(b.name, outcomeFailure)
	}
	return nil, err
}
