package calls

import (
	"context"
	"errors"

	"github.com/richxcame/cdr-radar/pkg/resilience"
)

// BreakerSource guards a remote Source with a circuit breaker. Malformed data
// does not count against the breaker; an open breaker reads as an unavailable source.
type BreakerSource struct {
	inner   Source
	breaker *resilience.CircuitBreaker
}

// NewBreakerSource wraps inner with a breaker built from settings
func NewBreakerSource(inner Source, settings resilience.Settings) *BreakerSource {
	breaker := resilience.NewCircuitBreaker(settings, resilience.GracefulDegradation(inner.Name())).
		IgnoreErrors(IsDataFormatError)
	return &BreakerSource{inner: inner, breaker: breaker}
}

// Name returns the wrapped source's name
func (s *BreakerSource) Name() string {
	return s.inner.Name()
}

// LoadRecords loads through the breaker
func (s *BreakerSource) LoadRecords(ctx context.Context) ([]CallRecord, error) {
	result, err := s.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return s.inner.LoadRecords(ctx)
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, unavailable(s.inner.Name(), err)
		}
		return nil, err
	}

	records, _ := result.([]CallRecord)
	return records, nil
}
