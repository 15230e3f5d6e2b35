package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/sony/gobreaker/v2"
)

// BreakerSettings configures the circuit breaker. The defaults trip the breaker
// once at least 20 calls have been seen and half of them failed, keep it open
// for 5 seconds, and close it again after one successful trial call.
type BreakerSettings struct {
	// RequestVolumeThreshold is the minimum number of calls before the failure
	// ratio is considered (default: 20).
	RequestVolumeThreshold uint32

	// FailureRatio opens the breaker when failures/requests reaches it
	// (default: 0.5).
	FailureRatio float64

	// Delay is how long the breaker stays open before allowing trial calls
	// (default: 5s).
	Delay time.Duration

	// SuccessThreshold is the number of trial calls that must succeed to close
	// the breaker again (default: 1).
	SuccessThreshold uint32

	// Interval clears the closed-state counters periodically; zero keeps them
	// for the whole closed period.
	Interval time.Duration
}

// DefaultBreakerSettings returns the breaker defaults.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		RequestVolumeThreshold: 20,
		FailureRatio:           0.5,
		Delay:                  5 * time.Second,
		SuccessThreshold:       1,
	}
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	d := DefaultBreakerSettings()
	if s.RequestVolumeThreshold == 0 {
		s.RequestVolumeThreshold = d.RequestVolumeThreshold
	}
	if s.FailureRatio <= 0 {
		s.FailureRatio = d.FailureRatio
	}
	if s.Delay <= 0 {
		s.Delay = d.Delay
	}
	if s.SuccessThreshold == 0 {
		s.SuccessThreshold = d.SuccessThreshold
	}
	return s
}

func newBreaker[T any](name string, s BreakerSettings, logger hclog.Logger, hooks Hooks) *gobreaker.CircuitBreaker[T] {
	s = s.withDefaults()

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: s.SuccessThreshold,
		Interval:    s.Interval,
		Timeout:     s.Delay,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < s.RequestVolumeThreshold {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests) >= s.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// A caller hanging up says nothing about the protected dependency.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed", "from", from.String(), "to", to.String())
			emit(hooks, name, EventStateChange)
			if hooks.OnStateChange != nil {
				hooks.OnStateChange(name, from, to)
			}
		},
	})
}

func withBreaker[T any](next Operation[T], cb *gobreaker.CircuitBreaker[T], name string, hooks Hooks) Operation[T] {
	return func(ctx context.Context) (T, error) {
		v, err := cb.Execute(func() (T, error) {
			return next(ctx)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			emit(hooks, name, EventRejected)
			return v, fmt.Errorf("%w: %s", ErrCircuitOpen, name)
		}
		return v, err
	}
}
