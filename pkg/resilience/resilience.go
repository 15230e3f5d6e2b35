// Package resilience wraps operations in timeout, retry, circuit breaker and
// fallback policies.
//
// Policies compose in a fixed order regardless of how they are configured:
//
//	fallback(retry(breaker(timeout(op))))
//
// so every retry attempt passes through the breaker, and the fallback only sees
// the error left after retries are exhausted.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrTimeout is returned when an attempt exceeds the configured timeout.
	ErrTimeout = errors.New("operation timed out")

	// ErrCircuitOpen is returned when the breaker rejects a call without
	// running it.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// Operation is a unit of work guarded by a Pipeline.
type Operation[T any] func(ctx context.Context) (T, error)

// FallbackFunc produces a substitute result once the primary path has failed.
type FallbackFunc[T any] func(ctx context.Context, cause error) (T, error)

// Event is reported to a Hooks observer as policies act.
type Event string

const (
	EventRetry       Event = "retry"
	EventTimeout     Event = "timeout"
	EventRejected    Event = "rejected"
	EventFallback    Event = "fallback"
	EventStateChange Event = "state_change"
)

// Hooks observe a pipeline. Every field is optional.
type Hooks struct {
	OnEvent       func(name string, ev Event)
	OnStateChange func(name string, from, to gobreaker.State)
}

// Options configures a Pipeline. Zero values disable the matching policy.
type Options[T any] struct {
	// Name identifies the pipeline in logs, metrics and breaker state.
	Name string

	// Timeout bounds each attempt.
	Timeout time.Duration

	// MaxRetries is the number of attempts made after the first one fails.
	MaxRetries uint64

	// Breaker enables the circuit breaker when non-nil.
	Breaker *BreakerSettings

	// Fallback replaces the final error when non-nil.
	Fallback FallbackFunc[T]

	Logger hclog.Logger
	Hooks  Hooks
}

// Pipeline runs an Operation through its configured policies.
type Pipeline[T any] struct {
	name    string
	op      Operation[T]
	breaker *gobreaker.CircuitBreaker[T]
}

// New composes op with the policies enabled in opts.
func New[T any](op Operation[T], opts Options[T]) *Pipeline[T] {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.With("pipeline", opts.Name)

	p := &Pipeline[T]{name: opts.Name}

	wrapped := op
	if opts.Timeout > 0 {
		wrapped = withTimeout(wrapped, opts.Timeout, opts.Name, logger, opts.Hooks)
	}
	if opts.Breaker != nil {
		p.breaker = newBreaker[T](opts.Name, *opts.Breaker, logger, opts.Hooks)
		wrapped = withBreaker(wrapped, p.breaker, opts.Name, opts.Hooks)
	}
	if opts.MaxRetries > 0 {
		wrapped = withRetry(wrapped, opts.MaxRetries, opts.Name, logger, opts.Hooks)
	}
	if opts.Fallback != nil {
		wrapped = withFallback(wrapped, opts.Fallback, opts.Name, logger, opts.Hooks)
	}

	p.op = wrapped
	return p
}

// Name returns the pipeline name.
func (p *Pipeline[T]) Name() string {
	return p.name
}

// Execute runs the operation through the pipeline.
func (p *Pipeline[T]) Execute(ctx context.Context) (T, error) {
	return p.op(ctx)
}

// BreakerState reports the breaker state, or StateClosed when the pipeline has
// no breaker.
func (p *Pipeline[T]) BreakerState() gobreaker.State {
	if p.breaker == nil {
		return gobreaker.StateClosed
	}
	return p.breaker.State()
}

// BreakerCounts reports the breaker counters of the current generation.
func (p *Pipeline[T]) BreakerCounts() gobreaker.Counts {
	if p.breaker == nil {
		return gobreaker.Counts{}
	}
	return p.breaker.Counts()
}

func emit(h Hooks, name string, ev Event) {
	if h.OnEvent != nil {
		h.OnEvent(name, ev)
	}
}
