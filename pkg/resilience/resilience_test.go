package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// failFirst fails the first n calls and succeeds afterwards.
func failFirst(n int32, calls *atomic.Int32) Operation[string] {
	return func(ctx context.Context) (string, error) {
		if calls.Add(1) <= n {
			return "", errBoom
		}
		return "ok", nil
	}
}

func TestRetry(t *testing.T) {
	t.Run("single retry recovers", func(t *testing.T) {
		var calls atomic.Int32
		p := New(failFirst(1, &calls), Options[string]{Name: "test", MaxRetries: 1})

		v, err := p.Execute(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls atomic.Int32
		p := New(failFirst(5, &calls), Options[string]{Name: "test", MaxRetries: 1})

		_, err := p.Execute(context.Background())
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("canceled caller is not retried", func(t *testing.T) {
		var calls atomic.Int32
		ctx, cancel := context.WithCancel(context.Background())
		op := func(ctx context.Context) (string, error) {
			calls.Add(1)
			cancel()
			return "", ctx.Err()
		}
		p := New(op, Options[string]{Name: "test", MaxRetries: 3})

		_, err := p.Execute(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestTimeout(t *testing.T) {
	slow := func(ctx context.Context) (string, error) {
		time.Sleep(200 * time.Millisecond)
		return "late", nil
	}

	t.Run("slow attempt times out", func(t *testing.T) {
		var events []Event
		p := New(slow, Options[string]{
			Name:    "test",
			Timeout: 20 * time.Millisecond,
			Hooks:   Hooks{OnEvent: func(_ string, ev Event) { events = append(events, ev) }},
		})

		start := time.Now()
		_, err := p.Execute(context.Background())
		assert.ErrorIs(t, err, ErrTimeout)
		assert.Less(t, time.Since(start), 150*time.Millisecond)
		assert.Equal(t, []Event{EventTimeout}, events)
	})

	t.Run("retry after timeout runs a fresh attempt", func(t *testing.T) {
		var calls atomic.Int32
		op := func(ctx context.Context) (string, error) {
			if calls.Add(1) == 1 {
				time.Sleep(200 * time.Millisecond)
			}
			return "ok", nil
		}
		p := New(op, Options[string]{Name: "test", Timeout: 20 * time.Millisecond, MaxRetries: 1})

		v, err := p.Execute(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
	})
}

func TestFallback(t *testing.T) {
	var calls atomic.Int32
	var cause error
	p := New(failFirst(10, &calls), Options[string]{
		Name:       "test",
		MaxRetries: 1,
		Fallback: func(ctx context.Context, err error) (string, error) {
			cause = err
			return "fallback", nil
		},
		Logger: hclog.NewNullLogger(),
	})

	v, err := p.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)
	assert.ErrorIs(t, cause, errBoom)
	assert.Equal(t, int32(2), calls.Load(), "fallback runs only after the retry")
}

func TestCircuitBreaker(t *testing.T) {
	var calls atomic.Int32
	var transitions []gobreaker.State
	p := New(failFirst(1000, &calls), Options[string]{
		Name: "test",
		Breaker: &BreakerSettings{
			RequestVolumeThreshold: 4,
			FailureRatio:           0.5,
			Delay:                  time.Hour,
		},
		Hooks: Hooks{OnStateChange: func(_ string, _, to gobreaker.State) {
			transitions = append(transitions, to)
		}},
	})

	for i := 0; i < 4; i++ {
		_, err := p.Execute(context.Background())
		assert.ErrorIs(t, err, errBoom)
	}
	assert.Equal(t, gobreaker.StateOpen, p.BreakerState())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)

	// Open breaker short-circuits without running the operation.
	before := calls.Load()
	_, err := p.Execute(context.Background())
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, before, calls.Load())
}

func TestCircuitBreakerWithFallback(t *testing.T) {
	var calls atomic.Int32
	p := New(failFirst(1000, &calls), Options[string]{
		Name:       "test",
		MaxRetries: 1,
		Breaker:    &BreakerSettings{RequestVolumeThreshold: 2, Delay: time.Hour},
		Fallback: func(ctx context.Context, err error) (string, error) {
			return "fallback", nil
		},
	})

	// Two failing attempts trip the breaker.
	v, err := p.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)
	assert.Equal(t, gobreaker.StateOpen, p.BreakerState())

	before := calls.Load()
	v, err = p.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)
	assert.Equal(t, before, calls.Load(), "open breaker should not run the operation")
}

func TestBreakerSettingsDefaults(t *testing.T) {
	s := BreakerSettings{}.withDefaults()
	assert.Equal(t, DefaultBreakerSettings(), s)
}
