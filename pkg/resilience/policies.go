package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
)

type result[T any] struct {
	val T
	err error
}

// withTimeout stops waiting for an attempt once d has elapsed. The attempt
// itself keeps running in its goroutine; its result is dropped.
func withTimeout[T any](next Operation[T], d time.Duration, name string, logger hclog.Logger, hooks Hooks) Operation[T] {
	return func(ctx context.Context) (T, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		done := make(chan result[T], 1)
		go func() {
			v, err := next(ctx)
			done <- result[T]{val: v, err: err}
		}()

		select {
		case r := <-done:
			return r.val, r.err
		case <-ctx.Done():
			var zero T
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				logger.Warn("attempt timed out", "timeout", d)
				emit(hooks, name, EventTimeout)
				return zero, ErrTimeout
			}
			return zero, ctx.Err()
		}
	}
}

// withRetry makes up to maxRetries further attempts, back to back. Caller
// cancellation is not retried.
func withRetry[T any](next Operation[T], maxRetries uint64, name string, logger hclog.Logger, hooks Hooks) Operation[T] {
	return func(ctx context.Context) (T, error) {
		op := func() (T, error) {
			v, err := next(ctx)
			if err != nil && ctx.Err() != nil {
				return v, backoff.Permanent(err)
			}
			return v, err
		}

		b := backoff.WithContext(
			backoff.WithMaxRetries(&backoff.ZeroBackOff{}, maxRetries), ctx)

		notify := func(err error, _ time.Duration) {
			logger.Warn("attempt failed, retrying", "error", err)
			emit(hooks, name, EventRetry)
		}

		return backoff.RetryNotifyWithData(op, b, notify)
	}
}

// withFallback replaces any error from next with the fallback result.
func withFallback[T any](next Operation[T], fb FallbackFunc[T], name string, logger hclog.Logger, hooks Hooks) Operation[T] {
	return func(ctx context.Context) (T, error) {
		v, err := next(ctx)
		if err == nil {
			return v, nil
		}

		logger.Warn("using fallback", "error", err)
		emit(hooks, name, EventFallback)
		return fb(ctx, err)
	}
}
