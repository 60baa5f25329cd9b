package fn

import (
	"context"
	"math/rand"
	"time"
)

// RetryOpts configures exponential backoff between attempts.
type RetryOpts struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Jitter      bool
}

// Retry runs f until it succeeds or MaxAttempts is exhausted, doubling the
// wait between attempts up to MaxWait. Context cancellation aborts the
// backoff sleep and returns the context error.
func Retry[T any](ctx context.Context, opts RetryOpts, f func(context.Context) Result[T]) Result[T] {
	wait := opts.InitialWait
	var last Result[T]

	for attempt := 1; ; attempt++ {
		last = f(ctx)
		if last.IsOk() || attempt >= opts.MaxAttempts {
			return last
		}

		sleep := wait
		if opts.Jitter {
			sleep = time.Duration(float64(wait) * (0.5 + rand.Float64()))
		}
		if sleep > opts.MaxWait {
			sleep = opts.MaxWait
		}
		select {
		case <-ctx.Done():
			return Err[T](ctx.Err())
		case <-time.After(sleep):
		}

		if wait *= 2; wait > opts.MaxWait {
			wait = opts.MaxWait
		}
	}
}
