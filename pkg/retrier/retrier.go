// Package retrier implements exponential backoff for unreliable calls.
package retrier

import (
	"context"
	"time"
)

const (
	defaultBaseDelay   = 1 * time.Second
	defaultMaxDelay    = 30 * time.Second
	defaultMaxAttempts = 3
)

// Retrier retries a call with exponentially growing delays: the k-th retry
// waits baseDelay * 2^k (capped at maxDelay). A call is attempted at most
// maxAttempts times in total before the last error is returned.
type Retrier struct {
	baseDelay   time.Duration
	maxDelay    time.Duration
	maxAttempts int
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithBaseDelay sets the delay before the first retry.
func WithBaseDelay(d time.Duration) Option {
	return func(r *Retrier) {
		r.baseDelay = d
	}
}

// WithMaxDelay caps the delay between retries.
func WithMaxDelay(d time.Duration) Option {
	return func(r *Retrier) {
		r.maxDelay = d
	}
}

// WithMaxAttempts sets the total number of attempts.
func WithMaxAttempts(n int) Option {
	return func(r *Retrier) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// New creates a Retrier with default values and optional overrides.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do executes fn until it succeeds, the attempts are exhausted, or the
// context is cancelled. The context error wins over the call error so a
// cancelled run is reported as such.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	delay := r.baseDelay

	var err error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}

			delay *= 2
			if delay > r.maxDelay {
				delay = r.maxDelay
			}
		}

		if err = fn(ctx); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return err
}

// DoWithData executes fn with retries and returns its value.
func DoWithData[T any](r *Retrier, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context) error {
		var e error
		result, e = fn(ctx)
		return e
	})
	return result, err
}
