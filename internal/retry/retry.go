// Package retry provides a generic exponential-backoff executor for fallible
// operations against unreliable upstreams.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

const (
	// DefaultMaxAttempts is used when a caller passes a non-positive attempt count.
	DefaultMaxAttempts = 3

	defaultBaseDelay = 500 * time.Millisecond
	defaultMaxDelay  = 8 * time.Second

	// jitterFraction bounds the random jitter added to each delay.
	jitterFraction = 0.25
)

// ExhaustedError reports that an operation failed on every attempt.
// It names the operation and wraps the last underlying error.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: exhausted %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Executor retries operations with exponential backoff and jitter.
// It knows nothing about circuit breakers or mirrors; callers compose
// those around it.
type Executor struct {
	baseDelay time.Duration
	maxDelay  time.Duration
	logger    *slog.Logger

	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures an Executor.
type Option func(*Executor)

// WithBaseDelay sets the first-retry delay.
func WithBaseDelay(d time.Duration) Option {
	return func(e *Executor) { e.baseDelay = d }
}

// WithMaxDelay caps the per-retry delay before jitter.
func WithMaxDelay(d time.Duration) Option {
	return func(e *Executor) { e.maxDelay = d }
}

// New creates an executor with the given options.
func New(logger *slog.Logger, opts ...Option) *Executor {
	e := &Executor{
		baseDelay: defaultBaseDelay,
		maxDelay:  defaultMaxDelay,
		logger:    logger,
		sleep:     sleepCtx,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Do runs op up to maxAttempts times. On each failure before the last
// attempt it sleeps for min(base*2^(attempt-1), max) plus random jitter of
// up to 25% of that delay, then retries. A context cancellation is returned
// immediately and never retried.
func (e *Executor) Do(ctx context.Context, opName string, maxAttempts int, op func(ctx context.Context) error) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return err
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		delay := e.Delay(attempt)
		e.logger.Debug("operation failed, retrying",
			"op", opName,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"delay", delay,
			"error", err,
		)

		if err := e.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return &ExhaustedError{Op: opName, Attempts: maxAttempts, Err: lastErr}
}

// Delay computes the backoff for a given 1-based failed attempt,
// including jitter. Exported for tests.
func (e *Executor) Delay(attempt int) time.Duration {
	d := e.baseDelay << (attempt - 1)
	if d > e.maxDelay || d <= 0 {
		d = e.maxDelay
	}
	jitter := time.Duration(rand.Float64() * jitterFraction * float64(d))
	return d + jitter
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
