// Package retry holds the bounded retry policy applied to part uploads.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go"
)

const (
	DefaultMaxAttempts = 4
	DefaultBaseDelay   = 500 * time.Millisecond
)

// BackoffFunc returns the wait after the given failed attempt (1-based).
type BackoffFunc func(attempt uint) time.Duration

// Linear waits base × attempt.
func Linear(base time.Duration) BackoffFunc {
	return func(attempt uint) time.Duration {
		return base * time.Duration(attempt)
	}
}

// Policy is a bounded retry budget with a backoff schedule.
// MaxAttempts counts the first try, so 4 means one attempt plus 3 retries.
type Policy struct {
	MaxAttempts uint
	Backoff     BackoffFunc

	// OnRetry is called after a failed attempt that will be retried.
	OnRetry func(attempt uint, err error)
}

// Default is 4 attempts waiting 500ms, 1s and 1.5s between them.
func Default() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Backoff: Linear(DefaultBaseDelay)}
}

// Do runs fn until it succeeds, the budget is spent, ctx is done or fn returns an
// error marked with Unrecoverable. The last error is returned as-is.
func (p Policy) Do(ctx context.Context, fn func(attempt uint) error) error {
	attempts := p.MaxAttempts
	if attempts == 0 {
		attempts = 1
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = Linear(DefaultBaseDelay)
	}

	var attempt uint
	err := retry.Do(
		func() error {
			attempt++
			return fn(attempt)
		},
		retry.Attempts(attempts),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return backoff(n + 1)
		}),
		retry.RetryIf(func(err error) bool {
			return retry.IsRecoverable(err) && ctx.Err() == nil &&
				!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
		retry.OnRetry(func(n uint, err error) {
			if p.OnRetry != nil && n+1 < attempts {
				p.OnRetry(n+1, err)
			}
		}),
	)
	if err != nil && ctx.Err() != nil && !errors.Is(err, ctx.Err()) {
		return errors.Join(ctx.Err(), err)
	}
	return err
}

// Unrecoverable marks err so that Do stops retrying immediately.
func Unrecoverable(err error) error {
	return retry.Unrecoverable(err)
}
