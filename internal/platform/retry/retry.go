// Package retry runs fallible operations under a bounded exponential backoff policy.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const backoffMultiplier = 2

// Policy describes how many times to attempt an operation and how long to wait between attempts.
// The delay before attempt n+1 is BaseDelay * 2^(n-1), without jitter.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// OnRetry is called after a failed attempt that will be retried.
	OnRetry func(attempt int, delay time.Duration, err error)
}

func (p Policy) backOff(ctx context.Context) backoff.BackOffContext {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	eb.Multiplier = backoffMultiplier
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0

	if p.MaxDelay > 0 {
		eb.MaxInterval = p.MaxDelay
	} else {
		eb.MaxInterval = p.BaseDelay << 10
	}

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)
}

// Do calls op until it succeeds, the policy is exhausted, or ctx is done.
// Errors wrapped with Permanent stop retrying immediately.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	attempt := 0

	notify := func(err error, d time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(attempt, d, err)
		}
	}

	result, err := backoff.RetryNotifyWithData(func() (T, error) {
		attempt++

		return op(ctx, attempt)
	}, p.backOff(ctx), notify)
	if err != nil {
		return result, fmt.Errorf("after %d attempts: %w", attempt, err)
	}

	return result, nil
}

// DoWithFallback is Do, but returns fallback() instead of an error once the policy is exhausted.
func DoWithFallback[T any](ctx context.Context, p Policy, op func(ctx context.Context, attempt int) (T, error), fallback func(err error) T) T {
	result, err := Do(ctx, p, op)
	if err != nil {
		return fallback(err)
	}

	return result
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
