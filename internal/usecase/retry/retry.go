// Package retry applies bounded exponential backoff to upstream model calls.
// Only quota and transient-availability failures are retried; invalid input
// and cancellation surface immediately.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

// Policy bounds the retry loop: MaxAttempts total tries, BaseDelay doubling
// between them.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy mirrors the config defaults: 3 attempts, 1s base, doubling.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Retryable reports whether err is worth retrying.
func Retryable(err error) bool {
	return errors.Is(err, domain.ErrQuotaExceeded) || errors.Is(err, domain.ErrServiceUnavailable)
}

// Do runs fn under the policy and returns its last result. A non-retryable
// error or context cancellation stops the loop immediately; a retryable
// error that survives all attempts is surfaced to the caller, never
// swallowed.
func Do[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var out T

	op := func() error {
		res, err := fn()
		if err != nil {
			if !Retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = res
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0 // bounded by attempt count, not wall clock

	retries := uint64(0)
	if p.MaxAttempts > 1 {
		retries = uint64(p.MaxAttempts - 1)
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx))
	return out, err
}
