/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package retry runs fallible operations repeatedly according to a backoff policy.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryableFunc is an operation that may be attempted several times.
type RetryableFunc func(ctx context.Context) error

// IsRetryable reports whether an error is transient.
// Errors it rejects abort the retry loop immediately.
type IsRetryable func(error) bool

// Policy produces backoff schedules for retry loops.
// Each DoWithRetry call asks the policy for a fresh backoff.BackOff.
type Policy interface {
	NewBackOff() backoff.BackOff
}

// The PolicyFunc type is an adapter to allow the use of ordinary functions as retry.Policy.
type PolicyFunc func() backoff.BackOff

// NewBackOff implements retry.Policy.
func (f PolicyFunc) NewBackOff() backoff.BackOff {
	return f()
}

// DoWithRetry keeps calling fn until it succeeds, the policy gives up, or ctx is done.
// A nil isRetryable treats every error as transient. notify, when non-nil, is invoked
// before each retry with the error and the upcoming delay.
func DoWithRetry(ctx context.Context, p Policy, isRetryable IsRetryable, notify backoff.Notify, fn RetryableFunc) error {
	bctx := backoff.WithContext(p.NewBackOff(), ctx)
	op := func() error {
		err := fn(bctx.Context())
		if err == nil || isRetryable == nil || isRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	return backoff.RetryNotify(op, bctx, notify)
}

// ExponentialBackoffPolicy grows delays exponentially (1.5 multiplier) between attempts.
type ExponentialBackoffPolicy struct {
	initialInterval time.Duration
	maxAttempts     int
	maxInterval     time.Duration
}

// NewExponentialBackoffPolicy returns an exponential backoff policy with given initial interval and max retry attempt count.
func NewExponentialBackoffPolicy(initialInterval time.Duration, maxRetryAttempts int) ExponentialBackoffPolicy {
	return ExponentialBackoffPolicy{initialInterval: initialInterval, maxAttempts: maxRetryAttempts}
}

// NewExponentialBackoffPolicyWithCap returns an exponential backoff policy
// whose delays grow from initialInterval but never exceed maxInterval.
func NewExponentialBackoffPolicyWithCap(
	initialInterval time.Duration, maxRetryAttempts int, maxInterval time.Duration,
) ExponentialBackoffPolicy {
	return ExponentialBackoffPolicy{initialInterval: initialInterval, maxAttempts: maxRetryAttempts, maxInterval: maxInterval}
}

// NewBackOff implements retry.Policy.
func (p ExponentialBackoffPolicy) NewBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.initialInterval
	if p.maxInterval > 0 {
		eb.MaxInterval = p.maxInterval
	}
	return capAttempts(eb, p.maxAttempts)
}

// ConstantBackoffPolicy waits the same interval between attempts.
type ConstantBackoffPolicy struct {
	interval    time.Duration
	maxAttempts int
}

// NewConstantBackoffPolicy returns a constant backoff policy with given interval and max retry attempt count.
func NewConstantBackoffPolicy(interval time.Duration, maxRetryAttempts int) ConstantBackoffPolicy {
	return ConstantBackoffPolicy{interval, maxRetryAttempts}
}

// NewBackOff implements retry.Policy.
func (p ConstantBackoffPolicy) NewBackOff() backoff.BackOff {
	return capAttempts(backoff.NewConstantBackOff(p.interval), p.maxAttempts)
}

func capAttempts(b backoff.BackOff, maxAttempts int) backoff.BackOff {
	if maxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(maxAttempts))
	}
	b.Reset()
	return b
}
