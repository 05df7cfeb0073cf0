// Package retry runs operations against external services with a per-attempt
// timeout and a single bounded retry.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// DefaultMaxTries is one attempt plus one retry.
const DefaultMaxTries = 2

// Policy bounds every call to an external dependency.
type Policy struct {
	// Timeout caps each attempt. Zero leaves the parent deadline in charge.
	Timeout time.Duration

	// Backoff is the wait before the first retry.
	Backoff time.Duration

	// MaxTries counts the first attempt. Zero means DefaultMaxTries.
	MaxTries uint
}

// Permanent marks an error as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a permanent error, or runs out of
// tries. Each attempt gets its own context bounded by p.Timeout.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	tries := p.MaxTries
	if tries == 0 {
		tries = DefaultMaxTries
	}

	bo := backoff.NewExponentialBackOff()
	if p.Backoff > 0 {
		bo.InitialInterval = p.Backoff
		bo.MaxInterval = 4 * p.Backoff
	}
	bo.RandomizationFactor = 0.2

	operation := func() (struct{}, error) {
		attemptCtx := ctx
		if p.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
			defer cancel()
		}
		err := op(attemptCtx)
		if err != nil && ctx.Err() != nil {
			// The caller gave up; retrying cannot help.
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(tries))
	return err
}
