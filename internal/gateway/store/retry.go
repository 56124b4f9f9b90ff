package store

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const readAttempts = 3

// Read runs an idempotent read, retrying while the driver reports
// ErrUnavailable. Any other error is returned immediately.
func Read[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 25 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond

	op := func() error {
		v, err := fn(ctx)
		if err != nil {
			if errors.Is(err, ErrUnavailable) {
				return err
			}
			return backoff.Permanent(err)
		}
		out = v
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, readAttempts-1), ctx))
	return out, err
}
