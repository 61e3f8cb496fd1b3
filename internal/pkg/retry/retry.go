// Package retry re-runs storage operations that failed with a transient error.
package retry

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/apperror"
)

// Policy bounds the retries of one operation.
type Policy struct {
	MaxAttempts     int // total tries including the first one
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultPolicy is three attempts starting at 50ms.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
	}
}

// NoRetry runs an operation exactly once.
func NoRetry() Policy {
	return Policy{MaxAttempts: 1}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0

	retries := 0
	if p.MaxAttempts > 1 {
		retries = p.MaxAttempts - 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// Do calls fn until it succeeds, fails with an error that is not transient,
// the attempts are used up, or ctx is done. The last error is returned.
func Do(ctx context.Context, p Policy, op string, fn func() error) error {
	operation := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if !apperror.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		log.Printf("retry: %s failed with transient error, retrying in %s: %v", op, wait, err)
	}

	return backoff.RetryNotify(operation, p.backOff(ctx), notify)
}
