package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskhub/repositories"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds how long a conditional update keeps retrying after
// losing a version race.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     8,
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     250 * time.Millisecond,
	}
}

// retryOnConflict runs op until it succeeds, fails with anything other than
// a version conflict, or runs out of attempts. Exhaustion surfaces ErrBusy.
func retryOnConflict(ctx context.Context, p RetryPolicy, op func() error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1)), ctx)

	err := backoff.Retry(func() error {
		err := op()
		if err == nil || errors.Is(err, repositories.ErrVersionConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, b)
	if errors.Is(err, repositories.ErrVersionConflict) {
		return fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return err
}
