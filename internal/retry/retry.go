package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig bounds how often an operation is re-run after a transient failure.
type RetryConfig struct {
	MaxRetries int           // retries after the first attempt
	Delay      time.Duration // wait before the first retry
	Backoff    bool          // exponential backoff (delay doubles per retry)
}

// Permanent wraps err so WithRetry returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// WithRetry runs fn until it succeeds, returns a Permanent error, the retry
// budget is spent or ctx is done. The last error from fn is returned unwrapped.
func WithRetry(ctx context.Context, config RetryConfig, fn func() error) error {
	retries := config.MaxRetries
	if retries < 0 {
		retries = 0
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(newBackOff(config), uint64(retries)),
		ctx,
	)
	return backoff.Retry(fn, b)
}

func newBackOff(config RetryConfig) backoff.BackOff {
	if !config.Backoff {
		return backoff.NewConstantBackOff(config.Delay)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = config.Delay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	eb.MaxInterval = 30 * time.Second
	if limit := 16 * config.Delay; limit > eb.MaxInterval {
		eb.MaxInterval = limit
	}
	eb.Reset()
	return eb
}
