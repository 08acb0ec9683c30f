package cloud

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Defaults applied by Retry when RetryPolicy fields are zero.
const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
	DefaultJitter   = 0.2
)

// RetryPolicy shapes the backoff schedule: Attempts tries in total, Delay
// before the second try (doubling after each failure), Jitter the
// fraction of each delay spread randomly in both directions.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	Jitter   float64
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultAttempts
	}
	if p.Delay <= 0 {
		p.Delay = DefaultDelay
	}
	if p.Jitter <= 0 || p.Jitter > 1 {
		p.Jitter = DefaultJitter
	}
	return p
}

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (network timeouts, 5xx responses) with this
// type so that [Retry] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry executes fn up to p.Attempts times with exponential backoff.
// It only retries errors wrapped with [RetryableError]; other errors are
// returned immediately. Returns the last error if all attempts fail, or
// ctx.Err() if cancelled while backing off.
func Retry(ctx context.Context, p RetryPolicy, fn func() error) error {
	p = p.withDefaults()
	delay := p.Delay
	var lastErr error

	for i := range p.Attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !isRetryable(err) {
			return err
		}

		if i < p.Attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(jitter(delay, p.Jitter)):
				delay *= 2
			}
		}
	}
	return lastErr
}

// jitter spreads a delay uniformly over [d*(1-f), d*(1+f)].
func jitter(d time.Duration, f float64) time.Duration {
	spread := 1 - f + 2*f*rand.Float64()
	return time.Duration(float64(d) * spread)
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
