package worker

import (
	"context"
	"math"
	"time"
)

// RetryPolicy defines exponential backoff parameters.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// NextDelay returns delay for a given attempt (1-based) with clamping.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}

	delay := float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1))
	d := time.Duration(delay)
	if r.MaxDelay > 0 && d > r.MaxDelay {
		d = r.MaxDelay
	}
	if d <= 0 {
		d = time.Second
	}
	return d
}

// Do calls fn until it succeeds, returns an error retryable rejects, or
// MaxRetries retries have been spent. onRetry (optional) sees every retry
// before the backoff sleep. ctx cancellation aborts the sleep.
func (r RetryPolicy) Do(ctx context.Context, retryable func(error) bool, onRetry func(attempt int, delay time.Duration, err error), fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || retryable == nil || !retryable(err) || attempt > r.MaxRetries {
			return err
		}

		delay := r.NextDelay(attempt)
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
