package errors

import (
	"context"
	"time"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	Multiplier      float64
	RetryableErrors []ErrorCode

	// OnRetry, if set, is called before sleeping ahead of attempt+1.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DefaultRetryConfig returns default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    250 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		Multiplier:      2.0,
		RetryableErrors: []ErrorCode{ErrCodeNetworkUnreachable},
	}
}

// RetryFunc is a function that can be retried
type RetryFunc func() error

// RetryWithConfig retries fn until it succeeds, returns a non-retryable error,
// or runs out of attempts. A cancelled ctx ends the loop with an abort error.
func RetryWithConfig(ctx context.Context, fn RetryFunc, config *RetryConfig) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	wait := config.InitialDelay
	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := AbortIfDone(ctx); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if IsAbort(lastErr) || !config.retryable(lastErr) || attempt == attempts {
			break
		}

		if config.OnRetry != nil {
			config.OnRetry(attempt, lastErr, wait)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return NewAbortError(ctx.Err())
		case <-timer.C:
		}
		wait = config.nextDelay(wait)
	}

	if IsAbort(lastErr) || !config.retryable(lastErr) {
		return lastErr
	}
	return WrapFhevmError(lastErr, ErrCodeInternal, "", "maximum retry attempts exceeded").
		WithContext("attempts", attempts)
}

func (c *RetryConfig) retryable(err error) bool {
	var fhevmErr *FhevmError
	if !As(err, &fhevmErr) {
		return IsRetryable(err)
	}
	for _, code := range c.RetryableErrors {
		if fhevmErr.Code == code {
			return true
		}
	}
	return fhevmErr.IsRetryable()
}

func (c *RetryConfig) nextDelay(d time.Duration) time.Duration {
	if c.Multiplier > 1 {
		d = time.Duration(float64(d) * c.Multiplier)
	}
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}
