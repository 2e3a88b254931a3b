package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     attempts,
		InitialDelay:    1 * time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		Multiplier:      2.0,
		RetryableErrors: []ErrorCode{ErrCodeNetworkUnreachable},
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	assert.Equal(t, 3, config.MaxAttempts)
	assert.Equal(t, 2.0, config.Multiplier)
	assert.Contains(t, config.RetryableErrors, ErrCodeNetworkUnreachable)
}

func TestRetryWithConfig_Success(t *testing.T) {
	tests := []struct {
		name              string
		attemptsToSucceed int
	}{
		{name: "succeeds on first attempt", attemptsToSucceed: 1},
		{name: "succeeds on second attempt", attemptsToSucceed: 2},
		{name: "succeeds on last attempt", attemptsToSucceed: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			fn := func() error {
				attempts++
				if attempts < tt.attemptsToSucceed {
					return NewNetworkUnreachableError("http://localhost:8545", "is not reachable", nil)
				}
				return nil
			}

			err := RetryWithConfig(context.Background(), fn, fastRetryConfig(3))

			assert.NoError(t, err)
			assert.Equal(t, tt.attemptsToSucceed, attempts)
		})
	}
}

func TestRetryWithConfig_NonRetryableError(t *testing.T) {
	attempts := 0
	fn := func() error {
		attempts++
		return NewInvalidAddressError("0xnope")
	}

	err := RetryWithConfig(context.Background(), fn, fastRetryConfig(3))

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, IsFhevmError(err, ErrCodeInvalidAddress))
}

func TestRetryWithConfig_MaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	fn := func() error {
		attempts++
		return NewNetworkUnreachableError("http://localhost:8545", "is not reachable", nil)
	}

	err := RetryWithConfig(context.Background(), fn, fastRetryConfig(3))

	require.Error(t, err)
	assert.Equal(t, 3, attempts)

	var fhevmErr *FhevmError
	require.True(t, As(err, &fhevmErr))
	assert.Equal(t, ErrCodeNetworkUnreachable, fhevmErr.Code)
	assert.Equal(t, "maximum retry attempts exceeded", fhevmErr.Context["wrapped_message"])
	assert.Equal(t, 3, fhevmErr.Context["attempts"])
}

func TestRetryWithConfig_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := RetryWithConfig(ctx, func() error {
		attempts++
		return nil
	}, fastRetryConfig(3))

	require.Error(t, err)
	assert.Equal(t, 0, attempts)
	assert.True(t, IsAbort(err))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSentinelMatching(t *testing.T) {
	err := Wrap(NewRuntimeError("initSDK failed", nil), "create instance")

	assert.True(t, errors.Is(err, ErrRuntime))
	assert.False(t, errors.Is(err, ErrAborted))
	assert.False(t, IsAbort(err))
	assert.True(t, IsAbort(Wrap(NewAbortError(context.Canceled), "resolve")))
	assert.True(t, IsAbort(context.DeadlineExceeded))
}

func TestNetworkUnreachableMessageNamesURL(t *testing.T) {
	err := NewNetworkUnreachableError("http://node:8545", "is not a Web3 node or is not reachable", errors.New("dial tcp: refused"))

	assert.Contains(t, err.Error(), "http://node:8545")
	assert.Contains(t, err.Error(), "dial tcp: refused")
	assert.Equal(t, "http://node:8545", err.Context["url"])
	assert.True(t, err.IsRetryable())
}

func TestRetryWithConfig_OnRetryAndBackoff(t *testing.T) {
	cfg := &RetryConfig{
		MaxAttempts:  4,
		InitialDelay: time.Millisecond,
		MaxDelay:     3 * time.Millisecond,
		Multiplier:   2.0,
	}
	var waits []time.Duration
	var seen []int
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		seen = append(seen, attempt)
		waits = append(waits, wait)
		assert.True(t, IsFhevmError(err, ErrCodeNetworkUnreachable))
	}

	err := RetryWithConfig(context.Background(), func() error {
		return NewNetworkUnreachableError("http://localhost:8545", "is not reachable", nil)
	}, cfg)

	require.Error(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}, waits)
}

func TestRetryWithConfig_ZeroAttemptsRunsOnce(t *testing.T) {
	attempts := 0
	err := RetryWithConfig(context.Background(), func() error {
		attempts++
		return nil
	}, &RetryConfig{})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}
