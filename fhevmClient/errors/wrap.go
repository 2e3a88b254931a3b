package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapFhevmError wraps an error as an FhevmError if it isn't already one
func WrapFhevmError(err error, code ErrorCode, chain, message string) *FhevmError {
	if err == nil {
		return nil
	}

	var fhevmErr *FhevmError
	if errors.As(err, &fhevmErr) {
		fhevmErr.WithContext("wrapped_message", message)
		if chain != "" && fhevmErr.Chain == "" {
			fhevmErr.Chain = chain
		}
		return fhevmErr
	}

	return NewFhevmError(code, chain, message, err)
}

// Is checks if an error is of a specific type
func Is(err error, target error) bool {
	return errors.Is(err, target)
}

// As checks if an error can be assigned to a target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New is errors.New, re-exported so callers need a single errors import.
func New(text string) error {
	return errors.New(text)
}

// IsFhevmError checks if an error is an FhevmError with specific code
func IsFhevmError(err error, code ErrorCode) bool {
	var fhevmErr *FhevmError
	if errors.As(err, &fhevmErr) {
		return fhevmErr.Code == code
	}
	return false
}

// IsAbort reports whether err represents an observed cancellation.
func IsAbort(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrAborted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// AbortIfDone returns an abort error when ctx is already cancelled.
func AbortIfDone(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return NewAbortError(err)
	}
	return nil
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var fhevmErr *FhevmError
	if errors.As(err, &fhevmErr) {
		return fhevmErr.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"too many requests",
		"rate limit",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
