package errors

import (
	"fmt"
)

// ErrorCode represents different categories of errors
type ErrorCode string

const (
	// ErrCodeEnvironment indicates the host cannot run the requested operation
	ErrCodeEnvironment ErrorCode = "ENVIRONMENT"

	// ErrCodeAbort indicates a cancellation was observed
	ErrCodeAbort ErrorCode = "ABORT"

	// ErrCodeRuntime indicates the provider runtime failed to load or initialize
	ErrCodeRuntime ErrorCode = "RUNTIME"

	// ErrCodeInvalidAddress indicates a chain address failed validation
	ErrCodeInvalidAddress ErrorCode = "INVALID_ADDRESS"

	// ErrCodeNetworkUnreachable indicates an RPC endpoint did not respond
	ErrCodeNetworkUnreachable ErrorCode = "NETWORK_UNREACHABLE"

	// ErrCodeMalformedCacheRecord indicates a stored record failed shape validation
	ErrCodeMalformedCacheRecord ErrorCode = "MALFORMED_CACHE_RECORD"

	// ErrCodeValidation indicates input validation errors
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeDatabase indicates database operation errors
	ErrCodeDatabase ErrorCode = "DATABASE"

	// ErrCodeConfig indicates configuration errors
	ErrCodeConfig ErrorCode = "CONFIG"

	// ErrCodeSignature indicates decryption signature errors
	ErrCodeSignature ErrorCode = "SIGNATURE"

	// ErrCodeInternal indicates internal system errors
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Severity represents the severity level of an error
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// Sentinels for errors.Is. Any FhevmError with the same code matches.
var (
	ErrEnvironment          = &FhevmError{Code: ErrCodeEnvironment}
	ErrAborted              = &FhevmError{Code: ErrCodeAbort}
	ErrRuntime              = &FhevmError{Code: ErrCodeRuntime}
	ErrInvalidAddress       = &FhevmError{Code: ErrCodeInvalidAddress}
	ErrNetworkUnreachable   = &FhevmError{Code: ErrCodeNetworkUnreachable}
	ErrMalformedCacheRecord = &FhevmError{Code: ErrCodeMalformedCacheRecord}
)

// FhevmError is the error type returned by the fhevm client packages.
type FhevmError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Chain    string                 `json:"chain,omitempty"`
	Severity Severity               `json:"severity"`
	Cause    error                  `json:"-"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// NewFhevmError creates a new FhevmError
func NewFhevmError(code ErrorCode, chain, message string, cause error) *FhevmError {
	return &FhevmError{
		Code:     code,
		Message:  message,
		Chain:    chain,
		Severity: determineSeverity(code),
		Cause:    cause,
		Context:  make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *FhevmError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Chain != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Chain, e.Code, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying cause
func (e *FhevmError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an FhevmError carrying the same code.
func (e *FhevmError) Is(target error) bool {
	t, ok := target.(*FhevmError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithContext adds context to the error
func (e *FhevmError) WithContext(key string, value interface{}) *FhevmError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// IsRetryable returns true if the error is retryable
func (e *FhevmError) IsRetryable() bool {
	switch e.Code {
	case ErrCodeNetworkUnreachable:
		return true
	case ErrCodeDatabase:
		return e.Severity != SeverityCritical
	default:
		return false
	}
}

func determineSeverity(code ErrorCode) Severity {
	switch code {
	case ErrCodeInternal:
		return SeverityCritical
	case ErrCodeRuntime, ErrCodeDatabase:
		return SeverityHigh
	case ErrCodeNetworkUnreachable, ErrCodeEnvironment, ErrCodeSignature:
		return SeverityMedium
	case ErrCodeValidation, ErrCodeConfig, ErrCodeInvalidAddress:
		return SeverityLow
	default:
		// aborts and malformed cache records never reach the user
		return SeverityInfo
	}
}

// NewEnvironmentError creates an error for operations the host cannot perform.
func NewEnvironmentError(message string) *FhevmError {
	return NewFhevmError(ErrCodeEnvironment, "", message, nil)
}

// NewAbortError creates a cancellation error. cause is usually ctx.Err().
func NewAbortError(cause error) *FhevmError {
	return NewFhevmError(ErrCodeAbort, "", "fhevm operation was cancelled", cause)
}

// NewRuntimeError creates a provider runtime error
func NewRuntimeError(message string, cause error) *FhevmError {
	return NewFhevmError(ErrCodeRuntime, "", message, cause)
}

// NewInvalidAddressError creates an address validation error
func NewInvalidAddressError(address string) *FhevmError {
	return NewFhevmError(ErrCodeInvalidAddress, "", fmt.Sprintf("invalid address: %s", address), nil).
		WithContext("address", address)
}

// NewNetworkUnreachableError creates an error naming the endpoint that did not respond.
func NewNetworkUnreachableError(url, message string, cause error) *FhevmError {
	return NewFhevmError(ErrCodeNetworkUnreachable, "", fmt.Sprintf("the URL %s %s", url, message), cause).
		WithContext("url", url)
}

// NewMalformedCacheRecordError creates an error for records that failed shape checks.
func NewMalformedCacheRecordError(message string) *FhevmError {
	return NewFhevmError(ErrCodeMalformedCacheRecord, "", message, nil)
}

// NewValidationError creates a validation error
func NewValidationError(message string) *FhevmError {
	return NewFhevmError(ErrCodeValidation, "", message, nil)
}

// NewDatabaseError creates a database error
func NewDatabaseError(message string, cause error) *FhevmError {
	return NewFhevmError(ErrCodeDatabase, "", message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *FhevmError {
	return NewFhevmError(ErrCodeConfig, "", message, cause)
}

// NewSignatureError creates a decryption signature error
func NewSignatureError(message string, cause error) *FhevmError {
	return NewFhevmError(ErrCodeSignature, "", message, cause)
}
