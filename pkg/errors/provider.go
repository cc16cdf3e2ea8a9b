package errors

import (
	"errors"
	"fmt"
)

// ProviderError is a structured error for external service call failures.
// It carries enough context to log which provider and operation failed
// without the caller parsing error strings.
type ProviderError struct {
	// Provider names the external system ("github", "discourse", "zoom",
	// "gcal", "telegram").
	Provider string

	// Op is the failing operation (e.g., "create_meeting").
	Op string

	// StatusCode is the HTTP status, when the failure was an HTTP error
	// response. Zero for transport-level failures.
	StatusCode int

	// Cause is the underlying error, if any.
	Cause error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s returned status %d", e.Provider, e.Op, e.StatusCode)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Cause)
	}
	return fmt.Sprintf("%s: %s failed", e.Provider, e.Op)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a ProviderError for a transport-level failure.
func NewProviderError(provider, op string, cause error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Cause: cause}
}

// NewProviderStatusError creates a ProviderError for an HTTP error response.
func NewProviderStatusError(provider, op string, status int) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, StatusCode: status}
}

// AsProviderError reports whether any error in err's chain is a
// *ProviderError, returning it if so.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
