// Package errors provides common domain error types for acdbot.
//
// This package defines sentinel errors for common domain conditions like
// "not found" that can be used across all packages, plus two structured
// error types that keep the bot's expected and unexpected failure
// channels apart: ParseError for schedule text that cannot be read
// (expected control flow, recovered locally) and ProviderError for
// external service faults (network, auth, 4xx/5xx).
//
// Usage:
//
//	import boterrors "github.com/ethcatherders/acdbot/pkg/errors"
//
//	// Return a domain error
//	return nil, boterrors.ErrNotFound
//
//	// Check for domain errors
//	if boterrors.IsNotFound(err) {
//	    // handle not found case
//	}
package errors

import "errors"

// Domain errors - common sentinel errors for domain conditions.
var (
	// ErrNotFound indicates the requested mapping or resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid input or validation failure.
	ErrValidation = errors.New("validation error")

	// ErrInvalidState indicates the operation is not valid for the current state.
	ErrInvalidState = errors.New("invalid state")
)

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidState reports whether any error in err's chain is ErrInvalidState.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}
