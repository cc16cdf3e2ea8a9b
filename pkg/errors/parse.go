package errors

import (
	"errors"
	"fmt"
)

// ParseError indicates that no valid meeting schedule could be derived
// from free-form issue text. It is an expected outcome, not a fault:
// callers recover by skipping the schedule-dependent work and reporting
// the reason back to the issue author.
type ParseError struct {
	// Reason is a short human-readable description of what was missing
	// or malformed, suitable for inclusion in an issue comment.
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("schedule parse failed: %s", e.Reason)
}

// NewParseError creates a ParseError with the given reason.
func NewParseError(reason string) *ParseError {
	return &ParseError{Reason: reason}
}

// AsParseError reports whether any error in err's chain is a *ParseError,
// returning it if so.
func AsParseError(err error) (*ParseError, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
