package analysis

import (
	"errors"
	"fmt"
)

// ErrCircuitOpen is returned when the circuit breaker is open. It is never
// retried; callers surface it immediately so the UI can report upstream
// degradation instead of burning attempts.
var ErrCircuitOpen = errors.New("analysis circuit breaker is open")

// CircuitOpenError wraps ErrCircuitOpen with the remaining cooldown so
// callers can suggest when to retry.
type CircuitOpenError struct {
	RetryAfterSeconds int
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("analysis circuit breaker is open, retry in %ds", e.RetryAfterSeconds)
}

func (e *CircuitOpenError) Unwrap() error {
	return ErrCircuitOpen
}

// maxSnippetLen caps the raw-response excerpt carried by a ParseError.
const maxSnippetLen = 500

// ParseError describes a model response that could not be turned into a
// validated result. RawSnippet is capped so logs stay readable even when
// the model returns megabytes of prose.
type ParseError struct {
	Reason     string
	RawSnippet string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse analysis response: %s", e.Reason)
}

// newParseError builds a ParseError with the raw response truncated to
// maxSnippetLen bytes.
func newParseError(reason, raw string) *ParseError {
	if len(raw) > maxSnippetLen {
		raw = raw[:maxSnippetLen]
	}
	return &ParseError{Reason: reason, RawSnippet: raw}
}
