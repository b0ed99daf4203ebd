package optimizer

import (
	"errors"
	"fmt"
)

// Distinguishable failure classes surfaced to the run record and the caller.
// Capacity and timeout map to HTTP 429 at the trigger surface, quota to 402.
var (
	// ErrCapacityExhausted is an external rate limit (provider HTTP 429).
	ErrCapacityExhausted = errors.New("optimizer capacity exhausted")
	// ErrQuotaExceeded means the provider account is out of credits
	// (provider HTTP 402).
	ErrQuotaExceeded = errors.New("optimizer quota exceeded")
	// ErrTimeout is a deadline hit on the optimize call.
	ErrTimeout = errors.New("optimizer call timed out")
)

// MalformedOutputError means the optimizer responded but no usable result
// could be parsed out of it. Raw keeps the full response for diagnosis; it is
// logged, never silently discarded.
type MalformedOutputError struct {
	Reason string
	Raw    string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed optimizer output: %s", e.Reason)
}
