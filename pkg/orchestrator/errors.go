package orchestrator

import (
	"errors"
	"net/http"

	"github.com/daryls-hrplus/intellihrm-scheduler/pkg/optimizer"
)

// Fatal error classes owned by the orchestrator itself. Optimizer-side
// classes (capacity, quota, timeout, malformed output) live in pkg/optimizer.
var (
	// ErrInputFetch means employees or shifts could not be aggregated; the
	// run aborts before the optimizer is ever invoked.
	ErrInputFetch = errors.New("input fetch failed")
	// ErrPersistence means a write to the store failed.
	ErrPersistence = errors.New("persistence failed")
	// ErrBadRequest means the run request itself is unusable.
	ErrBadRequest = errors.New("invalid run request")
)

// StatusForError maps a fatal run error onto the HTTP-style status the
// trigger surface reports: 429 for capacity-class failures (rate limits and
// timeouts), 402 for exhausted quota, 400 for unusable requests, 500
// otherwise.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, optimizer.ErrCapacityExhausted), errors.Is(err, optimizer.ErrTimeout):
		return http.StatusTooManyRequests
	case errors.Is(err, optimizer.ErrQuotaExceeded):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Remediation returns the caller-facing hint for a fatal run error, so the
// UI can suggest something more useful than "it failed".
func Remediation(err error) string {
	switch {
	case errors.Is(err, optimizer.ErrCapacityExhausted), errors.Is(err, optimizer.ErrTimeout):
		return "optimizer capacity is exhausted; retry later"
	case errors.Is(err, optimizer.ErrQuotaExceeded):
		return "optimizer quota is exhausted; add credits to the provider account"
	default:
		return "inspect the run's error_message"
	}
}
