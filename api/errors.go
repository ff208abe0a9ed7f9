package api

import (
	"errors"
	"net/http"

	"github.com/poiesic/suggestit/core"
)

var (
	// ErrBackendRequired is returned when no backend is given.
	ErrBackendRequired = errors.New("backend is required")

	// ErrUnauthorized indicates a missing or unknown API key.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates the key exhausted its per-minute allowance.
	ErrRateLimited = errors.New("too many requests")

	errPanic = errors.New("handler panic")
)

const (
	reasonUnauthorized = "unauthorized"
	reasonRateLimited  = "rate_limited"
)

// statusFor maps an error to its HTTP status, reason and client message.
// Only validation failures carry their own message; the rest get a fixed one.
func statusFor(err error) (int, string, string) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, reasonUnauthorized, "Unauthorized"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, reasonRateLimited, "Too Many Requests"
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest, core.ReasonInvalidInput, err.Error()
	case errors.Is(err, core.ErrUpstreamSignal):
		return http.StatusFailedDependency, core.ReasonUpstreamSignal, "upstream dependency failed"
	case errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, core.ReasonStoreUnavailable, "service unavailable"
	default:
		return http.StatusInternalServerError, core.ReasonInternal, "internal server error"
	}
}
