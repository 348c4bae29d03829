// Package apperr defines the error taxonomy shared by the gateway components.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation indicates bad or oversized caller input.
	ErrValidation = errors.New("validation error")
	// ErrRateLimited indicates the caller exceeded its request budget.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrUpstream indicates the model or tool service failed or timed out.
	ErrUpstream = errors.New("upstream error")
	// ErrStorage indicates an artifact store operation failed.
	ErrStorage = errors.New("storage error")
	// ErrConfiguration indicates an unrecognized model id or other static misconfiguration.
	ErrConfiguration = errors.New("configuration error")
	// ErrConflict indicates a compare-and-set lost against a newer write.
	ErrConflict = errors.New("conflict")
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("not found")
)

// Status maps an error to the HTTP status the gateway reports for it.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Type returns the short error type reported in JSON error bodies.
func Type(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrConfiguration):
		return "configuration_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrRateLimited):
		return "rate_limit_error"
	case errors.Is(err, ErrUpstream):
		return "upstream_error"
	case errors.Is(err, ErrStorage):
		return "storage_error"
	default:
		return "server_error"
	}
}
