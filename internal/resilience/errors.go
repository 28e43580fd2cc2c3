// Package resilience provides bounded retry with exponential backoff and
// HTTP-status-aware error classification for the pipeline's API clients.
package resilience

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// StatusError carries the HTTP status of a failed API call so callers can
// branch on rate-limit vs auth vs server failures.
type StatusError struct {
	Service string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.Code, e.Body)
}

// HasStatus reports whether err wraps a StatusError with the given code.
func HasStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// IsRateLimited reports whether err is an HTTP 429.
func IsRateLimited(err error) bool {
	return HasStatus(err, http.StatusTooManyRequests)
}

// IsAuthFailure reports whether err is an HTTP 401 or 403.
func IsAuthFailure(err error) bool {
	return HasStatus(err, http.StatusUnauthorized) || HasStatus(err, http.StatusForbidden)
}

// IsTransient reports whether err is safe to retry: rate limits, server-side
// 5xx, or network-level failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusRequestTimeout,
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED)
}
