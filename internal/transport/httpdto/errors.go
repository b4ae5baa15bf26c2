package httpdto

import (
	"errors"
	"net/http"

	snapper_errors "guest-snapper/pkg/errors"
)

const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeNotFound       = "NOT_FOUND"
	CodeAlreadyExists  = "ALREADY_EXISTS"
	CodeRateLimited    = "RATE_LIMITED"
	CodeUnavailable    = "SERVICE_UNAVAILABLE"
	CodeInternal       = "INTERNAL_ERROR"
)

var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{snapper_errors.ErrInvalidInput, http.StatusBadRequest, CodeInvalidRequest},
	{snapper_errors.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{snapper_errors.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists},
	{snapper_errors.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited},
	{snapper_errors.ErrServiceUnavailable, http.StatusServiceUnavailable, CodeUnavailable},
}

// StatusFor maps a service error to its HTTP status and response code.
func StatusFor(err error) (int, string) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// ErrorForCode turns a response code back into the matching sentinel, or nil if unknown.
func ErrorForCode(code string) error {
	for _, e := range errorCodes {
		if e.code == code {
			return e.err
		}
	}
	return nil
}
