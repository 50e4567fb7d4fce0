package cdnapi

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotConfigured = errors.New("cdnapi: api token is not configured")
	ErrRequestFailed = errors.New("cdnapi: request failed")
	ErrDecodeFailed  = errors.New("cdnapi: failed to decode response")
	ErrZoneNotFound  = errors.New("cdnapi: zone not found")
	ErrInvalidInput  = errors.New("cdnapi: invalid input")
)

// ErrorDetail is one provider error entry.
type ErrorDetail struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// APIError is returned when the provider rejects a request.
type APIError struct {
	Method     string
	Path       string
	Errors     []ErrorDetail
	StatusCode int
}

func (e *APIError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, d := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%d: %s", d.Code, d.Message))
	}
	if len(msgs) == 0 {
		msgs = append(msgs, "no error details")
	}
	return fmt.Sprintf("cdnapi: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, strings.Join(msgs, "; "))
}

func (e *APIError) Unwrap() error { return ErrRequestFailed }

// HasCode reports whether the provider returned the given error code.
func (e *APIError) HasCode(code int) bool {
	for _, d := range e.Errors {
		if d.Code == code {
			return true
		}
	}
	return false
}
