package middlewares

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// PanicError is a recovered panic.
type PanicError struct {
	Value any
	Stack []byte // nil when stack capture is disabled
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// TimeoutError is returned when a handler outlives its deadline.
type TimeoutError struct {
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timeout after %s", e.Duration)
}

// ErrUnauthorized is passed to the error writer when a bearer token is
// missing or wrong.
var ErrUnauthorized = errors.New("middlewares: unauthorized")

// IsPanicError reports whether err is a PanicError.
func IsPanicError(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}

// IsTimeoutError reports whether err is a TimeoutError.
func IsTimeoutError(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// ErrorWriter renders an error produced by a middleware.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// DefaultErrorWriter writes a plain text status response.
func DefaultErrorWriter(w http.ResponseWriter, _ *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case IsTimeoutError(err):
		code = http.StatusGatewayTimeout
	case errors.Is(err, ErrUnauthorized):
		code = http.StatusUnauthorized
	}
	http.Error(w, http.StatusText(code), code)
}
