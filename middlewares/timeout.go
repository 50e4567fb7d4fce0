package middlewares

import (
	"context"
	"errors"
	"net/http"
	"time"
)

const DefaultTimeout = 30 * time.Second

// Timeout bounds the request context. Handlers are expected to honor it;
// when one returns after the deadline without writing a response the
// error writer renders a TimeoutError.
func Timeout(timeout time.Duration, errorWriter ErrorWriter) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if errorWriter == nil {
		errorWriter = DefaultErrorWriter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			rw := wrapWriter(w)
			next.ServeHTTP(rw, r.WithContext(ctx))

			if errors.Is(ctx.Err(), context.DeadlineExceeded) && !rw.wroteHeader() {
				errorWriter(rw, r, &TimeoutError{Duration: timeout})
			}
		})
	}
}
