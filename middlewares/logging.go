package middlewares

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// RequestObserver receives one call per finished request. route is the
// matched chi pattern, empty when nothing matched.
type RequestObserver func(route, method string, status int, took time.Duration)

// Logging writes an access log line per request and reports it to
// observers. Server errors log at error level, client errors at warn.
func Logging(log *slog.Logger, observers ...RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := wrapWriter(w)

			next.ServeHTTP(rw, r)

			took := time.Since(start)
			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			for _, observe := range observers {
				observe(route, r.Method, rw.Status(), took)
			}

			level := slog.LevelInfo
			switch {
			case rw.Status() >= http.StatusInternalServerError:
				level = slog.LevelError
			case rw.Status() >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			log.Log(r.Context(), level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", route),
				slog.Int("status", rw.Status()),
				slog.Int64("bytes", rw.written),
				slog.Duration("took", took),
			)
		})
	}
}
