package middlewares

import (
	"log/slog"
	"net/http"
	"runtime"

	"github.com/dmitrymomot/customdomains/pkg/logger"
)

const DefaultStackSize = 4096

type RecoverConfig struct {
	Logger            *slog.Logger
	ErrorWriter       ErrorWriter
	StackSize         int
	DisablePrintStack bool
}

type RecoverOption func(*RecoverConfig)

func WithRecoverStackSize(size int) RecoverOption {
	return func(cfg *RecoverConfig) {
		cfg.StackSize = size
	}
}

func WithRecoverDisablePrintStack() RecoverOption {
	return func(cfg *RecoverConfig) {
		cfg.DisablePrintStack = true
	}
}

func WithRecoverLogger(l *slog.Logger) RecoverOption {
	return func(cfg *RecoverConfig) {
		cfg.Logger = l
	}
}

func WithRecoverErrorWriter(fn ErrorWriter) RecoverOption {
	return func(cfg *RecoverConfig) {
		cfg.ErrorWriter = fn
	}
}

// Recover turns a handler panic into a logged PanicError rendered by the
// error writer. http.ErrAbortHandler is re-panicked.
func Recover(opts ...RecoverOption) func(http.Handler) http.Handler {
	cfg := &RecoverConfig{
		StackSize:   DefaultStackSize,
		Logger:      logger.NewNope(),
		ErrorWriter: DefaultErrorWriter,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				pe := &PanicError{Value: rec}
				attrs := []any{slog.Any("panic", rec)}
				if !cfg.DisablePrintStack {
					pe.Stack = make([]byte, cfg.StackSize)
					pe.Stack = pe.Stack[:runtime.Stack(pe.Stack, false)]
					attrs = append(attrs, slog.String("stack", string(pe.Stack)))
				}
				cfg.Logger.ErrorContext(r.Context(), "panic recovered", attrs...)
				cfg.ErrorWriter(w, r, pe)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
