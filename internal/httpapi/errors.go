package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/customdomains/middlewares"
	"github.com/dmitrymomot/customdomains/pkg/domainmap"
	"github.com/dmitrymomot/customdomains/pkg/logger"
)

// HTTPError is an error with everything needed to render it.
type HTTPError struct {
	Err     error  `json:"-"`
	Kind    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *HTTPError) Error() string { return e.Message }
func (e *HTTPError) Unwrap() error { return e.Err }

func badRequest(message string, err error) *HTTPError {
	return &HTTPError{Status: http.StatusBadRequest, Kind: string(domainmap.KindValidation), Message: message, Err: err}
}

var kindStatus = map[domainmap.Kind]int{
	domainmap.KindValidation:      http.StatusBadRequest,
	domainmap.KindConflict:        http.StatusConflict,
	domainmap.KindLimitExceeded:   http.StatusUnprocessableEntity,
	domainmap.KindNotFound:        http.StatusNotFound,
	domainmap.KindState:           http.StatusConflict,
	domainmap.KindExternalService: http.StatusBadGateway,
}

// toHTTPError maps domain error kinds to status codes. Internal errors keep
// their message out of the response.
func toHTTPError(err error) *HTTPError {
	var he *HTTPError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case middlewares.IsTimeoutError(err):
		return &HTTPError{Status: http.StatusGatewayTimeout, Kind: "timeout", Message: "request timed out", Err: err}
	case errors.Is(err, middlewares.ErrUnauthorized):
		return &HTTPError{Status: http.StatusUnauthorized, Kind: "unauthorized", Message: "missing or invalid bearer token", Err: err}
	}

	kind := domainmap.KindOf(err)
	if status, ok := kindStatus[kind]; ok {
		return &HTTPError{Status: status, Kind: string(kind), Message: err.Error(), Err: err}
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Kind:    string(domainmap.KindInternal),
		Message: http.StatusText(http.StatusInternalServerError),
		Err:     err,
	}
}

type errorBody struct {
	Error     *HTTPError `json:"error"`
	RequestID string     `json:"request_id,omitempty"`
}

// errorWriter renders errors as JSON and logs the ones that are our fault.
func errorWriter(log *slog.Logger) middlewares.ErrorWriter {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		he := toHTTPError(err)
		if he.Status >= http.StatusInternalServerError {
			log.ErrorContext(r.Context(), "request failed",
				slog.String("path", r.URL.Path),
				slog.Int("status", he.Status),
				slog.Any("error", err),
			)
		}
		writeJSON(w, he.Status, errorBody{Error: he, RequestID: logger.RequestIDFromContext(r.Context())})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
