// Package middlewares provides net/http middleware for the domain API:
// request ids, panic recovery, request deadlines, bearer token checks and
// access logging with per-route observation.
//
//	r := chi.NewRouter()
//	r.Use(
//		middlewares.RequestID(),
//		middlewares.Logging(log, m.ObserveRequest),
//		middlewares.Recover(middlewares.WithRecoverLogger(log)),
//		middlewares.Timeout(30*time.Second, writeError),
//	)
//
// Middlewares that fail a request hand the error to an ErrorWriter so the
// API renders it in its own response format.
package middlewares
