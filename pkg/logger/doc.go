// Package logger builds the service's slog loggers.
//
// Loggers are JSON (or text) on stdout, optionally mirrored to Sentry, and
// decorated with context extractors so request and mapping identifiers are
// attached to every record without passing them by hand:
//
//	log := logger.NewWithSentry(sentryCfg, logCfg, logger.DefaultExtractors()...)
//
//	ctx = logger.WithRequestID(ctx, "req-1")
//	ctx = logger.WithMapping(ctx, m.ID, m.Domain)
//	log.InfoContext(ctx, "domain verified")
//	// {"level":"INFO","msg":"domain verified","request_id":"req-1","mapping_id":"...","domain":"shop.example.com"}
//
// Without SENTRY_DSN the Sentry handler is skipped. Errors become Sentry
// issues, warnings are shipped as logs unless MinLevel is error.
//
// NewNope returns a logger that discards everything; packages use it as
// their default when no logger is injected.
package logger
