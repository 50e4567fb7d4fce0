package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	ownerIDKey
	mappingIDKey
	domainKey
)

// WithRequestID stores the request id for RequestID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// WithOwnerID stores the acting owner for OwnerID.
func WithOwnerID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, ownerIDKey, id)
}

// WithMapping stores the mapping being worked on for MappingID and Domain.
func WithMapping(ctx context.Context, id, domain string) context.Context {
	ctx = context.WithValue(ctx, mappingIDKey, id)
	return context.WithValue(ctx, domainKey, domain)
}

// RequestIDFromContext returns the request id or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// RequestID extracts request_id.
func RequestID(ctx context.Context) (slog.Attr, bool) {
	if id := RequestIDFromContext(ctx); id != "" {
		return slog.String("request_id", id), true
	}
	return slog.Attr{}, false
}

// OwnerID extracts owner_id.
func OwnerID(ctx context.Context) (slog.Attr, bool) {
	if id, ok := ctx.Value(ownerIDKey).(int64); ok && id > 0 {
		return slog.Int64("owner_id", id), true
	}
	return slog.Attr{}, false
}

// MappingID extracts mapping_id.
func MappingID(ctx context.Context) (slog.Attr, bool) {
	if id, ok := ctx.Value(mappingIDKey).(string); ok && id != "" {
		return slog.String("mapping_id", id), true
	}
	return slog.Attr{}, false
}

// Domain extracts domain.
func Domain(ctx context.Context) (slog.Attr, bool) {
	if d, ok := ctx.Value(domainKey).(string); ok && d != "" {
		return slog.String("domain", d), true
	}
	return slog.Attr{}, false
}

// DefaultExtractors is the set every service logger is built with.
func DefaultExtractors() []ContextExtractor {
	return []ContextExtractor{RequestID, OwnerID, MappingID, Domain}
}
