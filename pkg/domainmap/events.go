package domainmap

import (
	"context"
	"time"
)

// Event names passed to Notifier.
const (
	EventMappingCreated  = "mapping_created"
	EventVerified        = "verified"
	EventApproved        = "approved"
	EventRejected        = "rejected"
	EventTransferred     = "transferred"
	EventCertProvisioned = "cert_provisioned"
	EventCertExpiring    = "cert_expiring"
)

// Event is a lifecycle notification. OwnerIDs lists every tenant that
// should hear about it (both parties for a transfer).
type Event struct {
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
	Name       string         `json:"name"`
	MappingID  string         `json:"mapping_id"`
	Domain     string         `json:"domain"`
	OwnerIDs   []int64        `json:"owner_ids"`
}

// Notifier dispatches lifecycle events. Delivery is fire and forget:
// the manager logs a returned error and carries on.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, e Event) error

func (f NotifierFunc) Notify(ctx context.Context, e Event) error { return f(ctx, e) }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) error { return nil }

// OwnerDirectory answers whether a tenant exists and is allowed to hold
// domains.
type OwnerDirectory interface {
	IsActive(ctx context.Context, ownerID int64) (bool, error)
}

// OwnerDirectoryFunc adapts a function to OwnerDirectory.
type OwnerDirectoryFunc func(ctx context.Context, ownerID int64) (bool, error)

func (f OwnerDirectoryFunc) IsActive(ctx context.Context, ownerID int64) (bool, error) {
	return f(ctx, ownerID)
}

// anyOwner treats every non-zero owner id as active.
type anyOwner struct{}

func (anyOwner) IsActive(_ context.Context, ownerID int64) (bool, error) { return ownerID > 0, nil }
