package domainmap

import "context"

// Registry persists mappings, transfer requests and the transfer audit log.
//
// Implementations must make Create atomic with the domain uniqueness and
// owner quota checks, and Transfer atomic with the audit append. Errors wrap
// the package sentinels (ErrDomainTaken, ErrQuotaReached, ErrMappingNotFound,
// ErrStatusChanged, ErrDuplicateTransfer, ErrTransferNotFound,
// ErrTransferNotPending).
type Registry interface {
	// Create inserts m. quota <= 0 disables the owner limit.
	Create(ctx context.Context, m *Mapping, quota int) error
	Get(ctx context.Context, id string) (*Mapping, error)
	FindByDomain(ctx context.Context, domain string) (*Mapping, error)
	List(ctx context.Context, f ListFilter) ([]*Mapping, error)
	// Update applies u and returns the stored mapping after the change.
	Update(ctx context.Context, id string, u Update) (*Mapping, error)
	Delete(ctx context.Context, id string) error
	CountByOwner(ctx context.Context, ownerID int64) (int, error)

	// Transfer moves the mapping to p.NewOwnerID, appends the audit entry
	// and, when p.RequestID is set, marks that pending request approved.
	Transfer(ctx context.Context, p TransferParams) (*Mapping, error)
	TransferLogs(ctx context.Context, mappingID string) ([]*TransferLog, error)

	CreateTransferRequest(ctx context.Context, r *TransferRequest) error
	GetTransferRequest(ctx context.Context, id string) (*TransferRequest, error)
	ListTransferRequests(ctx context.Context, mappingID string) ([]*TransferRequest, error)
	// RejectTransferRequest resolves a pending request as rejected.
	RejectTransferRequest(ctx context.Context, id, actor, reason string) (*TransferRequest, error)
}
