package domainmap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// TransferInput moves a mapping to another owner.
type TransferInput struct {
	MappingID  string `json:"mapping_id"`
	Actor      string `json:"actor"`
	Reason     string `json:"reason"`
	NewOwnerID int64  `json:"new_owner_id"`
}

// TransferDomain changes the owner of a mapping. The new owner must be an
// active tenant below the quota. The owner change and the audit entry are
// written atomically and the status is preserved.
func (m *Manager) TransferDomain(ctx context.Context, in TransferInput) (*Mapping, error) {
	return m.transfer(ctx, in, "")
}

func (m *Manager) transfer(ctx context.Context, in TransferInput, requestID string) (*Mapping, error) {
	if in.NewOwnerID <= 0 {
		return nil, ErrOwnerRequired
	}
	mp, err := m.registry.Get(ctx, in.MappingID)
	if err != nil {
		return nil, err
	}
	if mp.OwnerID == in.NewOwnerID {
		return nil, ErrSameOwner
	}
	if err := m.ensureActive(ctx, in.NewOwnerID); err != nil {
		return nil, err
	}

	updated, err := m.registry.Transfer(ctx, TransferParams{
		MappingID:  mp.ID,
		NewOwnerID: in.NewOwnerID,
		Actor:      in.Actor,
		Reason:     in.Reason,
		LogID:      m.newID(),
		RequestID:  requestID,
		Quota:      m.cfg.MaxDomainsPerOwner,
		Now:        m.now(),
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "domain transferred",
		slog.String("mapping_id", mp.ID),
		slog.String("domain", mp.Domain),
		slog.Int64("old_owner_id", mp.OwnerID),
		slog.Int64("new_owner_id", in.NewOwnerID))
	m.notify(ctx, EventTransferred, updated, map[string]any{
		"old_owner_id": mp.OwnerID,
		"new_owner_id": in.NewOwnerID,
		"actor":        in.Actor,
		"reason":       in.Reason,
	}, mp.OwnerID, in.NewOwnerID)

	return updated, nil
}

func (m *Manager) ensureActive(ctx context.Context, ownerID int64) error {
	active, err := m.owners.IsActive(ctx, ownerID)
	if err != nil {
		return errors.Join(ErrOwnerLookupFailed, err)
	}
	if !active {
		return ErrOwnerInactive
	}
	return nil
}

// RequestTransferInput is a non-owner's proposal to take over a mapping.
type RequestTransferInput struct {
	MappingID   string `json:"mapping_id"`
	Reason      string `json:"reason"`
	RequesterID int64  `json:"requester_id"`
}

// RequestTransfer records a pending transfer request. Only one pending
// request may exist per domain and requester.
func (m *Manager) RequestTransfer(ctx context.Context, in RequestTransferInput) (*TransferRequest, error) {
	if in.RequesterID <= 0 {
		return nil, ErrOwnerRequired
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, ErrReasonRequired
	}
	mp, err := m.registry.Get(ctx, in.MappingID)
	if err != nil {
		return nil, err
	}
	if mp.OwnerID == in.RequesterID {
		return nil, ErrSameOwner
	}
	if err := m.ensureActive(ctx, in.RequesterID); err != nil {
		return nil, err
	}

	req := &TransferRequest{
		ID:          m.newID(),
		MappingID:   mp.ID,
		Domain:      mp.Domain,
		FromOwnerID: mp.OwnerID,
		ToOwnerID:   in.RequesterID,
		Reason:      in.Reason,
		Status:      TransferPending,
		CreatedAt:   m.now(),
	}
	if err := m.registry.CreateTransferRequest(ctx, req); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "transfer requested",
		slog.String("request_id", req.ID),
		slog.String("domain", req.Domain),
		slog.Int64("requester_id", in.RequesterID))
	return req, nil
}

// ApproveTransferRequest performs the transfer proposed by a pending request
// and resolves the request in the same atomic unit.
func (m *Manager) ApproveTransferRequest(ctx context.Context, requestID, actor string) (*Mapping, error) {
	req, err := m.registry.GetTransferRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != TransferPending {
		return nil, ErrTransferNotPending
	}
	return m.transfer(ctx, TransferInput{
		MappingID:  req.MappingID,
		NewOwnerID: req.ToOwnerID,
		Actor:      actor,
		Reason:     req.Reason,
	}, req.ID)
}

// RejectTransferRequest declines a pending request.
func (m *Manager) RejectTransferRequest(ctx context.Context, requestID, actor, reason string) (*TransferRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}
	req, err := m.registry.RejectTransferRequest(ctx, requestID, actor, reason)
	if err != nil {
		return nil, err
	}
	m.logger.InfoContext(ctx, "transfer request rejected",
		slog.String("request_id", req.ID),
		slog.String("domain", req.Domain))
	return req, nil
}

// ListTransferRequests returns every request filed against a mapping.
func (m *Manager) ListTransferRequests(ctx context.Context, mappingID string) ([]*TransferRequest, error) {
	return m.registry.ListTransferRequests(ctx, mappingID)
}

// TransferHistory returns the audit log of a mapping, oldest first.
func (m *Manager) TransferHistory(ctx context.Context, mappingID string) ([]*TransferLog, error) {
	return m.registry.TransferLogs(ctx, mappingID)
}
