package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/customdomains/pkg/db"
	"github.com/dmitrymomot/customdomains/pkg/domainmap"
)

const transferRequestColumns = `id, mapping_id, domain, from_owner_id, to_owner_id, reason,
	status, rejection_reason, resolved_by, resolved_at, created_at`

func scanTransferRequest(row pgx.Row) (*domainmap.TransferRequest, error) {
	var req domainmap.TransferRequest
	err := row.Scan(
		&req.ID, &req.MappingID, &req.Domain, &req.FromOwnerID, &req.ToOwnerID, &req.Reason,
		&req.Status, &req.RejectionReason, &req.ResolvedBy, &req.ResolvedAt, &req.CreatedAt,
	)
	if db.IsNotFound(err) {
		return nil, domainmap.ErrTransferNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Transfer runs the owner change, the audit append and the request
// resolution in one transaction. The mapping row is locked first, then the
// new owner's quota lock is taken.
func (r *Registry) Transfer(ctx context.Context, p domainmap.TransferParams) (*domainmap.Mapping, error) {
	now := p.Now
	if now.IsZero() {
		now = r.now()
	}

	var out *domainmap.Mapping
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		m, err := scanMapping(tx.QueryRow(ctx, `SELECT `+mappingColumns+` FROM domain_mappings WHERE id = $1 FOR UPDATE`, p.MappingID))
		if err != nil {
			return err
		}

		if p.Quota > 0 {
			if err := lockOwner(ctx, tx, p.NewOwnerID); err != nil {
				return err
			}
			n, err := countByOwner(ctx, tx, p.NewOwnerID)
			if err != nil {
				return err
			}
			if n >= p.Quota {
				return domainmap.ErrQuotaReached
			}
		}

		if p.RequestID != "" {
			req, err := scanTransferRequest(tx.QueryRow(ctx,
				`SELECT `+transferRequestColumns+` FROM domain_transfer_requests WHERE id = $1 FOR UPDATE`, p.RequestID))
			if err != nil {
				return err
			}
			if req.Status != domainmap.TransferPending {
				return domainmap.ErrTransferNotPending
			}
			if _, err := tx.Exec(ctx, `UPDATE domain_transfer_requests
				SET status = $2, resolved_by = $3, resolved_at = $4 WHERE id = $1`,
				req.ID, domainmap.TransferApproved, p.Actor, now,
			); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, `INSERT INTO domain_transfer_logs
			(id, mapping_id, domain, old_owner_id, new_owner_id, actor, reason, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.LogID, m.ID, m.Domain, m.OwnerID, p.NewOwnerID, p.Actor, p.Reason, now,
		); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE domain_mappings SET owner_id = $2, updated_at = $3 WHERE id = $1`,
			m.ID, p.NewOwnerID, now,
		); err != nil {
			return err
		}

		m.OwnerID = p.NewOwnerID
		m.UpdatedAt = now
		out = m
		return nil
	})
	if err != nil {
		return nil, wrap("transfer mapping", err)
	}
	return out, nil
}

func (r *Registry) TransferLogs(ctx context.Context, mappingID string) ([]*domainmap.TransferLog, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, mapping_id, domain, old_owner_id, new_owner_id, actor, reason, created_at
		FROM domain_transfer_logs WHERE mapping_id = $1 ORDER BY created_at, id`, mappingID)
	if err != nil {
		return nil, fmt.Errorf("pgstore: transfer logs: %w", err)
	}
	defer rows.Close()

	out := []*domainmap.TransferLog{}
	for rows.Next() {
		var l domainmap.TransferLog
		if err := rows.Scan(&l.ID, &l.MappingID, &l.Domain, &l.OldOwnerID, &l.NewOwnerID, &l.Actor, &l.Reason, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgstore: transfer logs: %w", err)
		}
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: transfer logs: %w", err)
	}
	return out, nil
}

func (r *Registry) CreateTransferRequest(ctx context.Context, req *domainmap.TransferRequest) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO domain_transfer_requests (`+transferRequestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		req.ID, req.MappingID, req.Domain, req.FromOwnerID, req.ToOwnerID, req.Reason,
		req.Status, req.RejectionReason, req.ResolvedBy, req.ResolvedAt, req.CreatedAt,
	)
	if db.IsUniqueViolation(err, pendingTransferKey) {
		return domainmap.ErrDuplicateTransfer
	}
	if err != nil {
		return fmt.Errorf("pgstore: create transfer request: %w", err)
	}
	return nil
}

func (r *Registry) GetTransferRequest(ctx context.Context, id string) (*domainmap.TransferRequest, error) {
	req, err := scanTransferRequest(r.pool.QueryRow(ctx,
		`SELECT `+transferRequestColumns+` FROM domain_transfer_requests WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get transfer request", err)
	}
	return req, nil
}

func (r *Registry) ListTransferRequests(ctx context.Context, mappingID string) ([]*domainmap.TransferRequest, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+transferRequestColumns+` FROM domain_transfer_requests
		WHERE mapping_id = $1 ORDER BY created_at, id`, mappingID)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list transfer requests: %w", err)
	}
	defer rows.Close()

	out := []*domainmap.TransferRequest{}
	for rows.Next() {
		req, err := scanTransferRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("pgstore: list transfer requests: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: list transfer requests: %w", err)
	}
	return out, nil
}

func (r *Registry) RejectTransferRequest(ctx context.Context, id, actor, reason string) (*domainmap.TransferRequest, error) {
	var out *domainmap.TransferRequest
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		req, err := scanTransferRequest(tx.QueryRow(ctx,
			`SELECT `+transferRequestColumns+` FROM domain_transfer_requests WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if req.Status != domainmap.TransferPending {
			return domainmap.ErrTransferNotPending
		}
		now := r.now()
		if _, err := tx.Exec(ctx, `UPDATE domain_transfer_requests
			SET status = $2, rejection_reason = $3, resolved_by = $4, resolved_at = $5 WHERE id = $1`,
			id, domainmap.TransferRejected, reason, actor, now,
		); err != nil {
			return err
		}
		req.Status = domainmap.TransferRejected
		req.RejectionReason = reason
		req.ResolvedBy = actor
		req.ResolvedAt = &now
		out = req
		return nil
	})
	if err != nil {
		return nil, wrap("reject transfer request", err)
	}
	return out, nil
}
