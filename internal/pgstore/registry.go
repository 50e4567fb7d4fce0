// Package pgstore is the PostgreSQL implementation of domainmap.Registry.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/customdomains/internal/pgstore/migrations"
	"github.com/dmitrymomot/customdomains/pkg/db"
	"github.com/dmitrymomot/customdomains/pkg/domainmap"
)

const (
	domainKey          = "domain_mappings_domain_key"
	pendingTransferKey = "domain_transfer_requests_pending_key"
)

// Registry stores mappings, transfer requests and the transfer log.
type Registry struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ domainmap.Registry = (*Registry)(nil)

// New wraps an open pool. Call Migrate before first use.
func New(pool *pgxpool.Pool) *Registry {
	return &Registry{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Migrate applies the embedded schema.
func (r *Registry) Migrate(ctx context.Context, table string, log *slog.Logger) (int64, error) {
	return db.Migrate(ctx, r.pool, migrations.FS, ".", table, log)
}

const mappingColumns = `id, owner_id, domain, status, ssl_status, verification_token,
	ssl_certificate_ref, ssl_expiry, rejection_reason, verified_at, last_checked_at,
	created_at, updated_at`

func scanMapping(row pgx.Row) (*domainmap.Mapping, error) {
	var m domainmap.Mapping
	err := row.Scan(
		&m.ID, &m.OwnerID, &m.Domain, &m.Status, &m.SSLStatus, &m.VerificationToken,
		&m.SSLCertificateRef, &m.SSLExpiry, &m.RejectionReason, &m.VerifiedAt, &m.LastCheckedAt,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if db.IsNotFound(err) {
		return nil, domainmap.ErrMappingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// lockOwner serializes quota checks for one owner until the transaction ends.
func lockOwner(ctx context.Context, tx pgx.Tx, ownerID int64) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('domain_owner'), hashtext($1::text))`, ownerID)
	return err
}

func countByOwner(ctx context.Context, q interface {
	QueryRow(context.Context, string, ...any) pgx.Row
}, ownerID int64) (int, error) {
	var n int
	err := q.QueryRow(ctx, `SELECT count(*) FROM domain_mappings WHERE owner_id = $1`, ownerID).Scan(&n)
	return n, err
}

func (r *Registry) Create(ctx context.Context, m *domainmap.Mapping, quota int) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if quota > 0 {
			if err := lockOwner(ctx, tx, m.OwnerID); err != nil {
				return err
			}
			n, err := countByOwner(ctx, tx, m.OwnerID)
			if err != nil {
				return err
			}
			if n >= quota {
				return domainmap.ErrQuotaReached
			}
		}
		_, err := tx.Exec(ctx, `INSERT INTO domain_mappings (`+mappingColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			m.ID, m.OwnerID, m.Domain, m.Status, m.SSLStatus, m.VerificationToken,
			m.SSLCertificateRef, m.SSLExpiry, m.RejectionReason, m.VerifiedAt, m.LastCheckedAt,
			m.CreatedAt, m.UpdatedAt,
		)
		return err
	})
	if db.IsUniqueViolation(err, domainKey) {
		return domainmap.ErrDomainTaken
	}
	if err != nil && !errors.Is(err, domainmap.ErrQuotaReached) {
		return fmt.Errorf("pgstore: create mapping: %w", err)
	}
	return err
}

func (r *Registry) Get(ctx context.Context, id string) (*domainmap.Mapping, error) {
	m, err := scanMapping(r.pool.QueryRow(ctx, `SELECT `+mappingColumns+` FROM domain_mappings WHERE id = $1`, id))
	if err != nil {
		return nil, wrap("get mapping", err)
	}
	return m, nil
}

func (r *Registry) FindByDomain(ctx context.Context, domain string) (*domainmap.Mapping, error) {
	m, err := scanMapping(r.pool.QueryRow(ctx, `SELECT `+mappingColumns+` FROM domain_mappings WHERE domain = $1`, domain))
	if err != nil {
		return nil, wrap("find mapping", err)
	}
	return m, nil
}

func (r *Registry) List(ctx context.Context, f domainmap.ListFilter) ([]*domainmap.Mapping, error) {
	f = f.Normalize()

	statuses := make([]string, len(f.Statuses))
	for i, s := range f.Statuses {
		statuses[i] = string(s)
	}
	sslStatuses := make([]string, len(f.SSLStatuses))
	for i, s := range f.SSLStatuses {
		sslStatuses[i] = string(s)
	}

	rows, err := r.pool.Query(ctx, `SELECT `+mappingColumns+` FROM domain_mappings
		WHERE ($1 = 0 OR owner_id = $1)
		  AND (cardinality($2::text[]) = 0 OR status = ANY($2))
		  AND (cardinality($3::text[]) = 0 OR ssl_status = ANY($3))
		ORDER BY created_at, id
		LIMIT $4 OFFSET $5`,
		f.OwnerID, statuses, sslStatuses, f.PerPage, f.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list mappings: %w", err)
	}
	defer rows.Close()

	out := []*domainmap.Mapping{}
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("pgstore: list mappings: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: list mappings: %w", err)
	}
	return out, nil
}

// Update locks the row, checks the status guard and writes the merged row
// back, so concurrent transitions on one mapping serialize.
func (r *Registry) Update(ctx context.Context, id string, u domainmap.Update) (*domainmap.Mapping, error) {
	var out *domainmap.Mapping
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		m, err := scanMapping(tx.QueryRow(ctx, `SELECT `+mappingColumns+` FROM domain_mappings WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if !u.Allows(m.Status) {
			return domainmap.ErrStatusChanged
		}
		u.Apply(m, r.now())

		_, err = tx.Exec(ctx, `UPDATE domain_mappings SET
			status = $2, ssl_status = $3, ssl_certificate_ref = $4, ssl_expiry = $5,
			rejection_reason = $6, verified_at = $7, last_checked_at = $8, updated_at = $9
			WHERE id = $1`,
			m.ID, m.Status, m.SSLStatus, m.SSLCertificateRef, m.SSLExpiry,
			m.RejectionReason, m.VerifiedAt, m.LastCheckedAt, m.UpdatedAt,
		)
		out = m
		return err
	})
	if err != nil {
		return nil, wrap("update mapping", err)
	}
	return out, nil
}

func (r *Registry) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM domain_mappings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgstore: delete mapping: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainmap.ErrMappingNotFound
	}
	return nil
}

func (r *Registry) CountByOwner(ctx context.Context, ownerID int64) (int, error) {
	n, err := countByOwner(ctx, r.pool, ownerID)
	if err != nil {
		return 0, fmt.Errorf("pgstore: count mappings: %w", err)
	}
	return n, nil
}

// CountByStatus returns the number of mappings per lifecycle status.
func (r *Registry) CountByStatus(ctx context.Context) (map[domainmap.Status]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM domain_mappings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("pgstore: count by status: %w", err)
	}
	defer rows.Close()

	out := make(map[domainmap.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("pgstore: count by status: %w", err)
		}
		out[domainmap.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: count by status: %w", err)
	}
	return out, nil
}

// wrap passes package sentinels through and tags everything else.
func wrap(op string, err error) error {
	if domainmap.KindOf(err) != domainmap.KindInternal {
		return err
	}
	return fmt.Errorf("pgstore: %s: %w", op, err)
}
