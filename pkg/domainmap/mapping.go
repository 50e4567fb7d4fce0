package domainmap

import (
	"slices"
	"time"
)

// Status is the lifecycle state of a domain mapping.
type Status string

const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusLive     Status = "live"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusApproved, StatusRejected, StatusLive:
		return true
	}
	return false
}

// Servable reports whether traffic for a mapping in this status may be
// proxied and certificates may be requested for it.
func (s Status) Servable() bool {
	return s == StatusApproved || s == StatusLive
}

// SSLStatus records which certificate path a mapping uses.
type SSLStatus string

const (
	SSLNone       SSLStatus = "none"
	SSLManual     SSLStatus = "manual"
	SSLAuto       SSLStatus = "auto"
	SSLManagedCDN SSLStatus = "managed_cdn"
)

// Valid reports whether s is a known SSL status.
func (s SSLStatus) Valid() bool {
	switch s {
	case SSLNone, SSLManual, SSLAuto, SSLManagedCDN:
		return true
	}
	return false
}

// Provider is a certificate provisioning path.
type Provider string

const (
	ProviderManagedCDN  Provider = "managed_cdn"
	ProviderAutomatedCA Provider = "automated_ca"
	ProviderManual      Provider = "manual"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderManagedCDN, ProviderAutomatedCA, ProviderManual:
		return true
	}
	return false
}

// SSLStatus returns the mapping SSL status a provider results in.
func (p Provider) SSLStatus() SSLStatus {
	switch p {
	case ProviderManagedCDN:
		return SSLManagedCDN
	case ProviderAutomatedCA:
		return SSLAuto
	case ProviderManual:
		return SSLManual
	}
	return SSLNone
}

// Mapping binds a custom domain to an owner (tenant).
type Mapping struct {
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	SSLExpiry         *time.Time `json:"ssl_expiry,omitempty"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	LastCheckedAt     *time.Time `json:"last_checked_at,omitempty"`
	ID                string     `json:"id"`
	Domain            string     `json:"domain"`
	Status            Status     `json:"status"`
	SSLStatus         SSLStatus  `json:"ssl_status"`
	VerificationToken string     `json:"verification_token"`
	SSLCertificateRef string     `json:"ssl_certificate_ref,omitempty"`
	RejectionReason   string     `json:"rejection_reason,omitempty"`
	OwnerID           int64      `json:"owner_id"`
}

// Clone returns a deep copy of m.
func (m *Mapping) Clone() *Mapping {
	if m == nil {
		return nil
	}
	c := *m
	c.SSLExpiry = cloneTime(m.SSLExpiry)
	c.VerifiedAt = cloneTime(m.VerifiedAt)
	c.LastCheckedAt = cloneTime(m.LastCheckedAt)
	return &c
}

// TransferStatus is the state of a two-party transfer request.
type TransferStatus string

const (
	TransferPending  TransferStatus = "pending"
	TransferApproved TransferStatus = "approved"
	TransferRejected TransferStatus = "rejected"
)

// TransferRequest is a proposal by a non-owner to take over a mapping.
type TransferRequest struct {
	CreatedAt       time.Time      `json:"created_at"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
	ID              string         `json:"id"`
	MappingID       string         `json:"mapping_id"`
	Domain          string         `json:"domain"`
	Reason          string         `json:"reason"`
	Status          TransferStatus `json:"status"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	ResolvedBy      string         `json:"resolved_by,omitempty"`
	FromOwnerID     int64          `json:"from_owner_id"`
	ToOwnerID       int64          `json:"to_owner_id"`
}

// Clone returns a deep copy of r.
func (r *TransferRequest) Clone() *TransferRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.ResolvedAt = cloneTime(r.ResolvedAt)
	return &c
}

// TransferLog is an append-only audit entry for an ownership change.
type TransferLog struct {
	CreatedAt  time.Time `json:"created_at"`
	ID         string    `json:"id"`
	MappingID  string    `json:"mapping_id"`
	Domain     string    `json:"domain"`
	Actor      string    `json:"actor"`
	Reason     string    `json:"reason"`
	OldOwnerID int64     `json:"old_owner_id"`
	NewOwnerID int64     `json:"new_owner_id"`
}

// Instructions tell the owner which DNS record proves ownership.
type Instructions struct {
	RecordType  string `json:"record_type"`
	RecordName  string `json:"record_name"`
	RecordValue string `json:"record_value"`
	Text        string `json:"text"`
	TTL         int    `json:"ttl"`
}

// ListFilter narrows Registry.List. Zero values mean "any".
type ListFilter struct {
	Statuses    []Status
	SSLStatuses []SSLStatus
	OwnerID     int64
	Page        int
	PerPage     int
}

const (
	defaultPerPage = 50
	maxPerPage     = 500
)

// Normalize fills paging defaults.
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = defaultPerPage
	}
	f.PerPage = min(f.PerPage, maxPerPage)
	return f
}

// Offset returns the number of rows to skip for the current page.
func (f ListFilter) Offset() int {
	f = f.Normalize()
	return (f.Page - 1) * f.PerPage
}

// Match reports whether m passes the owner and status filters.
func (f ListFilter) Match(m *Mapping) bool {
	if f.OwnerID != 0 && m.OwnerID != f.OwnerID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, m.Status) {
		return false
	}
	if len(f.SSLStatuses) > 0 && !slices.Contains(f.SSLStatuses, m.SSLStatus) {
		return false
	}
	return true
}

// Update is a partial update applied by Registry.Update. Nil fields are left
// untouched. When ExpectStatus is not empty the update only applies if the
// stored status is one of them; otherwise ErrStatusChanged is returned.
type Update struct {
	Status            *Status
	SSLStatus         *SSLStatus
	SSLCertificateRef *string
	SSLExpiry         *time.Time
	RejectionReason   *string
	VerifiedAt        *time.Time
	LastCheckedAt     *time.Time
	ExpectStatus      []Status
}

// Apply copies the non-nil fields onto m and stamps UpdatedAt.
func (u Update) Apply(m *Mapping, now time.Time) {
	if u.Status != nil {
		m.Status = *u.Status
	}
	if u.SSLStatus != nil {
		m.SSLStatus = *u.SSLStatus
	}
	if u.SSLCertificateRef != nil {
		m.SSLCertificateRef = *u.SSLCertificateRef
	}
	if u.SSLExpiry != nil {
		m.SSLExpiry = cloneTime(u.SSLExpiry)
	}
	if u.RejectionReason != nil {
		m.RejectionReason = *u.RejectionReason
	}
	if u.VerifiedAt != nil {
		m.VerifiedAt = cloneTime(u.VerifiedAt)
	}
	if u.LastCheckedAt != nil {
		m.LastCheckedAt = cloneTime(u.LastCheckedAt)
	}
	m.UpdatedAt = now
}

// Allows reports whether the guard accepts status s.
func (u Update) Allows(s Status) bool {
	return len(u.ExpectStatus) == 0 || slices.Contains(u.ExpectStatus, s)
}

// TransferParams describes one atomic ownership change.
type TransferParams struct {
	Now        time.Time
	MappingID  string
	Actor      string
	Reason     string
	LogID      string
	RequestID  string // optional; resolves a pending TransferRequest in the same unit
	NewOwnerID int64
	Quota      int
}

func ptr[T any](v T) *T { return &v }

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
