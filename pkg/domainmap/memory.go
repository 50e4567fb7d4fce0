package domainmap

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryRegistry is an in-process Registry guarded by a single mutex.
// It is intended for tests and single-node development setups.
type MemoryRegistry struct {
	mappings map[string]*Mapping
	byDomain map[string]string
	requests map[string]*TransferRequest
	now      func() time.Time
	logs     []*TransferLog
	mu       sync.RWMutex
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry returns an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		mappings: make(map[string]*Mapping),
		byDomain: make(map[string]string),
		requests: make(map[string]*TransferRequest),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRegistry) Create(_ context.Context, m *Mapping, quota int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byDomain[m.Domain]; ok {
		return ErrDomainTaken
	}
	if quota > 0 && r.countLocked(m.OwnerID) >= quota {
		return ErrQuotaReached
	}
	r.mappings[m.ID] = m.Clone()
	r.byDomain[m.Domain] = m.ID
	return nil
}

func (r *MemoryRegistry) Get(_ context.Context, id string) (*Mapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.mappings[id]
	if !ok {
		return nil, ErrMappingNotFound
	}
	return m.Clone(), nil
}

func (r *MemoryRegistry) FindByDomain(_ context.Context, domain string) (*Mapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byDomain[domain]
	if !ok {
		return nil, ErrMappingNotFound
	}
	return r.mappings[id].Clone(), nil
}

func (r *MemoryRegistry) List(_ context.Context, f ListFilter) ([]*Mapping, error) {
	f = f.Normalize()

	r.mu.RLock()
	matched := make([]*Mapping, 0, len(r.mappings))
	for _, m := range r.mappings {
		if f.Match(m) {
			matched = append(matched, m.Clone())
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b *Mapping) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})

	start := min(f.Offset(), len(matched))
	end := min(start+f.PerPage, len(matched))
	return matched[start:end], nil
}

func (r *MemoryRegistry) Update(_ context.Context, id string, u Update) (*Mapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.mappings[id]
	if !ok {
		return nil, ErrMappingNotFound
	}
	if !u.Allows(m.Status) {
		return nil, ErrStatusChanged
	}
	u.Apply(m, r.now())
	return m.Clone(), nil
}

func (r *MemoryRegistry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.mappings[id]
	if !ok {
		return ErrMappingNotFound
	}
	delete(r.byDomain, m.Domain)
	delete(r.mappings, id)
	// Requests go with their mapping, as the foreign key cascade does.
	for reqID, req := range r.requests {
		if req.MappingID == id {
			delete(r.requests, reqID)
		}
	}
	return nil
}

func (r *MemoryRegistry) CountByOwner(_ context.Context, ownerID int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countLocked(ownerID), nil
}

// CountByStatus returns the number of mappings per lifecycle status.
func (r *MemoryRegistry) CountByStatus(_ context.Context) (map[Status]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[Status]int)
	for _, m := range r.mappings {
		out[m.Status]++
	}
	return out, nil
}

func (r *MemoryRegistry) countLocked(ownerID int64) int {
	n := 0
	for _, m := range r.mappings {
		if m.OwnerID == ownerID {
			n++
		}
	}
	return n
}

// Transfer validates everything before mutating so a failure leaves no
// partial change behind.
func (r *MemoryRegistry) Transfer(_ context.Context, p TransferParams) (*Mapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.mappings[p.MappingID]
	if !ok {
		return nil, ErrMappingNotFound
	}
	if p.Quota > 0 && r.countLocked(p.NewOwnerID) >= p.Quota {
		return nil, ErrQuotaReached
	}

	var req *TransferRequest
	if p.RequestID != "" {
		req, ok = r.requests[p.RequestID]
		if !ok {
			return nil, ErrTransferNotFound
		}
		if req.Status != TransferPending {
			return nil, ErrTransferNotPending
		}
	}

	now := p.Now
	if now.IsZero() {
		now = r.now()
	}

	r.logs = append(r.logs, &TransferLog{
		ID:         p.LogID,
		MappingID:  m.ID,
		Domain:     m.Domain,
		OldOwnerID: m.OwnerID,
		NewOwnerID: p.NewOwnerID,
		Actor:      p.Actor,
		Reason:     p.Reason,
		CreatedAt:  now,
	})
	m.OwnerID = p.NewOwnerID
	m.UpdatedAt = now

	if req != nil {
		req.Status = TransferApproved
		req.ResolvedBy = p.Actor
		req.ResolvedAt = &now
	}
	return m.Clone(), nil
}

func (r *MemoryRegistry) TransferLogs(_ context.Context, mappingID string) ([]*TransferLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*TransferLog{}
	for _, l := range r.logs {
		if l.MappingID == mappingID {
			c := *l
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *MemoryRegistry) CreateTransferRequest(_ context.Context, req *TransferRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.requests {
		if existing.Status == TransferPending &&
			existing.Domain == req.Domain &&
			existing.ToOwnerID == req.ToOwnerID {
			return ErrDuplicateTransfer
		}
	}
	r.requests[req.ID] = req.Clone()
	return nil
}

func (r *MemoryRegistry) GetTransferRequest(_ context.Context, id string) (*TransferRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, ErrTransferNotFound
	}
	return req.Clone(), nil
}

func (r *MemoryRegistry) ListTransferRequests(_ context.Context, mappingID string) ([]*TransferRequest, error) {
	r.mu.RLock()
	out := []*TransferRequest{}
	for _, req := range r.requests {
		if req.MappingID == mappingID {
			out = append(out, req.Clone())
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *TransferRequest) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (r *MemoryRegistry) RejectTransferRequest(_ context.Context, id, actor, reason string) (*TransferRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return nil, ErrTransferNotFound
	}
	if req.Status != TransferPending {
		return nil, ErrTransferNotPending
	}
	now := r.now()
	req.Status = TransferRejected
	req.RejectionReason = reason
	req.ResolvedBy = actor
	req.ResolvedAt = &now
	return req.Clone(), nil
}
