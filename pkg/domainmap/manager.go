package domainmap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/customdomains/pkg/dnsverify"
	"github.com/dmitrymomot/customdomains/pkg/logger"
	"github.com/dmitrymomot/customdomains/pkg/proxyconf"
)

// Manager owns the mapping lifecycle. It is the only component that writes
// mapping status; every transition is a guarded registry update so a
// concurrent change surfaces as ErrStatusChanged instead of being lost.
type Manager struct {
	registry    Registry
	verifier    Verifier
	inspector   Inspector
	provisioner Provisioner
	proxy       ProxyGenerator
	publisher   ConfigPublisher
	notifier    Notifier
	owners      OwnerDirectory
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
	cfg         Config
}

// New returns a Manager. reg and verifier are required; everything else has
// a usable default or is optional (certificate operations return
// ErrNotConfigured without a provisioner or inspector).
func New(reg Registry, verifier Verifier, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		registry: reg,
		verifier: verifier,
		cfg:      cfg,
		proxy:    proxyconf.NewGenerator(""),
		notifier: nopNotifier{},
		owners:   anyOwner{},
		logger:   logger.NewNope(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the lifecycle policy the manager was built with.
func (m *Manager) Config() Config { return m.cfg }

// AddResult is returned by AddDomain.
type AddResult struct {
	Mapping      *Mapping     `json:"mapping"`
	Instructions Instructions `json:"instructions"`
}

// AddDomain registers rawDomain for ownerID in pending status and returns the
// TXT record the owner has to publish.
func (m *Manager) AddDomain(ctx context.Context, ownerID int64, rawDomain string) (*AddResult, error) {
	if ownerID <= 0 {
		return nil, ErrOwnerRequired
	}
	domain, err := dnsverify.Normalize(rawDomain, m.cfg.StripWWW)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDomain, rawDomain)
	}

	if _, err := m.registry.FindByDomain(ctx, domain); err == nil {
		return nil, ErrDomainTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	token, err := dnsverify.GenerateToken()
	if err != nil {
		return nil, err
	}

	now := m.now()
	mp := &Mapping{
		ID:                m.newID(),
		OwnerID:           ownerID,
		Domain:            domain,
		Status:            StatusPending,
		SSLStatus:         SSLNone,
		VerificationToken: token,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := m.registry.Create(ctx, mp, m.cfg.MaxDomainsPerOwner); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "domain mapping created",
		slog.String("mapping_id", mp.ID),
		slog.String("domain", mp.Domain))
	m.notify(ctx, EventMappingCreated, mp, nil)

	return &AddResult{Mapping: mp, Instructions: m.Instructions(mp)}, nil
}

// Instructions describes the TXT record proving ownership of mp.Domain.
func (m *Manager) Instructions(mp *Mapping) Instructions {
	ttl := m.cfg.TXTRecordTTL
	if ttl <= 0 {
		ttl = 300
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Add the following TXT record to the DNS zone of %s:\n\n", mp.Domain)
	fmt.Fprintf(&b, "  Type:  TXT\n")
	fmt.Fprintf(&b, "  Name:  %s (use @ if your provider asks for a host relative to the zone)\n", mp.Domain)
	fmt.Fprintf(&b, "  Value: %s\n", mp.VerificationToken)
	fmt.Fprintf(&b, "  TTL:   %d\n\n", ttl)
	b.WriteString("Then request verification. DNS changes may take up to 48 hours to propagate.")

	return Instructions{
		RecordType:  "TXT",
		RecordName:  mp.Domain,
		RecordValue: mp.VerificationToken,
		TTL:         ttl,
		Text:        b.String(),
	}
}

// VerifyResult is returned by VerifyDomain. A negative result is not an
// error and leaves the status unchanged.
type VerifyResult struct {
	Mapping  *Mapping               `json:"mapping"`
	Check    *dnsverify.CheckResult `json:"check"`
	Verified bool                   `json:"verified"`
}

// VerifyDomain runs the TXT challenge for a pending mapping (or a rejected
// one when Config.ReopenRejected is set).
func (m *Manager) VerifyDomain(ctx context.Context, id string) (*VerifyResult, error) {
	mp, err := m.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := []Status{StatusPending}
	if m.cfg.ReopenRejected {
		allowed = append(allowed, StatusRejected)
	}
	if !slices.Contains(allowed, mp.Status) {
		return nil, stateError("verify", mp.Status)
	}

	check, err := m.verifier.Check(ctx, mp.Domain, mp.VerificationToken)
	if err != nil {
		m.logger.WarnContext(ctx, "domain verification lookup failed",
			slog.String("mapping_id", mp.ID),
			slog.String("domain", mp.Domain),
			slog.String("error", err.Error()))
		return nil, errors.Join(ErrLookupFailed, err)
	}

	now := m.now()
	u := Update{LastCheckedAt: &now, ExpectStatus: allowed}
	if check.Verified {
		u.Status = ptr(StatusVerified)
		u.VerifiedAt = &now
		u.RejectionReason = ptr("")
	}
	updated, err := m.registry.Update(ctx, mp.ID, u)
	if err != nil {
		return nil, err
	}

	if check.Verified {
		m.logger.InfoContext(ctx, "domain verified",
			slog.String("mapping_id", mp.ID),
			slog.String("domain", mp.Domain))
		m.notify(ctx, EventVerified, updated, nil)
	}

	return &VerifyResult{Mapping: updated, Check: check, Verified: check.Verified}, nil
}

// Propagation reports how many public resolvers already see the mapping's
// token. It never changes the mapping.
func (m *Manager) Propagation(ctx context.Context, id string) (*dnsverify.PropagationResult, error) {
	mp, err := m.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := m.verifier.Propagation(ctx, mp.Domain, mp.VerificationToken)
	if err != nil {
		return nil, errors.Join(ErrLookupFailed, err)
	}
	return res, nil
}

// ApproveResult is returned by ApproveDomain.
type ApproveResult struct {
	Mapping     *Mapping          `json:"mapping"`
	ProxyConfig *proxyconf.Config `json:"proxy_config"`
}

// ApproveDomain moves a verified mapping to approved and returns the proxy
// configuration for it. When a publisher is configured the configuration is
// also shipped to the proxy fleet; a publishing failure is logged and does
// not undo the approval.
func (m *Manager) ApproveDomain(ctx context.Context, id string) (*ApproveResult, error) {
	mp, err := m.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if mp.Status != StatusVerified {
		return nil, stateError("approve", mp.Status)
	}

	cfg, err := m.proxy.Generate(mp.Domain, string(mp.SSLStatus), m.cfg.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("domainmap: generate proxy config: %w", err)
	}

	updated, err := m.registry.Update(ctx, mp.ID, Update{
		Status:       ptr(StatusApproved),
		ExpectStatus: []Status{StatusVerified},
	})
	if err != nil {
		return nil, err
	}

	m.publish(ctx, cfg)
	m.logger.InfoContext(ctx, "domain approved",
		slog.String("mapping_id", mp.ID),
		slog.String("domain", mp.Domain))
	m.notify(ctx, EventApproved, updated, nil)

	return &ApproveResult{Mapping: updated, ProxyConfig: cfg}, nil
}

// RejectDomain moves a verified mapping to rejected. The reason is stored
// verbatim and sent with the event.
func (m *Manager) RejectDomain(ctx context.Context, id, reason string) (*Mapping, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}
	mp, err := m.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if mp.Status != StatusVerified {
		return nil, stateError("reject", mp.Status)
	}

	updated, err := m.registry.Update(ctx, mp.ID, Update{
		Status:          ptr(StatusRejected),
		RejectionReason: &reason,
		ExpectStatus:    []Status{StatusVerified},
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "domain rejected",
		slog.String("mapping_id", mp.ID),
		slog.String("domain", mp.Domain))
	m.notify(ctx, EventRejected, updated, map[string]any{"reason": reason})

	return updated, nil
}

// MarkLive moves an approved mapping to live once its certificate setup is
// confirmed.
func (m *Manager) MarkLive(ctx context.Context, id string) (*Mapping, error) {
	mp, err := m.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if mp.Status != StatusApproved {
		return nil, stateError("mark live", mp.Status)
	}

	updated, err := m.registry.Update(ctx, mp.ID, Update{
		Status:       ptr(StatusLive),
		ExpectStatus: []Status{StatusApproved},
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "domain is live",
		slog.String("mapping_id", mp.ID),
		slog.String("domain", mp.Domain))
	return updated, nil
}

// DeleteDomain removes a mapping in any status. A missing id yields
// ErrMappingNotFound, which callers may treat as success.
func (m *Manager) DeleteDomain(ctx context.Context, id string) error {
	mp, err := m.registry.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := m.registry.Delete(ctx, mp.ID); err != nil {
		return err
	}

	if m.publisher != nil {
		if err := m.publisher.Unpublish(ctx, mp.Domain); err != nil {
			m.logger.WarnContext(ctx, "failed to unpublish proxy config",
				slog.String("domain", mp.Domain),
				slog.String("error", err.Error()))
		}
	}
	m.logger.InfoContext(ctx, "domain mapping deleted",
		slog.String("mapping_id", mp.ID),
		slog.String("domain", mp.Domain),
		slog.String("status", string(mp.Status)))
	return nil
}

// GenerateProxyConfig renders proxy configuration for an approved or live
// mapping using its current SSL status.
func (m *Manager) GenerateProxyConfig(ctx context.Context, id string) (*proxyconf.Config, error) {
	mp, err := m.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !mp.Status.Servable() {
		return nil, stateError("generate proxy config for", mp.Status)
	}
	cfg, err := m.proxy.Generate(mp.Domain, string(mp.SSLStatus), m.cfg.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("domainmap: generate proxy config: %w", err)
	}
	return cfg, nil
}

// Get returns a mapping by id.
func (m *Manager) Get(ctx context.Context, id string) (*Mapping, error) {
	return m.registry.Get(ctx, id)
}

// List returns mappings matching f.
func (m *Manager) List(ctx context.Context, f ListFilter) ([]*Mapping, error) {
	return m.registry.List(ctx, f.Normalize())
}

// IsServable reports whether host belongs to an approved or live mapping.
// It backs the "ask" hook of on-demand TLS proxies, so unknown or malformed
// hosts yield false without an error.
func (m *Manager) IsServable(ctx context.Context, host string) (bool, error) {
	domain, err := dnsverify.Normalize(host, false)
	if err != nil {
		return false, nil
	}

	candidates := []string{domain}
	if m.cfg.StripWWW {
		if bare, ok := strings.CutPrefix(domain, "www."); ok {
			candidates = append(candidates, bare)
		}
	}
	for _, d := range candidates {
		mp, err := m.registry.FindByDomain(ctx, d)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		return mp.Status.Servable(), nil
	}
	return false, nil
}

func (m *Manager) publish(ctx context.Context, cfg *proxyconf.Config) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, cfg); err != nil {
		m.logger.WarnContext(ctx, "failed to publish proxy config",
			slog.String("domain", cfg.Domain),
			slog.String("error", err.Error()))
	}
}

func (m *Manager) notify(ctx context.Context, name string, mp *Mapping, payload map[string]any, owners ...int64) {
	if len(owners) == 0 {
		owners = []int64{mp.OwnerID}
	}
	e := Event{
		Name:       name,
		MappingID:  mp.ID,
		Domain:     mp.Domain,
		OwnerIDs:   owners,
		Payload:    payload,
		OccurredAt: m.now(),
	}
	if err := m.notifier.Notify(ctx, e); err != nil {
		m.logger.WarnContext(ctx, "failed to dispatch event",
			slog.String("event", name),
			slog.String("mapping_id", mp.ID),
			slog.String("error", err.Error()))
	}
}
