package domainmap

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/dmitrymomot/customdomains/pkg/cdnapi"
	"github.com/dmitrymomot/customdomains/pkg/certinspect"
)

// Certificates are only set up for domains the proxy fleet serves.
var certificateStatuses = []Status{StatusApproved, StatusLive}

// invalidator is implemented by inspectors that cache their results.
type invalidator interface {
	Invalidate(ctx context.Context, domain string) error
}

// CertificateResult is returned by SetupCertificate and AutoProvision.
type CertificateResult struct {
	Mapping *Mapping       `json:"mapping"`
	Plan    *ProvisionPlan `json:"plan"`
}

// SetupCertificate runs the given provisioning path and records the
// resulting SSL status.
func (m *Manager) SetupCertificate(ctx context.Context, id string, provider Provider) (*CertificateResult, error) {
	if !provider.Valid() {
		return nil, ErrInvalidProvider
	}
	if m.provisioner == nil {
		return nil, ErrNotConfigured
	}
	mp, err := m.certificateMapping(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.setupCertificate(ctx, mp, provider)
}

// AutoProvision picks the best provisioning path for the mapping and runs it.
func (m *Manager) AutoProvision(ctx context.Context, id string) (*CertificateResult, error) {
	if m.provisioner == nil {
		return nil, ErrNotConfigured
	}
	mp, err := m.certificateMapping(ctx, id)
	if err != nil {
		return nil, err
	}
	provider, err := m.provisioner.Choose(ctx, mp)
	if err != nil {
		return nil, provisioningError(err)
	}
	m.logger.DebugContext(ctx, "provisioning path chosen",
		slog.String("domain", mp.Domain),
		slog.String("provider", string(provider)))
	return m.setupCertificate(ctx, mp, provider)
}

func (m *Manager) certificateMapping(ctx context.Context, id string) (*Mapping, error) {
	mp, err := m.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(certificateStatuses, mp.Status) {
		return nil, stateError("set up a certificate for", mp.Status)
	}
	return mp, nil
}

func (m *Manager) setupCertificate(ctx context.Context, mp *Mapping, provider Provider) (*CertificateResult, error) {
	plan, err := m.provisioner.Setup(ctx, mp, provider)
	if err != nil {
		return nil, provisioningError(err)
	}

	updated, err := m.registry.Update(ctx, mp.ID, Update{
		SSLStatus:    ptr(plan.SSLStatus),
		ExpectStatus: certificateStatuses,
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "certificate provisioning set up",
		slog.String("mapping_id", mp.ID),
		slog.String("domain", mp.Domain),
		slog.String("provider", string(plan.Provider)))
	m.forgetInspection(ctx, updated.Domain)

	// The TLS directives depend on the SSL status, so the fleet needs the
	// new rendering.
	if m.publisher != nil && updated.Status.Servable() {
		cfg, err := m.proxy.Generate(updated.Domain, string(updated.SSLStatus), m.cfg.UpstreamURL)
		if err != nil {
			m.logger.WarnContext(ctx, "failed to render proxy config",
				slog.String("domain", updated.Domain),
				slog.String("error", err.Error()))
		} else {
			m.publish(ctx, cfg)
		}
	}
	m.notify(ctx, EventCertProvisioned, updated, map[string]any{
		"provider":   string(plan.Provider),
		"ssl_status": string(plan.SSLStatus),
	})

	return &CertificateResult{Mapping: updated, Plan: plan}, nil
}

// ManagedStatusReader is implemented by provisioners that can report the
// CDN edge certificate state. *certprovision.Provisioner implements it.
type ManagedStatusReader interface {
	ManagedStatus(ctx context.Context, m *Mapping) (*cdnapi.SSLStatus, error)
}

// ManagedCertificateStatus reads the edge certificate state of a mapping on
// the managed_cdn path.
func (m *Manager) ManagedCertificateStatus(ctx context.Context, id string) (*cdnapi.SSLStatus, error) {
	reader, ok := m.provisioner.(ManagedStatusReader)
	if !ok {
		return nil, ErrNotConfigured
	}
	mp, err := m.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	status, err := reader.ManagedStatus(ctx, mp)
	if err != nil {
		return nil, provisioningError(err)
	}
	return status, nil
}

func provisioningError(err error) error {
	if KindOf(err) == KindInternal {
		return errors.Join(ErrProvisioningFailure, err)
	}
	return err
}

// InspectCertificate reads the certificate currently served by the
// mapping's domain.
func (m *Manager) InspectCertificate(ctx context.Context, id string) (*certinspect.Result, error) {
	if m.inspector == nil {
		return nil, ErrNotConfigured
	}
	mp, err := m.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := m.inspector.Inspect(ctx, mp.Domain)
	if err != nil {
		return nil, errors.Join(ErrExternalService, err)
	}
	return res, nil
}

// SyncResult is returned by SyncCertificate.
type SyncResult struct {
	Mapping    *Mapping            `json:"mapping"`
	Inspection *certinspect.Result `json:"inspection"`
}

// SyncCertificate inspects the served certificate and stores its reference
// and expiry on the mapping. A cached inspection is dropped first. Nothing is
// written when no certificate is served.
func (m *Manager) SyncCertificate(ctx context.Context, id string) (*SyncResult, error) {
	if m.inspector == nil {
		return nil, ErrNotConfigured
	}
	mp, err := m.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m.forgetInspection(ctx, mp.Domain)

	res, err := m.InspectCertificate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.Present {
		mp, err := m.registry.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return &SyncResult{Mapping: mp, Inspection: res}, nil
	}

	notAfter := res.NotAfter
	updated, err := m.registry.Update(ctx, id, Update{
		SSLCertificateRef: ptr(res.Ref()),
		SSLExpiry:         &notAfter,
	})
	if err != nil {
		return nil, err
	}
	return &SyncResult{Mapping: updated, Inspection: res}, nil
}

func (m *Manager) forgetInspection(ctx context.Context, domain string) {
	inv, ok := m.inspector.(invalidator)
	if !ok {
		return
	}
	if err := inv.Invalidate(ctx, domain); err != nil {
		m.logger.WarnContext(ctx, "failed to drop cached inspection",
			slog.String("domain", domain),
			slog.String("error", err.Error()))
	}
}
