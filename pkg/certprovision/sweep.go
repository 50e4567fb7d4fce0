package certprovision

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/customdomains/pkg/certinspect"
	"github.com/dmitrymomot/customdomains/pkg/domainmap"
)

const sweepPageSize = 200

// ExpiringCertificate is one cert_expiring hit from a sweep.
type ExpiringCertificate struct {
	NotAfter      time.Time `json:"not_after"`
	MappingID     string    `json:"mapping_id"`
	Domain        string    `json:"domain"`
	Issuer        string    `json:"issuer"`
	DaysRemaining int       `json:"days_remaining"`
	OwnerID       int64     `json:"owner_id"`
}

// SweepReport summarizes a renewal sweep.
type SweepReport struct {
	StartedAt   time.Time             `json:"started_at"`
	Expiring    []ExpiringCertificate `json:"expiring"`
	Unreachable []string              `json:"unreachable"`
	Failed      []string              `json:"failed"`
	Duration    time.Duration         `json:"duration"`
	Checked     int                   `json:"checked"`
}

// RenewalSweep inspects every mapping with an automated certificate (ssl
// status auto or managed_cdn) and emits cert_expiring for certificates at
// or below the configured threshold. It never modifies mappings.
func (p *Provisioner) RenewalSweep(ctx context.Context) (*SweepReport, error) {
	if p.inspector == nil {
		return nil, ErrInspectorNotConfigured
	}
	if p.registry == nil {
		return nil, ErrRegistryNotConfigured
	}
	report := &SweepReport{StartedAt: time.Now(), Expiring: []ExpiringCertificate{}, Unreachable: []string{}, Failed: []string{}}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(p.cfg.SweepConcurrency)

	filter := domainmap.ListFilter{
		SSLStatuses: []domainmap.SSLStatus{domainmap.SSLAuto, domainmap.SSLManagedCDN},
		PerPage:     sweepPageSize,
	}
	for page := 1; ; page++ {
		filter.Page = page
		batch, err := p.registry.List(ctx, filter)
		if err != nil {
			_ = g.Wait()
			return nil, err
		}
		for _, m := range batch {
			g.Go(func() error {
				outcome, hit := p.inspectMapping(ctx, m)

				mu.Lock()
				defer mu.Unlock()
				report.Checked++
				switch outcome {
				case outcomeFailed:
					report.Failed = append(report.Failed, m.Domain)
				case outcomeUnreachable:
					report.Unreachable = append(report.Unreachable, m.Domain)
				case outcomeExpiring:
					report.Expiring = append(report.Expiring, *hit)
				}
				return nil
			})
		}
		if len(batch) < sweepPageSize {
			break
		}
	}
	_ = g.Wait()

	report.Duration = time.Since(report.StartedAt)
	p.logger.InfoContext(ctx, "renewal sweep finished",
		slog.Int("checked", report.Checked),
		slog.Int("expiring", len(report.Expiring)),
		slog.Int("unreachable", len(report.Unreachable)),
		slog.Int("failed", len(report.Failed)),
		slog.Duration("duration", report.Duration))
	return report, ctx.Err()
}

type sweepOutcome int

const (
	outcomeHealthy sweepOutcome = iota
	outcomeExpiring
	outcomeUnreachable
	outcomeFailed
)

// inspectMapping inspects one mapping and notifies the owner when its certificate
// is expiring.
func (p *Provisioner) inspectMapping(ctx context.Context, m *domainmap.Mapping) (sweepOutcome, *ExpiringCertificate) {
	res, err := p.inspector.Inspect(ctx, m.Domain)
	if err != nil {
		p.logger.WarnContext(ctx, "certificate inspection failed",
			slog.String("domain", m.Domain),
			slog.String("error", err.Error()))
		return outcomeFailed, nil
	}
	if !res.Present {
		return outcomeUnreachable, nil
	}
	if res.DaysRemaining > p.cfg.ExpiryThresholdDays {
		return outcomeHealthy, nil
	}

	hit := &ExpiringCertificate{
		MappingID:     m.ID,
		Domain:        m.Domain,
		OwnerID:       m.OwnerID,
		Issuer:        res.Issuer,
		NotAfter:      res.NotAfter,
		DaysRemaining: res.DaysRemaining,
	}
	p.notifyExpiring(ctx, m, res)
	return outcomeExpiring, hit
}

func (p *Provisioner) notifyExpiring(ctx context.Context, m *domainmap.Mapping, res *certinspect.Result) {
	err := p.notifier.Notify(ctx, domainmap.Event{
		Name:      domainmap.EventCertExpiring,
		MappingID: m.ID,
		Domain:    m.Domain,
		OwnerIDs:  []int64{m.OwnerID},
		Payload: map[string]any{
			"days_remaining": res.DaysRemaining,
			"not_after":      res.NotAfter,
			"issuer":         res.Issuer,
			"ssl_status":     string(m.SSLStatus),
			"valid":          res.Valid,
		},
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		p.logger.WarnContext(ctx, "failed to dispatch cert_expiring",
			slog.String("domain", m.Domain),
			slog.String("error", err.Error()))
	}
}
