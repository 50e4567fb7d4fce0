package tasks

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/customdomains/pkg/certprovision"
	"github.com/dmitrymomot/customdomains/pkg/logger"
)

// Sweeper runs a certificate renewal sweep. *certprovision.Provisioner
// implements it.
type Sweeper interface {
	RenewalSweep(ctx context.Context) (*certprovision.SweepReport, error)
}

// SweepObserver receives every finished sweep report.
type SweepObserver interface {
	ObserveSweep(r *certprovision.SweepReport)
}

// RenewalSweep inspects automated certificates once a day and emits
// cert_expiring for the ones close to expiry.
type RenewalSweep struct {
	sweeper  Sweeper
	observer SweepObserver
	log      *slog.Logger
	schedule string
}

// NewRenewalSweep creates the task. Empty schedule means 03:00 daily.
// observer may be nil.
func NewRenewalSweep(s Sweeper, observer SweepObserver, schedule string, log *slog.Logger) *RenewalSweep {
	if schedule == "" {
		schedule = "0 3 * * *"
	}
	if log == nil {
		log = logger.NewNope()
	}
	return &RenewalSweep{sweeper: s, observer: observer, schedule: schedule, log: log}
}

func (t *RenewalSweep) Name() string     { return "renewal_sweep" }
func (t *RenewalSweep) Schedule() string { return t.schedule }

func (t *RenewalSweep) Handle(ctx context.Context) error {
	report, err := t.sweeper.RenewalSweep(ctx)
	if err != nil {
		t.log.ErrorContext(ctx, "renewal sweep failed", slog.Any("error", err))
		return err
	}
	if t.observer != nil {
		t.observer.ObserveSweep(report)
	}

	t.log.InfoContext(ctx, "renewal sweep finished",
		slog.Int("checked", report.Checked),
		slog.Int("expiring", len(report.Expiring)),
		slog.Int("unreachable", len(report.Unreachable)),
		slog.Int("failed", len(report.Failed)),
		slog.Duration("took", report.Duration),
	)
	for _, c := range report.Expiring {
		t.log.WarnContext(ctx, "certificate expiring",
			slog.String("domain", c.Domain),
			slog.Int("days_remaining", c.DaysRemaining),
			slog.Time("not_after", c.NotAfter),
		)
	}
	return nil
}
