package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/customdomains/pkg/domainmap"
	"github.com/dmitrymomot/customdomains/pkg/health"
	"github.com/dmitrymomot/customdomains/pkg/logger"
)

// StatusCounter counts mappings per status. Both registries implement it.
type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[domainmap.Status]int, error)
}

// HealthRecorder receives health sample results.
type HealthRecorder interface {
	ObserveHealth(name string, c health.Check)
	SetMappings(counts map[domainmap.Status]int)
}

// HealthSample runs the readiness checks and refreshes mapping gauges on
// a schedule, so dashboards see dependency outages between scrapes of
// /health/ready.
type HealthSample struct {
	checks   health.Checks
	counter  StatusCounter
	recorder HealthRecorder
	log      *slog.Logger
	schedule string
	timeout  time.Duration
}

// NewHealthSample creates the task. Empty schedule means every 30 minutes.
func NewHealthSample(checks health.Checks, counter StatusCounter, recorder HealthRecorder, schedule string, log *slog.Logger) *HealthSample {
	if schedule == "" {
		schedule = "*/30 * * * *"
	}
	if log == nil {
		log = logger.NewNope()
	}
	return &HealthSample{
		checks:   checks,
		counter:  counter,
		recorder: recorder,
		schedule: schedule,
		timeout:  10 * time.Second,
		log:      log,
	}
}

func (t *HealthSample) Name() string     { return "health_sample" }
func (t *HealthSample) Schedule() string { return t.schedule }

// Handle never fails on an unhealthy dependency; the outcome is recorded,
// not retried.
func (t *HealthSample) Handle(ctx context.Context) error {
	opts := []health.Option{health.WithTimeout(t.timeout), health.WithLogger(t.log)}
	if t.recorder != nil {
		opts = append(opts, health.WithObserver(t.recorder.ObserveHealth))
	}

	resp := health.Run(ctx, t.checks, opts...)
	if !resp.Healthy() {
		for name, c := range resp.Checks {
			if c.Status != health.StatusHealthy {
				t.log.WarnContext(ctx, "dependency unhealthy", slog.String("check", name), slog.String("error", c.Error))
			}
		}
	}

	if t.counter == nil {
		return nil
	}
	counts, err := t.counter.CountByStatus(ctx)
	if err != nil {
		t.log.ErrorContext(ctx, "count mappings failed", slog.Any("error", err))
		return nil
	}
	if t.recorder != nil {
		t.recorder.SetMappings(counts)
	}
	return nil
}
