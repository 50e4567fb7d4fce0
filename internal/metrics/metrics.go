// Package metrics holds the Prometheus instruments of the domain mapper.
// Collectors live on a Metrics value registered with a caller supplied
// registerer, so tests can use a private registry while main registers
// with the default one.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/customdomains/pkg/certprovision"
	"github.com/dmitrymomot/customdomains/pkg/domainmap"
	"github.com/dmitrymomot/customdomains/pkg/health"
)

const namespace = "domainmapper"

// Metrics groups every collector.
type Metrics struct {
	gatherer prometheus.Gatherer

	Events         *prometheus.CounterVec
	NotifyErrors   prometheus.Counter
	Mappings       *prometheus.GaugeVec
	HealthUp       *prometheus.GaugeVec
	HealthDuration *prometheus.GaugeVec
	SweepChecked   prometheus.Gauge
	SweepExpiring  prometheus.Gauge
	SweepFailed    prometheus.Gauge
	SweepLastRun   prometheus.Gauge
	SweepDuration  prometheus.Histogram
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. g serves them
// over HTTP; pass prometheus.DefaultGatherer with DefaultRegisterer.
func New(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	m := &Metrics{
		gatherer: g,
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Lifecycle events emitted, by event name.",
		}, []string{"event"}),
		NotifyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_errors_total",
			Help:      "Events the downstream notifier failed to accept.",
		}),
		Mappings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mappings",
			Help:      "Domain mappings by lifecycle status.",
		}, []string{"status"}),
		HealthUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "health_check_up",
			Help:      "1 when the named health check passed on its last run.",
		}, []string{"check"}),
		HealthDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "health_check_duration_seconds",
			Help:      "Duration of the last run of the named health check.",
		}, []string{"check"}),
		SweepChecked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "renewal_sweep_checked",
			Help:      "Certificates inspected by the last renewal sweep.",
		}),
		SweepExpiring: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "renewal_sweep_expiring",
			Help:      "Certificates at or below the expiry threshold on the last sweep.",
		}),
		SweepFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "renewal_sweep_failed",
			Help:      "Domains the last sweep could not inspect.",
		}),
		SweepLastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "renewal_sweep_last_run_timestamp_seconds",
			Help:      "Unix time the last renewal sweep started.",
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "renewal_sweep_duration_seconds",
			Help:      "Wall time of renewal sweeps.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.Events,
		m.NotifyErrors,
		m.Mappings,
		m.HealthUp,
		m.HealthDuration,
		m.SweepChecked,
		m.SweepExpiring,
		m.SweepFailed,
		m.SweepLastRun,
		m.SweepDuration,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Handler serves the gathered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveHealth is a health.WithObserver callback.
func (m *Metrics) ObserveHealth(name string, c health.Check) {
	up := 0.0
	if c.Status == health.StatusHealthy {
		up = 1
	}
	m.HealthUp.WithLabelValues(name).Set(up)
	m.HealthDuration.WithLabelValues(name).Set(c.Duration.Seconds())
}

// ObserveSweep records a renewal sweep report.
func (m *Metrics) ObserveSweep(r *certprovision.SweepReport) {
	if r == nil {
		return
	}
	m.SweepChecked.Set(float64(r.Checked))
	m.SweepExpiring.Set(float64(len(r.Expiring)))
	m.SweepFailed.Set(float64(len(r.Failed) + len(r.Unreachable)))
	m.SweepLastRun.Set(float64(r.StartedAt.Unix()))
	m.SweepDuration.Observe(r.Duration.Seconds())
}

// SetMappings replaces the per-status mapping gauges. Statuses missing
// from counts are reset to zero.
func (m *Metrics) SetMappings(counts map[domainmap.Status]int) {
	for _, s := range []domainmap.Status{
		domainmap.StatusPending,
		domainmap.StatusVerified,
		domainmap.StatusApproved,
		domainmap.StatusRejected,
		domainmap.StatusLive,
	} {
		m.Mappings.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, code int, took time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(took.Seconds())
}

// Notifier counts events before passing them on to next.
func (m *Metrics) Notifier(next domainmap.Notifier) domainmap.Notifier {
	return domainmap.NotifierFunc(func(ctx context.Context, e domainmap.Event) error {
		m.Events.WithLabelValues(e.Name).Inc()
		if next == nil {
			return nil
		}
		err := next.Notify(ctx, e)
		if err != nil {
			m.NotifyErrors.Inc()
		}
		return err
	})
}
