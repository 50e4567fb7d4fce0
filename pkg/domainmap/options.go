package domainmap

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/customdomains/pkg/certinspect"
	"github.com/dmitrymomot/customdomains/pkg/dnsverify"
	"github.com/dmitrymomot/customdomains/pkg/proxyconf"
)

// Config holds the lifecycle policy. Embed it in the application config for
// env parsing with caarlos0/env.
type Config struct {
	// UpstreamURL is the storefront origin every custom domain proxies to.
	UpstreamURL string `env:"DOMAINS_UPSTREAM_URL" envDefault:"http://127.0.0.1:8080" yaml:"upstream_url"`

	// MaxDomainsPerOwner caps the mappings a single owner may hold.
	// Zero or less disables the limit.
	MaxDomainsPerOwner int `env:"DOMAINS_MAX_PER_OWNER" envDefault:"5" yaml:"max_domains_per_owner"`

	// TXTRecordTTL is suggested to the owner in the verification instructions.
	TXTRecordTTL int `env:"DOMAINS_TXT_TTL" envDefault:"300" yaml:"txt_record_ttl"`

	// StripWWW drops a leading "www." label during normalization.
	StripWWW bool `env:"DOMAINS_STRIP_WWW" envDefault:"true" yaml:"strip_www"`

	// ReopenRejected lets VerifyDomain run on rejected mappings, moving them
	// back to verified. When false a rejected mapping must be deleted and
	// added again.
	ReopenRejected bool `env:"DOMAINS_REOPEN_REJECTED" envDefault:"false" yaml:"reopen_rejected"`
}

// Verifier runs the DNS TXT challenge. *dnsverify.Checker implements it.
type Verifier interface {
	Check(ctx context.Context, domain, token string) (*dnsverify.CheckResult, error)
	Propagation(ctx context.Context, domain, token string) (*dnsverify.PropagationResult, error)
}

// Inspector reads the certificate served by a domain.
// *certinspect.Inspector implements it.
type Inspector interface {
	Inspect(ctx context.Context, domain string) (*certinspect.Result, error)
}

// ProxyGenerator renders proxy configuration. *proxyconf.Generator
// implements it.
type ProxyGenerator interface {
	Generate(domain, sslStatus, upstream string) (*proxyconf.Config, error)
}

// ConfigPublisher ships rendered proxy configuration to the proxy fleet.
type ConfigPublisher interface {
	Publish(ctx context.Context, cfg *proxyconf.Config) error
	Unpublish(ctx context.Context, domain string) error
}

// ProvisionPlan is what a certificate provider hands back to the caller:
// the SSL status to record and the instructions for the remaining steps.
type ProvisionPlan struct {
	Provider     Provider  `json:"provider"`
	SSLStatus    SSLStatus `json:"ssl_status"`
	Instructions string    `json:"instructions"`
	Command      string    `json:"command,omitempty"`
	ZoneID       string    `json:"zone_id,omitempty"`
	CertFile     string    `json:"cert_file,omitempty"`
	KeyFile      string    `json:"key_file,omitempty"`
	Nameservers  []string  `json:"nameservers,omitempty"`
}

// Provisioner drives a certificate provisioning path.
// *certprovision.Provisioner implements it.
type Provisioner interface {
	Setup(ctx context.Context, m *Mapping, p Provider) (*ProvisionPlan, error)
	Choose(ctx context.Context, m *Mapping) (Provider, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithNotifier sets the lifecycle event dispatcher.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithOwnerDirectory sets the tenant lookup used by transfers.
func WithOwnerDirectory(d OwnerDirectory) Option {
	return func(m *Manager) {
		if d != nil {
			m.owners = d
		}
	}
}

// WithInspector sets the certificate inspector.
func WithInspector(i Inspector) Option {
	return func(m *Manager) { m.inspector = i }
}

// WithProvisioner sets the certificate provisioner.
func WithProvisioner(p Provisioner) Option {
	return func(m *Manager) { m.provisioner = p }
}

// WithProxyGenerator replaces the proxy config generator.
func WithProxyGenerator(g ProxyGenerator) Option {
	return func(m *Manager) {
		if g != nil {
			m.proxy = g
		}
	}
}

// WithConfigPublisher publishes proxy configuration on approval and removes
// it on deletion.
func WithConfigPublisher(p ConfigPublisher) Option {
	return func(m *Manager) { m.publisher = p }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator overrides how record ids are generated.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}
