package certprovision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"path"
	"strings"

	"github.com/dmitrymomot/customdomains/pkg/cdnapi"
	"github.com/dmitrymomot/customdomains/pkg/dnsverify"
	"github.com/dmitrymomot/customdomains/pkg/domainmap"
	"github.com/dmitrymomot/customdomains/pkg/logger"
)

// cdnRecordExists is the provider code for "an identical record already
// exists".
const cdnRecordExists = 81053

// CDN is the subset of the CDN API used by the managed path.
// *cdnapi.Client implements it.
type CDN interface {
	FindZone(ctx context.Context, name string) (*cdnapi.Zone, error)
	AddDNSRecord(ctx context.Context, zoneID string, rec cdnapi.DNSRecord) (*cdnapi.DNSRecord, error)
	EnableSSL(ctx context.Context, zoneID, mode string) error
	GetSSLStatus(ctx context.Context, zoneID string) (*cdnapi.SSLStatus, error)
}

// NSResolver looks up nameservers. dnsverify.NetResolver and
// dnsverify.DNSClientResolver implement it.
type NSResolver interface {
	LookupNS(ctx context.Context, name string) ([]string, error)
}

// ZoneFinder discovers the zone apex of a name. dnsverify.DNSClientResolver
// implements it; an NSResolver that also implements it is used for zone
// discovery.
type ZoneFinder interface {
	FindZone(ctx context.Context, name string) (string, error)
}

// Lister is the registry query used by RenewalSweep.
type Lister interface {
	List(ctx context.Context, f domainmap.ListFilter) ([]*domainmap.Mapping, error)
}

// Provisioner implements domainmap.Provisioner.
type Provisioner struct {
	cdn       CDN
	ns        NSResolver
	inspector domainmap.Inspector
	registry  Lister
	notifier  domainmap.Notifier
	logger    *slog.Logger
	lookPath  func(file string) (string, error)
	reachable func(ctx context.Context, domain string) bool
	zoneOf    func(ctx context.Context, domain string) string
	cfg       Config
}

var (
	_ domainmap.Provisioner         = (*Provisioner)(nil)
	_ domainmap.ManagedStatusReader = (*Provisioner)(nil)
	_ ZoneFinder                    = (*dnsverify.DNSClientResolver)(nil)
)

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithCDN enables the API-driven managed path.
func WithCDN(c CDN) Option {
	return func(p *Provisioner) { p.cdn = c }
}

// WithNSResolver replaces the nameserver resolver.
func WithNSResolver(r NSResolver) Option {
	return func(p *Provisioner) {
		if r != nil {
			p.ns = r
		}
	}
}

// WithInspector sets the certificate inspector used by RenewalSweep.
func WithInspector(i domainmap.Inspector) Option {
	return func(p *Provisioner) { p.inspector = i }
}

// WithRegistry sets the mapping source scanned by RenewalSweep.
func WithRegistry(l Lister) Option {
	return func(p *Provisioner) { p.registry = l }
}

// WithNotifier sets the event dispatcher used by RenewalSweep.
func WithNotifier(n domainmap.Notifier) Option {
	return func(p *Provisioner) {
		if n != nil {
			p.notifier = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provisioner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithLookPath replaces exec.LookPath when detecting ACME clients.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(p *Provisioner) {
		if fn != nil {
			p.lookPath = fn
		}
	}
}

// WithReachability replaces the HTTP reachability check.
func WithReachability(fn func(ctx context.Context, domain string) bool) Option {
	return func(p *Provisioner) {
		if fn != nil {
			p.reachable = fn
		}
	}
}

// WithZoneResolver replaces zone discovery for a domain.
func WithZoneResolver(fn func(ctx context.Context, domain string) string) Option {
	return func(p *Provisioner) {
		if fn != nil {
			p.zoneOf = fn
		}
	}
}

// New returns a Provisioner.
func New(cfg Config, opts ...Option) *Provisioner {
	p := &Provisioner{
		cfg:      cfg.withDefaults(),
		ns:       dnsverify.NewNetResolver(""),
		notifier: domainmap.NotifierFunc(func(context.Context, domainmap.Event) error { return nil }),
		logger:   logger.NewNope(),
		lookPath: exec.LookPath,
	}
	p.reachable = p.httpReachable
	p.zoneOf = p.findZone
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Setup prepares the given provisioning path for m.
func (p *Provisioner) Setup(ctx context.Context, m *domainmap.Mapping, provider domainmap.Provider) (*domainmap.ProvisionPlan, error) {
	switch provider {
	case domainmap.ProviderManagedCDN:
		return p.setupManaged(ctx, m)
	case domainmap.ProviderAutomatedCA:
		return p.setupAutomated(m)
	case domainmap.ProviderManual:
		return p.setupManual(m), nil
	}
	return nil, domainmap.ErrInvalidProvider
}

func (p *Provisioner) setupManaged(ctx context.Context, m *domainmap.Mapping) (*domainmap.ProvisionPlan, error) {
	plan := &domainmap.ProvisionPlan{
		Provider:  domainmap.ProviderManagedCDN,
		SSLStatus: domainmap.SSLManagedCDN,
	}
	zoneName := p.zoneOf(ctx, m.Domain)

	if p.cdn == nil {
		plan.Nameservers = p.cfg.CDNNameservers
		plan.Instructions = fmt.Sprintf(
			"Add %s to your CDN account and change the nameservers at your registrar to the ones the CDN assigns (they end in %s). "+
				"Then create a proxied CNAME record for %s pointing to %s. The CDN issues and renews the certificate.",
			zoneName, strings.Join(p.cfg.CDNNameservers, " or "), m.Domain, p.cfg.EdgeHostname)
		return plan, nil
	}

	zone, err := p.cdn.FindZone(ctx, zoneName)
	if err != nil {
		return nil, errors.Join(domainmap.ErrProvisioningFailure, err)
	}
	if err := p.cdn.EnableSSL(ctx, zone.ID, p.cfg.SSLMode); err != nil {
		return nil, errors.Join(domainmap.ErrProvisioningFailure, err)
	}
	_, err = p.cdn.AddDNSRecord(ctx, zone.ID, cdnapi.DNSRecord{
		Type:    "CNAME",
		Name:    m.Domain,
		Content: p.cfg.EdgeHostname,
		Proxied: true,
		Comment: "storefront custom domain " + m.ID,
	})
	var apiErr *cdnapi.APIError
	if err != nil && !(errors.As(err, &apiErr) && apiErr.HasCode(cdnRecordExists)) {
		return nil, errors.Join(domainmap.ErrProvisioningFailure, err)
	}

	p.logger.InfoContext(ctx, "managed cdn zone prepared",
		slog.String("domain", m.Domain),
		slog.String("zone_id", zone.ID))

	plan.ZoneID = zone.ID
	plan.Nameservers = zone.NameServers
	plan.Instructions = fmt.Sprintf(
		"Change the nameservers of %s at your registrar to: %s. "+
			"Once the zone is active the CDN issues the certificate for %s automatically.",
		zone.Name, strings.Join(zone.NameServers, ", "), m.Domain)
	return plan, nil
}

func (p *Provisioner) setupAutomated(m *domainmap.Mapping) (*domainmap.ProvisionPlan, error) {
	if !p.cfg.AutomatedCAEnabled {
		return nil, domainmap.ErrProviderDisabled
	}
	cmd, err := p.cfg.Command(m.Domain)
	if err != nil {
		return nil, errors.Join(domainmap.ErrNotConfigured, err)
	}
	return &domainmap.ProvisionPlan{
		Provider:  domainmap.ProviderAutomatedCA,
		SSLStatus: domainmap.SSLAuto,
		Command:   cmd,
		CertFile:  p.certFile(m.Domain),
		KeyFile:   p.keyFile(m.Domain),
		Instructions: fmt.Sprintf(
			"Make sure http://%s/.well-known/acme-challenge/ is served from %s, then run the command on the proxy host. "+
				"The certificate is written to %s.",
			m.Domain, p.cfg.Webroot, p.certFile(m.Domain)),
	}, nil
}

func (p *Provisioner) setupManual(m *domainmap.Mapping) *domainmap.ProvisionPlan {
	return &domainmap.ProvisionPlan{
		Provider:  domainmap.ProviderManual,
		SSLStatus: domainmap.SSLManual,
		CertFile:  p.certFile(m.Domain),
		KeyFile:   p.keyFile(m.Domain),
		Instructions: fmt.Sprintf(
			"Obtain a certificate covering %s from a certificate authority of your choice. "+
				"Install the full chain as %s and the private key as %s, then reload the proxy.",
			m.Domain, p.certFile(m.Domain), p.keyFile(m.Domain)),
	}
}

func (p *Provisioner) certFile(domain string) string { return path.Join(p.cfg.CertsDir, domain+".crt") }
func (p *Provisioner) keyFile(domain string) string  { return path.Join(p.cfg.CertsDir, domain+".key") }

// Choose picks the provisioning path for m without user input: managed CDN
// when the zone is already delegated, automated CA when an ACME client is
// installed and the domain answers over HTTP, manual otherwise.
func (p *Provisioner) Choose(ctx context.Context, m *domainmap.Mapping) (domainmap.Provider, error) {
	if p.delegatedToCDN(ctx, m.Domain) {
		return domainmap.ProviderManagedCDN, nil
	}
	if p.cfg.AutomatedCAEnabled && p.acmeClientAvailable() && p.reachable(ctx, m.Domain) {
		return domainmap.ProviderAutomatedCA, nil
	}
	return domainmap.ProviderManual, nil
}

func (p *Provisioner) delegatedToCDN(ctx context.Context, domain string) bool {
	if len(p.cfg.CDNNameservers) == 0 {
		return false
	}
	zone := p.zoneOf(ctx, domain)
	servers, err := p.ns.LookupNS(ctx, zone)
	if err != nil {
		p.logger.WarnContext(ctx, "ns lookup failed",
			slog.String("zone", zone),
			slog.String("error", err.Error()))
		return false
	}
	for _, ns := range servers {
		for _, want := range p.cfg.CDNNameservers {
			if want != "" && strings.Contains(strings.ToLower(ns), strings.ToLower(want)) {
				return true
			}
		}
	}
	return false
}

func (p *Provisioner) acmeClientAvailable() bool {
	_, err := p.lookPath(p.cfg.ACMEClient)
	return err == nil
}

func (p *Provisioner) httpReachable(ctx context.Context, domain string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, "http://"+domain+"/", nil)
	if err != nil {
		return false
	}
	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

// ManagedStatus reads the CDN edge certificate status for a managed_cdn
// mapping.
func (p *Provisioner) ManagedStatus(ctx context.Context, m *domainmap.Mapping) (*cdnapi.SSLStatus, error) {
	if m.SSLStatus != domainmap.SSLManagedCDN {
		return nil, fmt.Errorf("%w: mapping does not use the managed cdn path", domainmap.ErrState)
	}
	if p.cdn == nil {
		return nil, errors.Join(domainmap.ErrNotConfigured, ErrCDNNotConfigured)
	}
	zone, err := p.cdn.FindZone(ctx, p.zoneOf(ctx, m.Domain))
	if err != nil {
		return nil, errors.Join(domainmap.ErrProvisioningFailure, err)
	}
	status, err := p.cdn.GetSSLStatus(ctx, zone.ID)
	if err != nil {
		return nil, errors.Join(domainmap.ErrProvisioningFailure, err)
	}
	return status, nil
}

// findZone returns the zone apex for domain using SOA discovery through the
// nameserver resolver, falling back to the last two labels when DNS gives no
// answer or the resolver cannot discover zones.
func (p *Provisioner) findZone(ctx context.Context, domain string) string {
	if zf, ok := p.ns.(ZoneFinder); ok {
		ctx, cancel := context.WithTimeout(ctx, p.cfg.CheckTimeout)
		defer cancel()

		zone, err := zf.FindZone(ctx, domain)
		if err == nil && zone != "" {
			return zone
		}
		p.logger.DebugContext(ctx, "zone discovery failed, using the registrable suffix",
			slog.String("domain", domain),
			slog.Any("error", err))
	}
	labels := strings.Split(domain, ".")
	if len(labels) <= 2 {
		return domain
	}
	return strings.Join(labels[len(labels)-2:], ".")
}
