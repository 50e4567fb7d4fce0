package domainmap_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/customdomains/pkg/cdnapi"
	"github.com/dmitrymomot/customdomains/pkg/certinspect"
	"github.com/dmitrymomot/customdomains/pkg/dnsverify"
	"github.com/dmitrymomot/customdomains/pkg/domainmap"
	"github.com/dmitrymomot/customdomains/pkg/proxyconf"
)

// fakeDNS is a TXT zone the tests can publish records into.
type fakeDNS struct {
	records map[string][]string
	err     error
	mu      sync.Mutex
}

func newFakeDNS() *fakeDNS {
	return &fakeDNS{records: make(map[string][]string)}
}

func (f *fakeDNS) publish(domain, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[domain] = append(f.records[domain], value)
}

func (f *fakeDNS) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeDNS) LookupTXT(_ context.Context, name string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]string(nil), f.records[name]...), nil
}

// eventLog collects dispatched events.
type eventLog struct {
	events []domainmap.Event
	mu     sync.Mutex
}

func (l *eventLog) Notify(_ context.Context, e domainmap.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Name)
	}
	return out
}

func (l *eventLog) last() domainmap.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}

type fakeProvisioner struct {
	choice domainmap.Provider
	err    error
}

func (p *fakeProvisioner) Setup(_ context.Context, m *domainmap.Mapping, provider domainmap.Provider) (*domainmap.ProvisionPlan, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &domainmap.ProvisionPlan{
		Provider:     provider,
		SSLStatus:    provider.SSLStatus(),
		Instructions: "set up " + m.Domain,
	}, nil
}

func (p *fakeProvisioner) Choose(context.Context, *domainmap.Mapping) (domainmap.Provider, error) {
	return p.choice, nil
}

// managedProvisioner also reports the CDN edge certificate state.
type managedProvisioner struct {
	fakeProvisioner
	status *cdnapi.SSLStatus
}

func (p *managedProvisioner) ManagedStatus(_ context.Context, m *domainmap.Mapping) (*cdnapi.SSLStatus, error) {
	if m.SSLStatus != domainmap.SSLManagedCDN {
		return nil, domainmap.ErrState
	}
	return p.status, nil
}

type fakeInspector struct {
	result *certinspect.Result
}

func (i *fakeInspector) Inspect(_ context.Context, domain string) (*certinspect.Result, error) {
	res := *i.result
	res.Domain = domain
	return &res, nil
}

// cachingInspector records the domains whose cached result was dropped.
type cachingInspector struct {
	fakeInspector
	invalidated []string
	mu          sync.Mutex
}

func (i *cachingInspector) Invalidate(_ context.Context, domain string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.invalidated = append(i.invalidated, domain)
	return nil
}

type recordingPublisher struct {
	published   []string
	unpublished []string
	configs     []*proxyconf.Config
	mu          sync.Mutex
}

func (p *recordingPublisher) Publish(_ context.Context, cfg *proxyconf.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, cfg.Domain)
	p.configs = append(p.configs, cfg)
	return nil
}

func (p *recordingPublisher) Unpublish(_ context.Context, domain string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unpublished = append(p.unpublished, domain)
	return nil
}

type env struct {
	mgr    *domainmap.Manager
	reg    *domainmap.MemoryRegistry
	dns    *fakeDNS
	events *eventLog
}

func newEnv(t *testing.T, cfg domainmap.Config, opts ...domainmap.Option) *env {
	t.Helper()

	if cfg.UpstreamURL == "" {
		cfg.UpstreamURL = "http://127.0.0.1:8080"
	}
	e := &env{
		reg:    domainmap.NewMemoryRegistry(),
		dns:    newFakeDNS(),
		events: &eventLog{},
	}
	checker := dnsverify.NewChecker(
		dnsverify.WithResolver("fake", e.dns),
		dnsverify.WithPanel(dnsverify.NamedResolver{Name: "fake", Resolver: e.dns}),
		dnsverify.WithTimeout(time.Second),
	)
	opts = append([]domainmap.Option{domainmap.WithNotifier(e.events)}, opts...)
	e.mgr = domainmap.New(e.reg, checker, cfg, opts...)
	return e
}

// add creates a mapping and fails the test on error.
func (e *env) add(t *testing.T, owner int64, domain string) *domainmap.Mapping {
	t.Helper()
	res, err := e.mgr.AddDomain(context.Background(), owner, domain)
	require.NoError(t, err)
	return res.Mapping
}

// verified creates a mapping and drives it to verified.
func (e *env) verified(t *testing.T, owner int64, domain string) *domainmap.Mapping {
	t.Helper()
	m := e.add(t, owner, domain)
	e.dns.publish(m.Domain, m.VerificationToken)
	res, err := e.mgr.VerifyDomain(context.Background(), m.ID)
	require.NoError(t, err)
	require.True(t, res.Verified)
	return res.Mapping
}

// approved creates a mapping and drives it to approved.
func (e *env) approved(t *testing.T, owner int64, domain string) *domainmap.Mapping {
	t.Helper()
	m := e.verified(t, owner, domain)
	res, err := e.mgr.ApproveDomain(context.Background(), m.ID)
	require.NoError(t, err)
	return res.Mapping
}
