// Package lookupcache puts short-lived caches in front of the DNS
// propagation panel and the certificate inspector. The ownership check
// itself is never cached: verification must see live DNS.
package lookupcache

import (
	"context"
	"time"

	"github.com/dmitrymomot/customdomains/pkg/cache"
	"github.com/dmitrymomot/customdomains/pkg/certinspect"
	"github.com/dmitrymomot/customdomains/pkg/dnsverify"
	"github.com/dmitrymomot/customdomains/pkg/domainmap"
)

// Config holds cache lifetimes.
type Config struct {
	PropagationTTL time.Duration `env:"CACHE_PROPAGATION_TTL" envDefault:"1m" yaml:"propagation_ttl"`
	InspectionTTL  time.Duration `env:"CACHE_INSPECTION_TTL" envDefault:"5m" yaml:"inspection_ttl"`
}

// Verifier caches Propagation results per domain and token.
type Verifier struct {
	next        domainmap.Verifier
	propagation *cache.Loader[*dnsverify.PropagationResult]
}

var _ domainmap.Verifier = (*Verifier)(nil)

// NewVerifier wraps next.
func NewVerifier(next domainmap.Verifier, c cache.Cache[*dnsverify.PropagationResult], ttl time.Duration) *Verifier {
	return &Verifier{next: next, propagation: cache.NewLoader(c, ttl)}
}

func (v *Verifier) Check(ctx context.Context, domain, token string) (*dnsverify.CheckResult, error) {
	return v.next.Check(ctx, domain, token)
}

func (v *Verifier) Propagation(ctx context.Context, domain, token string) (*dnsverify.PropagationResult, error) {
	return v.propagation.Get(ctx, domain+"|"+token, func(ctx context.Context) (*dnsverify.PropagationResult, error) {
		return v.next.Propagation(ctx, domain, token)
	})
}

// Inspector caches inspection results per domain.
type Inspector struct {
	next    domainmap.Inspector
	results *cache.Loader[*certinspect.Result]
}

var _ domainmap.Inspector = (*Inspector)(nil)

// NewInspector wraps next.
func NewInspector(next domainmap.Inspector, c cache.Cache[*certinspect.Result], ttl time.Duration) *Inspector {
	return &Inspector{next: next, results: cache.NewLoader(c, ttl)}
}

func (i *Inspector) Inspect(ctx context.Context, domain string) (*certinspect.Result, error) {
	return i.results.Get(ctx, domain, func(ctx context.Context) (*certinspect.Result, error) {
		return i.next.Inspect(ctx, domain)
	})
}

// Invalidate drops the cached result for domain, e.g. after provisioning.
func (i *Inspector) Invalidate(ctx context.Context, domain string) error {
	return i.results.Forget(ctx, domain)
}
