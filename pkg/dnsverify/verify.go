package dnsverify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/customdomains/pkg/logger"
)

const (
	// DefaultTimeout bounds each individual lookup.
	DefaultTimeout = 5 * time.Second
	// MaxTimeout is the upper bound accepted by WithTimeout.
	MaxTimeout = 10 * time.Second
)

// Server is a named public recursive resolver.
type Server struct {
	Name    string
	Address string
}

// DefaultPanel is the set of independent public resolvers used to estimate
// propagation.
var DefaultPanel = []Server{
	{Name: "google", Address: "8.8.8.8:53"},
	{Name: "cloudflare", Address: "1.1.1.1:53"},
	{Name: "quad9", Address: "9.9.9.9:53"},
	{Name: "opendns", Address: "208.67.222.222:53"},
}

// NamedResolver pairs a resolver with a label used in results and logs.
type NamedResolver struct {
	Resolver Resolver
	Name     string
}

// CheckResult is the outcome of a TXT challenge lookup. Verified is false
// with empty AllRecords when the name has no TXT records at all, and false
// with non-empty AllRecords when records exist but none carries the token.
type CheckResult struct {
	Domain         string   `json:"domain"`
	AllRecords     []string `json:"all_records"`
	MatchedRecords []string `json:"matched_records"`
	Verified       bool     `json:"verified"`
}

// ResolverResult is one panel member's view of the challenge.
type ResolverResult struct {
	Name     string   `json:"name"`
	Error    string   `json:"error,omitempty"`
	Records  []string `json:"records"`
	Verified bool     `json:"verified"`
}

// PropagationResult summarizes how many panel resolvers see the token.
type PropagationResult struct {
	Domain           string           `json:"domain"`
	Resolvers        []ResolverResult `json:"resolvers"`
	TotalResolvers   int              `json:"total_resolvers"`
	MatchedResolvers int              `json:"matched_resolvers"`
	Percentage       float64          `json:"percentage"`
}

// Checker performs TXT challenge lookups. It holds no mutable state and is
// safe for concurrent use.
type Checker struct {
	logger       *slog.Logger
	resolvers    []NamedResolver
	panel        []NamedResolver
	panelServers []Server
	timeout      time.Duration
}

// Option configures a Checker.
type Option func(*Checker)

// WithResolver adds a resolver used by Check. Without any, the system
// resolver is used.
func WithResolver(name string, r Resolver) Option {
	return func(c *Checker) {
		c.resolvers = append(c.resolvers, NamedResolver{Name: name, Resolver: r})
	}
}

// WithPanel replaces the propagation panel.
func WithPanel(panel ...NamedResolver) Option {
	return func(c *Checker) {
		c.panel = slices.Clone(panel)
		c.panelServers = nil
	}
}

// WithPanelServers builds the propagation panel from server addresses using
// DNSClientResolver. The resolvers use the final WithTimeout value regardless
// of option order.
func WithPanelServers(servers ...Server) Option {
	return func(c *Checker) {
		c.panel = nil
		c.panelServers = slices.Clone(servers)
	}
}

// WithTimeout sets the per-lookup timeout, capped at MaxTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = min(d, MaxTimeout)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewChecker returns a Checker. Defaults: the system resolver for Check and
// DefaultPanel for Propagation.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		timeout: DefaultTimeout,
		logger:  logger.NewNope(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.resolvers) == 0 {
		c.resolvers = []NamedResolver{{Name: "system", Resolver: NewNetResolver("")}}
	}
	if c.panel == nil {
		servers := c.panelServers
		if len(servers) == 0 {
			servers = DefaultPanel
		}
		c.panel = panelFromServers(servers, c.timeout)
	}
	return c
}

func panelFromServers(servers []Server, timeout time.Duration) []NamedResolver {
	panel := make([]NamedResolver, 0, len(servers))
	for _, s := range servers {
		panel = append(panel, NamedResolver{Name: s.Name, Resolver: NewDNSClientResolver(s.Address, timeout)})
	}
	return panel
}

// Check looks up TXT records for domain with every configured resolver and
// reports whether any record contains token. It returns ErrDNSLookupFailed
// only when all resolvers fail.
func (c *Checker) Check(ctx context.Context, domain, token string) (*CheckResult, error) {
	domain, token, err := cleanInput(domain, token)
	if err != nil {
		return nil, err
	}

	res := &CheckResult{Domain: domain, AllRecords: []string{}, MatchedRecords: []string{}}
	var errs []error
	answered := false
	for _, r := range c.resolvers {
		records, err := c.lookup(ctx, r.Resolver, domain)
		if err != nil {
			c.logger.WarnContext(ctx, "txt lookup failed",
				slog.String("domain", domain),
				slog.String("resolver", r.Name),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", r.Name, err))
			continue
		}
		answered = true
		for _, rec := range records {
			if slices.Contains(res.AllRecords, rec) {
				continue
			}
			res.AllRecords = append(res.AllRecords, rec)
			if strings.Contains(rec, token) {
				res.MatchedRecords = append(res.MatchedRecords, rec)
			}
		}
	}
	if !answered {
		return nil, errors.Join(append([]error{ErrDNSLookupFailed}, errs...)...)
	}

	res.Verified = len(res.MatchedRecords) > 0
	return res, nil
}

// Propagation runs the challenge against every panel resolver concurrently.
// Individual resolver failures are reported per resolver and count as not
// matched.
func (c *Checker) Propagation(ctx context.Context, domain, token string) (*PropagationResult, error) {
	domain, token, err := cleanInput(domain, token)
	if err != nil {
		return nil, err
	}

	results := make([]ResolverResult, len(c.panel))
	var g errgroup.Group
	for i, r := range c.panel {
		g.Go(func() error {
			out := ResolverResult{Name: r.Name, Records: []string{}}
			records, err := c.lookup(ctx, r.Resolver, domain)
			if err != nil {
				out.Error = err.Error()
			}
			for _, rec := range records {
				out.Records = append(out.Records, rec)
				if strings.Contains(rec, token) {
					out.Verified = true
				}
			}
			results[i] = out
			return nil
		})
	}
	_ = g.Wait()

	res := &PropagationResult{
		Domain:         domain,
		Resolvers:      results,
		TotalResolvers: len(results),
	}
	for _, r := range results {
		if r.Verified {
			res.MatchedResolvers++
		}
	}
	if res.TotalResolvers > 0 {
		pct := float64(res.MatchedResolvers) / float64(res.TotalResolvers) * 100
		res.Percentage = math.Round(pct*100) / 100
	}
	return res, nil
}

func (c *Checker) lookup(ctx context.Context, r Resolver, domain string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return r.LookupTXT(ctx, domain)
}

func cleanInput(domain, token string) (string, string, error) {
	domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	token = strings.TrimSpace(token)
	if domain == "" || token == "" {
		return "", "", ErrInvalidInput
	}
	return domain, token, nil
}

// VerifyDomainOwnership is a shortcut for a one-off check with the system
// resolver. It returns true when a TXT record on domain contains token.
func VerifyDomainOwnership(ctx context.Context, domain, token string) (bool, error) {
	res, err := NewChecker().Check(ctx, domain, token)
	if err != nil {
		return false, err
	}
	return res.Verified, nil
}
