package dnsverify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// Resolver looks up TXT records. A name that does not exist, or has no TXT
// records, yields nil records and a nil error.
type Resolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, name string) ([]string, error)

func (f ResolverFunc) LookupTXT(ctx context.Context, name string) ([]string, error) {
	return f(ctx, name)
}

// NetResolver uses the Go resolver from the net package. When Server is set
// all queries go to that address instead of the system configuration.
type NetResolver struct {
	resolver *net.Resolver
}

// NewNetResolver returns a resolver bound to server ("host:port"), or to the
// system configuration when server is empty.
func NewNetResolver(server string) *NetResolver {
	r := &net.Resolver{}
	if server != "" {
		addr := withDNSPort(server)
		r = &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		}
	}
	return &NetResolver{resolver: r}
}

func (r *NetResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	records, err := r.resolver.LookupTXT(ctx, name)
	if err != nil {
		return nil, lookupError(err)
	}
	return records, nil
}

// LookupNS returns the nameserver host names for name without trailing dots.
func (r *NetResolver) LookupNS(ctx context.Context, name string) ([]string, error) {
	records, err := r.resolver.LookupNS(ctx, name)
	if err != nil {
		return nil, lookupError(err)
	}
	hosts := make([]string, 0, len(records))
	for _, ns := range records {
		hosts = append(hosts, strings.TrimSuffix(strings.ToLower(ns.Host), "."))
	}
	return hosts, nil
}

func lookupError(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			return nil
		}
		if dnsErr.IsTimeout {
			return errors.Join(ErrLookupTimeout, err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrLookupTimeout, err)
	}
	return errors.Join(ErrDNSLookupFailed, err)
}

// DNSClientResolver sends queries straight to one recursive server using
// github.com/miekg/dns. Truncated UDP answers are retried over TCP.
type DNSClientResolver struct {
	server  string
	timeout time.Duration
}

// NewDNSClientResolver returns a resolver querying server ("host" or
// "host:port"). timeout <= 0 uses DefaultTimeout.
func NewDNSClientResolver(server string, timeout time.Duration) *DNSClientResolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &DNSClientResolver{server: withDNSPort(server), timeout: timeout}
}

func (r *DNSClientResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	answer, err := r.exchange(ctx, name, dns.TypeTXT)
	if err != nil || answer == nil {
		return nil, err
	}
	var records []string
	for _, rr := range answer.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			records = append(records, strings.Join(txt.Txt, ""))
		}
	}
	return records, nil
}

// LookupNS returns the nameserver host names for name without trailing dots.
func (r *DNSClientResolver) LookupNS(ctx context.Context, name string) ([]string, error) {
	answer, err := r.exchange(ctx, name, dns.TypeNS)
	if err != nil || answer == nil {
		return nil, err
	}
	var hosts []string
	for _, rr := range answer.Answer {
		if ns, ok := rr.(*dns.NS); ok {
			hosts = append(hosts, strings.TrimSuffix(strings.ToLower(ns.Ns), "."))
		}
	}
	return hosts, nil
}

// FindZone returns the apex of the zone containing name, without the
// trailing dot. It walks up the labels asking for SOA records; an owner
// name that differs from the question (a CNAME target) does not count.
func (r *DNSClientResolver) FindZone(ctx context.Context, name string) (string, error) {
	fqdn := dns.Fqdn(strings.ToLower(strings.TrimSpace(name)))
	for _, i := range dns.Split(fqdn) {
		candidate := fqdn[i:]
		answer, err := r.exchange(ctx, candidate, dns.TypeSOA)
		if err != nil {
			return "", err
		}
		if answer == nil {
			continue
		}
		for _, rr := range answer.Answer {
			if soa, ok := rr.(*dns.SOA); ok && strings.EqualFold(soa.Hdr.Name, candidate) {
				return strings.TrimSuffix(candidate, "."), nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", ErrZoneNotFound, name)
}

func (r *DNSClientResolver) exchange(ctx context.Context, name string, qtype uint16) (*dns.Msg, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), qtype)
	msg.RecursionDesired = true

	client := &dns.Client{Net: "udp", Timeout: r.timeout}
	in, _, err := client.ExchangeContext(ctx, msg, r.server)
	if err == nil && in.Truncated {
		client.Net = "tcp"
		in, _, err = client.ExchangeContext(ctx, msg, r.server)
	}
	if err != nil {
		return nil, lookupError(err)
	}

	switch in.Rcode {
	case dns.RcodeSuccess:
		return in, nil
	case dns.RcodeNameError:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s answered %s", ErrDNSLookupFailed, r.server, dns.RcodeToString[in.Rcode])
	}
}

// FallbackResolver asks each resolver in turn and returns the first answer.
// It fails only when every resolver fails.
type FallbackResolver []Resolver

func (f FallbackResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	if len(f) == 0 {
		return nil, ErrNoResolvers
	}
	var errs []error
	for _, r := range f {
		records, err := r.LookupTXT(ctx, name)
		if err == nil {
			return records, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}

func withDNSPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, "53")
}
