package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/customdomains/pkg/dnsverify"
)

// Resolver backends for the TXT challenge.
const (
	ResolverSystem = "system"
	ResolverDNS    = "dns"
	ResolverDig    = "dig"
)

// DNSConfig selects how TXT challenges and propagation are looked up.
type DNSConfig struct {
	// Resolvers tried in order by Check: system, dns (miekg client against
	// Server) or dig (external binary).
	Resolvers []string      `env:"DNS_RESOLVERS" envSeparator:"," envDefault:"system" yaml:"resolvers"`
	Server    string        `env:"DNS_SERVER" envDefault:"8.8.8.8:53" yaml:"server"`
	DigPath   string        `env:"DNS_DIG_PATH" envDefault:"dig" yaml:"dig_path"`
	Timeout   time.Duration `env:"DNS_TIMEOUT" envDefault:"10s" yaml:"timeout"`
	// Propagation panel as name=host:port pairs. Empty uses the built-in
	// public resolver panel.
	Panel []string `env:"DNS_PANEL" envSeparator:"," yaml:"panel"`
}

func (c DNSConfig) validate() error {
	for _, r := range c.Resolvers {
		switch r {
		case ResolverSystem, ResolverDNS, ResolverDig:
		default:
			return fmt.Errorf("dns.resolvers: unknown resolver %q", r)
		}
	}
	_, err := c.panel()
	return err
}

func (c DNSConfig) panel() ([]dnsverify.Server, error) {
	servers := make([]dnsverify.Server, 0, len(c.Panel))
	for _, entry := range c.Panel {
		name, addr, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok || name == "" || addr == "" {
			return nil, fmt.Errorf("dns.panel: entry %q is not name=host:port", entry)
		}
		servers = append(servers, dnsverify.Server{Name: name, Address: addr})
	}
	return servers, nil
}

// CheckerOptions turns the config into dnsverify options.
func (c DNSConfig) CheckerOptions(log *slog.Logger) ([]dnsverify.Option, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	opts := []dnsverify.Option{dnsverify.WithTimeout(c.Timeout), dnsverify.WithLogger(log)}
	for _, r := range c.Resolvers {
		switch r {
		case ResolverSystem:
			opts = append(opts, dnsverify.WithResolver(r, dnsverify.NewNetResolver("")))
		case ResolverDNS:
			opts = append(opts, dnsverify.WithResolver(r, dnsverify.NewDNSClientResolver(c.Server, c.Timeout)))
		case ResolverDig:
			opts = append(opts, dnsverify.WithResolver(r, dnsverify.NewDigResolver(c.DigPath, "", c.Timeout)))
		}
	}
	if servers, _ := c.panel(); len(servers) > 0 {
		opts = append(opts, dnsverify.WithPanelServers(servers...))
	}
	return opts, nil
}
