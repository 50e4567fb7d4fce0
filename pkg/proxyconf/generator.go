package proxyconf

import (
	"bytes"
	"errors"
	"net/url"
	"path"
	"strings"
	"text/template"

	"github.com/dmitrymomot/customdomains/pkg/dnsverify"
)

// DefaultCertsDir is used when the generator is built with an empty path.
const DefaultCertsDir = "/etc/ssl/customdomains"

// unsafeChars would let a value break out of a directive.
const unsafeChars = " \t\r\n;{}\"'`\\$#"

// Config holds rendered proxy configuration for one domain.
type Config struct {
	Domain string `json:"domain"`
	Nginx  string `json:"nginx"`
	Apache string `json:"apache"`
}

// Generator renders Config values. The zero value is not usable; call
// NewGenerator.
type Generator struct {
	certsDir string
}

// NewGenerator returns a generator placing certificates under certsDir.
func NewGenerator(certsDir string) *Generator {
	if certsDir == "" {
		certsDir = DefaultCertsDir
	}
	return &Generator{certsDir: path.Clean(certsDir)}
}

// CertsDir returns the certificate directory.
func (g *Generator) CertsDir() string { return g.certsDir }

// CertFile returns the certificate path for domain.
func (g *Generator) CertFile(domain string) string {
	return path.Join(g.certsDir, domain+".crt")
}

// KeyFile returns the private key path for domain.
func (g *Generator) KeyFile(domain string) string {
	return path.Join(g.certsDir, domain+".key")
}

type templateData struct {
	Domain   string
	Upstream string
	Scheme   string
	CertFile string
	KeyFile  string
	TLS      bool
}

// Generate renders nginx and Apache configuration for domain. sslStatus is
// one of none, manual, auto or managed_cdn; anything but none enables the
// TLS server block.
func (g *Generator) Generate(domain, sslStatus, upstream string) (*Config, error) {
	if err := dnsverify.Validate(domain); err != nil {
		return nil, ErrInvalidDomain
	}
	if strings.ContainsAny(g.certsDir, unsafeChars) {
		return nil, ErrInvalidCertsDir
	}
	tls, err := tlsEnabled(sslStatus)
	if err != nil {
		return nil, err
	}
	up, err := parseUpstream(upstream)
	if err != nil {
		return nil, err
	}

	data := templateData{
		Domain:   domain,
		Upstream: up,
		Scheme:   "http",
		TLS:      tls,
	}
	if tls {
		data.Scheme = "https"
		data.CertFile = g.CertFile(domain)
		data.KeyFile = g.KeyFile(domain)
	}

	nginx, err := render(nginxTemplate, data)
	if err != nil {
		return nil, err
	}
	apache, err := render(apacheTemplate, data)
	if err != nil {
		return nil, err
	}
	return &Config{Domain: domain, Nginx: nginx, Apache: apache}, nil
}

func tlsEnabled(sslStatus string) (bool, error) {
	switch sslStatus {
	case "", "none":
		return false, nil
	case "manual", "auto", "managed_cdn":
		return true, nil
	}
	return false, ErrInvalidSSLStatus
}

func parseUpstream(raw string) (string, error) {
	if strings.ContainsAny(raw, unsafeChars) {
		return "", ErrInvalidUpstream
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", ErrInvalidUpstream
	}
	if u.User != nil || u.RawQuery != "" || u.Fragment != "" {
		return "", ErrInvalidUpstream
	}
	return strings.TrimSuffix(u.String(), "/"), nil
}

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", errors.Join(ErrRender, err)
	}
	return buf.String(), nil
}
