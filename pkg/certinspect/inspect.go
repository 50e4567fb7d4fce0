package certinspect

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"log/slog"
	"math"
	"net"
	"strings"
	"time"

	"github.com/dmitrymomot/customdomains/pkg/logger"
)

const (
	DefaultTimeout = 10 * time.Second
	MaxTimeout     = 30 * time.Second
	DefaultPort    = "443"
)

// Result describes the certificate served by a domain. When Present is false
// the other certificate fields are zero and Error carries the dial failure.
type Result struct {
	NotBefore      time.Time `json:"not_before"`
	NotAfter       time.Time `json:"not_after"`
	Domain         string    `json:"domain"`
	Issuer         string    `json:"issuer,omitempty"`
	IssuerCategory Category  `json:"issuer_category,omitempty"`
	Subject        string    `json:"subject,omitempty"`
	SerialNumber   string    `json:"serial_number,omitempty"`
	Error          string    `json:"error,omitempty"`
	DNSNames       []string  `json:"dns_names,omitempty"`
	DaysRemaining  int       `json:"days_remaining"`
	Present        bool      `json:"present"`
	Valid          bool      `json:"valid"`
}

// Ref returns a stable reference to the observed certificate
// ("issuer#serial"), or "" when none was observed.
func (r *Result) Ref() string {
	if r == nil || !r.Present {
		return ""
	}
	return r.Issuer + "#" + r.SerialNumber
}

// Inspector dials domains over TLS. It is safe for concurrent use.
type Inspector struct {
	logger  *slog.Logger
	now     func() time.Time
	address func(domain string) string
	timeout time.Duration
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithTimeout sets the handshake timeout, capped at MaxTimeout.
func WithTimeout(d time.Duration) Option {
	return func(i *Inspector) {
		if d > 0 {
			i.timeout = min(d, MaxTimeout)
		}
	}
}

// WithAddress routes every handshake to addr while still sending the domain as
// SNI. Useful behind a load balancer or in tests.
func WithAddress(addr string) Option {
	return func(i *Inspector) {
		i.address = func(string) string { return addr }
	}
}

// WithClock overrides the time source used for validity calculations.
func WithClock(now func() time.Time) Option {
	return func(i *Inspector) {
		if now != nil {
			i.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Inspector) {
		if l != nil {
			i.logger = l
		}
	}
}

// New returns an Inspector probing port 443 with DefaultTimeout.
func New(opts ...Option) *Inspector {
	i := &Inspector{
		timeout: DefaultTimeout,
		now:     time.Now,
		address: func(domain string) string { return net.JoinHostPort(domain, DefaultPort) },
		logger:  logger.NewNope(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Inspect connects to domain and parses the leaf certificate. Connection
// failures produce Present=false and a nil error; only invalid input or a
// cancelled parent context return an error.
func (i *Inspector) Inspect(ctx context.Context, domain string) (*Result, error) {
	domain = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if domain == "" {
		return nil, ErrInvalidDomain
	}

	res := &Result{Domain: domain}
	leaf, err := i.fetch(ctx, domain)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, ctxErr
		}
		i.logger.DebugContext(ctx, "tls handshake failed",
			slog.String("domain", domain),
			slog.String("error", err.Error()))
		res.Error = err.Error()
		return res, nil
	}

	now := i.now()
	res.Present = true
	res.Issuer = issuerName(leaf)
	res.IssuerCategory = Classify(res.Issuer)
	res.Subject = leaf.Subject.CommonName
	res.SerialNumber = leaf.SerialNumber.Text(16)
	res.NotBefore = leaf.NotBefore
	res.NotAfter = leaf.NotAfter
	res.DNSNames = leaf.DNSNames
	res.Valid = leaf.NotAfter.After(now)
	res.DaysRemaining = DaysRemaining(leaf.NotAfter, now)
	return res, nil
}

func (i *Inspector) fetch(ctx context.Context, domain string) (*x509.Certificate, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	d := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: i.timeout},
		Config: &tls.Config{
			ServerName:         domain,
			InsecureSkipVerify: true, //nolint:gosec // observational check, trust is not evaluated
		},
	}
	conn, err := d.DialContext(ctx, "tcp", i.address(domain))
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	tlsConn, ok := conn.(*tls.Conn)
	if !ok {
		return nil, errors.New("certinspect: not a tls connection")
	}
	certs := tlsConn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil, errors.New("certinspect: no peer certificate")
	}
	return certs[0], nil
}

func issuerName(c *x509.Certificate) string {
	if len(c.Issuer.Organization) > 0 {
		return c.Issuer.Organization[0]
	}
	return c.Issuer.CommonName
}

// DaysRemaining returns the number of whole days until notAfter, never
// negative.
func DaysRemaining(notAfter, now time.Time) int {
	days := math.Floor(notAfter.Sub(now).Hours() / 24)
	return int(max(0, days))
}
