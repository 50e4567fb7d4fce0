package certprovision

import "time"

// ACME client binaries understood by the command templates.
const (
	ClientLego    = "lego"
	ClientCertbot = "certbot"
)

// Config holds provisioning policy. Embed it in the app config for env
// parsing with caarlos0/env.
type Config struct {
	// ContactEmail is registered with the ACME account.
	ContactEmail string `env:"CERT_CONTACT_EMAIL" yaml:"contact_email"`

	// ACMEClient selects the command template: lego or certbot.
	ACMEClient string `env:"CERT_ACME_CLIENT" envDefault:"lego" yaml:"acme_client"`

	// DirectoryURL overrides the ACME directory. Empty selects Let's Encrypt
	// production, or staging when Staging is set.
	DirectoryURL string `env:"CERT_ACME_DIRECTORY_URL" yaml:"directory_url"`

	// Webroot is served by the proxy under /.well-known/acme-challenge/.
	Webroot string `env:"CERT_WEBROOT" envDefault:"/var/www/acme" yaml:"webroot"`

	// CertsDir holds <domain>.crt and <domain>.key for the proxy.
	CertsDir string `env:"CERT_DIR" envDefault:"/etc/ssl/customdomains" yaml:"certs_dir"`

	// EdgeHostname is the CNAME target for managed CDN domains.
	EdgeHostname string `env:"CERT_EDGE_HOSTNAME" envDefault:"edge.storefront.local" yaml:"edge_hostname"`

	// SSLMode is applied to managed CDN zones.
	SSLMode string `env:"CERT_CDN_SSL_MODE" envDefault:"full" yaml:"ssl_mode"`

	// CDNNameservers are matched as substrings against a zone's NS records
	// to detect delegation to the managed CDN.
	CDNNameservers []string `env:"CERT_CDN_NAMESERVERS" envSeparator:"," envDefault:"ns.cloudflare.com" yaml:"cdn_nameservers"`

	// CheckTimeout bounds the HTTP reachability check and zone discovery.
	CheckTimeout time.Duration `env:"CERT_CHECK_TIMEOUT" envDefault:"5s" yaml:"check_timeout"`

	// ExpiryThresholdDays triggers cert_expiring at or below this many days.
	ExpiryThresholdDays int `env:"CERT_EXPIRY_THRESHOLD_DAYS" envDefault:"30" yaml:"expiry_threshold_days"`

	// SweepConcurrency caps simultaneous inspections during a renewal sweep.
	SweepConcurrency int `env:"CERT_SWEEP_CONCURRENCY" envDefault:"10" yaml:"sweep_concurrency"`

	// AutomatedCAEnabled gates the automated_ca path.
	AutomatedCAEnabled bool `env:"CERT_AUTOMATED_CA_ENABLED" envDefault:"false" yaml:"automated_ca_enabled"`

	// Staging uses the Let's Encrypt staging directory.
	Staging bool `env:"CERT_ACME_STAGING" envDefault:"false" yaml:"staging"`
}

func (c Config) withDefaults() Config {
	if c.ACMEClient == "" {
		c.ACMEClient = ClientLego
	}
	if c.Webroot == "" {
		c.Webroot = "/var/www/acme"
	}
	if c.CertsDir == "" {
		c.CertsDir = "/etc/ssl/customdomains"
	}
	if c.SSLMode == "" {
		c.SSLMode = "full"
	}
	if c.CheckTimeout <= 0 {
		c.CheckTimeout = 5 * time.Second
	}
	if c.ExpiryThresholdDays <= 0 {
		c.ExpiryThresholdDays = 30
	}
	if c.SweepConcurrency <= 0 {
		c.SweepConcurrency = 10
	}
	return c
}
