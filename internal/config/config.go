// Package config assembles the service configuration from an optional
// YAML file and the environment. Precedence, lowest first: envDefault
// tags, the file, explicitly set environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/customdomains/internal/lookupcache"
	"github.com/dmitrymomot/customdomains/pkg/cdnapi"
	"github.com/dmitrymomot/customdomains/pkg/certprovision"
	"github.com/dmitrymomot/customdomains/pkg/db"
	"github.com/dmitrymomot/customdomains/pkg/domainmap"
	"github.com/dmitrymomot/customdomains/pkg/job"
	"github.com/dmitrymomot/customdomains/pkg/logger"
	"github.com/dmitrymomot/customdomains/pkg/mailer"
	"github.com/dmitrymomot/customdomains/pkg/mailer/resend"
	"github.com/dmitrymomot/customdomains/pkg/redis"
	"github.com/dmitrymomot/customdomains/pkg/storage"
)

var (
	ErrReadFile = errors.New("config: failed to read config file")
	ErrParse    = errors.New("config: failed to parse configuration")
	ErrInvalid  = errors.New("config: invalid configuration")
)

// Config is the full service configuration.
type Config struct {
	HTTP      HTTPConfig           `yaml:"http"`
	Log       logger.Config        `yaml:"log"`
	Sentry    logger.SentryConfig  `yaml:"sentry"`
	Database  db.Config            `yaml:"database"`
	Redis     redis.Config         `yaml:"redis"`
	Storage   storage.Config       `yaml:"storage"`
	Jobs      job.Config           `yaml:"jobs"`
	Schedules ScheduleConfig       `yaml:"schedules"`
	Domains   domainmap.Config     `yaml:"domains"`
	DNS       DNSConfig            `yaml:"dns"`
	Certs     certprovision.Config `yaml:"certs"`
	CDN       cdnapi.Config        `yaml:"cdn"`
	Cache     lookupcache.Config   `yaml:"cache"`
	Mailer    mailer.Config        `yaml:"mailer"`
	Resend    resend.Config        `yaml:"resend"`
	Owners    OwnersConfig         `yaml:"owners"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080" yaml:"addr"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s" yaml:"read_timeout"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s" yaml:"shutdown_timeout"`
	// Bearer token for the management routes. Empty disables the check;
	// /health, /metrics and /tls/ask are always public.
	APIToken string `env:"HTTP_API_TOKEN" yaml:"api_token"`
}

// ScheduleConfig holds cron expressions (minute hour dom month dow).
type ScheduleConfig struct {
	RenewalSweep string `env:"SCHEDULE_RENEWAL_SWEEP" envDefault:"0 3 * * *" yaml:"renewal_sweep"`
	HealthSample string `env:"SCHEDULE_HEALTH_SAMPLE" envDefault:"*/30 * * * *" yaml:"health_sample"`
}

// OwnersConfig points at a static owner directory. Without a file every
// positive owner id counts as active and notifications are only logged.
type OwnersConfig struct {
	File string `env:"OWNERS_FILE" yaml:"file"`
}

// overrideTag is never set on any field, so a second parse with it as the
// default tag only touches variables present in the environment.
const overrideTag = "envOverride"

// Load reads path (skipped when empty) and the environment.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

// load takes the environment as a map so tests stay hermetic. A nil map
// means the process environment.
func load(path string, environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, errors.Join(ErrParse, err)
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Join(ErrReadFile, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Join(ErrParse, fmt.Errorf("%s: %w", path, err))
		}
		err = env.ParseWithOptions(cfg, env.Options{
			Environment:         environ,
			DefaultValueTagName: overrideTag,
		})
		if err != nil {
			return nil, errors.Join(ErrParse, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Database.ConnectionString != "", "database.url (DATABASE_URL) is required")
	check(c.HTTP.Addr != "", "http.addr is required")

	u, err := url.Parse(c.Domains.UpstreamURL)
	check(err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "",
		"domains.upstream_url must be an absolute http(s) URL, got %q", c.Domains.UpstreamURL)

	check(slices.Contains([]string{"json", "text"}, strings.ToLower(c.Log.Format)),
		"log.format must be json or text, got %q", c.Log.Format)
	check(slices.Contains([]string{certprovision.ClientLego, certprovision.ClientCertbot}, c.Certs.ACMEClient),
		"certs.acme_client must be %s or %s, got %q", certprovision.ClientLego, certprovision.ClientCertbot, c.Certs.ACMEClient)
	check(c.Certs.ExpiryThresholdDays > 0, "certs.expiry_threshold_days must be positive")

	for name, expr := range map[string]string{
		"schedules.renewal_sweep": c.Schedules.RenewalSweep,
		"schedules.health_sample": c.Schedules.HealthSample,
	} {
		_, err := cron.ParseStandard(expr)
		check(err == nil, "%s: invalid cron expression %q", name, expr)
	}

	if err := c.DNS.validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalid}, errs...)...)
}
