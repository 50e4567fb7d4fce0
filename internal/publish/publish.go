// Package publish ships rendered proxy configuration to object storage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/customdomains/pkg/domainmap"
	"github.com/dmitrymomot/customdomains/pkg/logger"
	"github.com/dmitrymomot/customdomains/pkg/proxyconf"
	"github.com/dmitrymomot/customdomains/pkg/storage"
)

const contentType = "text/plain; charset=utf-8"

// Store is the subset of *storage.S3 the publisher needs.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	Key(parts ...string) string
}

// Publisher writes nginx/<domain>.conf and apache/<domain>.conf.
type Publisher struct {
	store  Store
	logger *slog.Logger
}

var _ domainmap.ConfigPublisher = (*Publisher)(nil)

// New creates a publisher. A nil logger discards output.
func New(store Store, log *slog.Logger) *Publisher {
	if log == nil {
		log = logger.NewNope()
	}
	return &Publisher{store: store, logger: log}
}

func (p *Publisher) keys(domain string) (nginx, apache string) {
	return p.store.Key("nginx", domain+".conf"), p.store.Key("apache", domain+".conf")
}

// Publish uploads both renderings. A failure on the second upload leaves
// the first in place; the next publish overwrites it.
func (p *Publisher) Publish(ctx context.Context, cfg *proxyconf.Config) error {
	nginx, apache := p.keys(cfg.Domain)
	if err := p.store.Put(ctx, nginx, []byte(cfg.Nginx), contentType); err != nil {
		return fmt.Errorf("publish nginx config for %s: %w", cfg.Domain, err)
	}
	if err := p.store.Put(ctx, apache, []byte(cfg.Apache), contentType); err != nil {
		return fmt.Errorf("publish apache config for %s: %w", cfg.Domain, err)
	}
	p.logger.InfoContext(ctx, "proxy config published",
		slog.String("domain", cfg.Domain),
		slog.String("nginx_key", nginx),
	)
	return nil
}

// Unpublish removes both renderings. Missing objects are not an error.
func (p *Publisher) Unpublish(ctx context.Context, domain string) error {
	nginx, apache := p.keys(domain)
	var errs []error
	for _, key := range []string{nginx, apache} {
		if err := p.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("unpublish proxy config for %s: %w", domain, err)
	}
	p.logger.InfoContext(ctx, "proxy config removed", slog.String("domain", domain))
	return nil
}
