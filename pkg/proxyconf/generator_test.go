package proxyconf_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/customdomains/pkg/proxyconf"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	g := proxyconf.NewGenerator("/etc/ssl/store/")

	t.Run("plain http", func(t *testing.T) {
		t.Parallel()

		cfg, err := g.Generate("example.com", "none", "http://127.0.0.1:8080/")
		require.NoError(t, err)

		assert.Contains(t, cfg.Nginx, "server_name example.com;")
		assert.Contains(t, cfg.Nginx, "proxy_pass http://127.0.0.1:8080;")
		assert.Contains(t, cfg.Nginx, "proxy_set_header Host $host;")
		assert.Contains(t, cfg.Nginx, "proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;")
		assert.Contains(t, cfg.Nginx, "proxy_set_header X-Forwarded-Proto $scheme;")
		assert.NotContains(t, cfg.Nginx, "ssl_certificate")
		assert.NotContains(t, cfg.Nginx, "return 301")

		assert.Contains(t, cfg.Apache, "ServerName example.com")
		assert.Contains(t, cfg.Apache, "ProxyPreserveHost On")
		assert.Contains(t, cfg.Apache, `RequestHeader set X-Forwarded-Proto "http"`)
		assert.NotContains(t, cfg.Apache, "SSLEngine")
	})

	t.Run("tls paths derive from the domain", func(t *testing.T) {
		t.Parallel()

		cfg, err := g.Generate("shop.example.org", "auto", "https://app.internal")
		require.NoError(t, err)

		assert.Contains(t, cfg.Nginx, "listen 443 ssl;")
		assert.Contains(t, cfg.Nginx, "ssl_certificate /etc/ssl/store/shop.example.org.crt;")
		assert.Contains(t, cfg.Nginx, "ssl_certificate_key /etc/ssl/store/shop.example.org.key;")
		assert.Contains(t, cfg.Nginx, "return 301 https://$host$request_uri;")
		assert.Equal(t, 2, strings.Count(cfg.Nginx, "server_name shop.example.org;"))

		assert.Contains(t, cfg.Apache, "SSLCertificateFile /etc/ssl/store/shop.example.org.crt")
		assert.Contains(t, cfg.Apache, "SSLCertificateKeyFile /etc/ssl/store/shop.example.org.key")
		assert.Contains(t, cfg.Apache, `RequestHeader set X-Forwarded-Proto "https"`)
	})

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()

		a, err := g.Generate("example.com", "managed_cdn", "http://upstream:80")
		require.NoError(t, err)
		b, err := g.Generate("example.com", "managed_cdn", "http://upstream:80")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("never mentions another domain", func(t *testing.T) {
		t.Parallel()

		other, err := g.Generate("other-tenant.net", "manual", "http://upstream:80")
		require.NoError(t, err)
		cfg, err := g.Generate("example.com", "manual", "http://upstream:80")
		require.NoError(t, err)

		assert.NotContains(t, cfg.Nginx, "other-tenant.net")
		assert.NotContains(t, cfg.Apache, "other-tenant.net")
		assert.NotContains(t, other.Nginx, "example.com")
	})

	t.Run("default certs dir", func(t *testing.T) {
		t.Parallel()

		cfg, err := proxyconf.NewGenerator("").Generate("example.com", "manual", "http://upstream")
		require.NoError(t, err)
		assert.Contains(t, cfg.Nginx, proxyconf.DefaultCertsDir+"/example.com.crt")
	})
}

func TestGenerate_Invalid(t *testing.T) {
	t.Parallel()

	g := proxyconf.NewGenerator("/etc/ssl")

	tests := []struct {
		name, domain, ssl, upstream string
		want                        error
	}{
		{"bad domain", "not a domain", "none", "http://u", proxyconf.ErrInvalidDomain},
		{"injected domain", "example.com;}", "none", "http://u", proxyconf.ErrInvalidDomain},
		{"unnormalized domain", "Example.com", "none", "http://u", proxyconf.ErrInvalidDomain},
		{"unknown ssl", "example.com", "wildcard", "http://u", proxyconf.ErrInvalidSSLStatus},
		{"relative upstream", "example.com", "none", "/app", proxyconf.ErrInvalidUpstream},
		{"ftp upstream", "example.com", "none", "ftp://u", proxyconf.ErrInvalidUpstream},
		{"injected upstream", "example.com", "none", "http://u;\n}", proxyconf.ErrInvalidUpstream},
		{"upstream with query", "example.com", "none", "http://u/?a=b", proxyconf.ErrInvalidUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := g.Generate(tt.domain, tt.ssl, tt.upstream)
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := proxyconf.NewGenerator("/etc/ssl dir").Generate("example.com", "auto", "http://u")
	require.ErrorIs(t, err, proxyconf.ErrInvalidCertsDir)
}
