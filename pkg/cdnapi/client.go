package cdnapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultBaseURL points at the Cloudflare v4 API.
const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

const zonesPerPage = 50

// Config holds API credentials. Embed it in the app config for env parsing
// with caarlos0/env.
type Config struct {
	APIToken  string        `env:"CDN_API_TOKEN" yaml:"api_token"`
	BaseURL   string        `env:"CDN_API_BASE_URL" envDefault:"https://api.cloudflare.com/client/v4" yaml:"base_url"`
	AccountID string        `env:"CDN_ACCOUNT_ID" yaml:"account_id"`
	Timeout   time.Duration `env:"CDN_API_TIMEOUT" envDefault:"15s" yaml:"timeout"`
}

// Client talks to the provider API. It is safe for concurrent use.
type Client struct {
	http      *http.Client
	baseURL   string
	accountID string
}

// Option configures a Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
}

// WithHTTPClient sets the transport used underneath the bearer token
// transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New returns a client. It fails with ErrNotConfigured when no token is set.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIToken == "" {
		return nil, ErrNotConfigured
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	ctx := context.Background()
	if o.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, o.httpClient)
	}
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.APIToken,
		TokenType:   "Bearer",
	}))
	hc.Timeout = cfg.Timeout

	return &Client{
		http:      hc,
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		accountID: cfg.AccountID,
	}, nil
}

// GetZones lists every zone visible to the token.
func (c *Client) GetZones(ctx context.Context) ([]Zone, error) {
	var zones []Zone
	for page := 1; ; page++ {
		q := url.Values{
			"page":     {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(zonesPerPage)},
		}
		if c.accountID != "" {
			q.Set("account.id", c.accountID)
		}
		var env envelope[[]Zone]
		if err := c.do(ctx, http.MethodGet, "/zones", q, nil, &env); err != nil {
			return nil, err
		}
		zones = append(zones, env.Result...)
		if env.ResultInfo == nil || page >= env.ResultInfo.TotalPages || len(env.Result) == 0 {
			return zones, nil
		}
	}
}

// FindZone returns the zone named name.
func (c *Client) FindZone(ctx context.Context, name string) (*Zone, error) {
	name = strings.TrimSuffix(strings.ToLower(name), ".")
	zones, err := c.GetZones(ctx)
	if err != nil {
		return nil, err
	}
	for i := range zones {
		if zones[i].Name == name {
			return &zones[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrZoneNotFound, name)
}

// AddDNSRecord creates a record in zoneID and returns it with its id.
func (c *Client) AddDNSRecord(ctx context.Context, zoneID string, rec DNSRecord) (*DNSRecord, error) {
	if zoneID == "" || rec.Type == "" || rec.Name == "" || rec.Content == "" {
		return nil, ErrInvalidInput
	}
	if rec.TTL == 0 {
		rec.TTL = 1 // automatic
	}
	var env envelope[DNSRecord]
	if err := c.do(ctx, http.MethodPost, "/zones/"+url.PathEscape(zoneID)+"/dns_records", nil, rec, &env); err != nil {
		return nil, err
	}
	return &env.Result, nil
}

// EnableSSL sets the zone SSL mode (see the SSLMode constants).
func (c *Client) EnableSSL(ctx context.Context, zoneID, mode string) error {
	switch mode {
	case SSLModeOff, SSLModeFlexible, SSLModeFull, SSLModeStrict:
	default:
		return fmt.Errorf("%w: ssl mode %q", ErrInvalidInput, mode)
	}
	if zoneID == "" {
		return ErrInvalidInput
	}
	var env envelope[settingValue]
	return c.do(ctx, http.MethodPatch, "/zones/"+url.PathEscape(zoneID)+"/settings/ssl", nil, map[string]string{"value": mode}, &env)
}

// GetSSLStatus returns the SSL mode and edge certificate states of a zone.
func (c *Client) GetSSLStatus(ctx context.Context, zoneID string) (*SSLStatus, error) {
	if zoneID == "" {
		return nil, ErrInvalidInput
	}
	base := "/zones/" + url.PathEscape(zoneID)

	var mode envelope[settingValue]
	if err := c.do(ctx, http.MethodGet, base+"/settings/ssl", nil, nil, &mode); err != nil {
		return nil, err
	}
	var certs envelope[[]CertificateStatus]
	if err := c.do(ctx, http.MethodGet, base+"/ssl/verification", nil, nil, &certs); err != nil {
		return nil, err
	}
	return &SSLStatus{
		ZoneID:       zoneID,
		Mode:         mode.Result.Value,
		ModifiedOn:   mode.Result.ModifiedOn,
		Certificates: certs.Result,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Join(ErrRequestFailed, fmt.Errorf("encode body: %w", err))
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return errors.Join(ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Join(ErrRequestFailed, fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return errors.Join(ErrRequestFailed, fmt.Errorf("read body: %w", err))
	}

	// Decode the error list separately so failures with an unexpected
	// result shape still surface the provider message.
	var status struct {
		Errors  []ErrorDetail `json:"errors"`
		Success bool          `json:"success"`
	}
	decodeErr := json.Unmarshal(raw, &status)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || (decodeErr == nil && !status.Success) {
		return &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Errors: status.Errors}
	}
	if decodeErr != nil {
		return errors.Join(ErrDecodeFailed, decodeErr)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Join(ErrDecodeFailed, err)
	}
	return nil
}
