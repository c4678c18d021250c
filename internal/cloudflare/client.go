// Package cloudflare adapts the Cloudflare Radar ranking API and the URL
// Scanner API, via the official SDK, to analysis.RankProvider and
// analysis.ScanProvider.
package cloudflare

import (
	"errors"
	"net/http"
	"strings"
	"time"

	cf "github.com/cloudflare/cloudflare-go/v4"
	"github.com/cloudflare/cloudflare-go/v4/option"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public Cloudflare v4 API root.
const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

// DefaultResolution is the screenshot resolution requested and fetched.
const DefaultResolution = "desktop"

var (
	// ErrMissingCredentials is returned when no API token is configured.
	ErrMissingCredentials = errors.New("cloudflare api token not configured")
	// ErrScannerDisabled is returned by scanner calls when no account ID is configured.
	ErrScannerDisabled = errors.New("cloudflare account id not configured")
)

// Config holds credentials and endpoints. Credentials are passed in
// explicitly rather than read from the environment at call time.
type Config struct {
	APIToken   string
	AccountID  string
	BaseURL    string
	Timeout    time.Duration
	Resolution string
}

// Client wraps the SDK client with the subset of calls the analyzer needs.
type Client struct {
	cfg    Config
	api    *cf.Client
	logger *zap.Logger
}

// New builds a Client. It fails with ErrMissingCredentials when no token is set.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIToken) == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/"
	if cfg.Resolution == "" {
		cfg.Resolution = DefaultResolution
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	// The scanner workflow owns polling and backoff.
	api := cf.NewClient(
		option.WithAPIToken(cfg.APIToken),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)
	return &Client{cfg: cfg, api: api, logger: logger}, nil
}

// ScannerEnabled reports whether scanner endpoints can be used.
func (c *Client) ScannerEnabled() bool {
	return c.cfg.AccountID != ""
}

// statusCode extracts the HTTP status from an SDK error, or 0.
func statusCode(err error) int {
	var apiErr *cf.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
