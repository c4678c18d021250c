// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. LINKTRAFFIC_SERVER_PORT.
const EnvPrefix = "LINKTRAFFIC"

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Cloudflare CloudflareConfig `mapstructure:"cloudflare"`
	Scanner    ScannerConfig    `mapstructure:"scanner"`
	Content    ContentConfig    `mapstructure:"content"`
	Headless   HeadlessConfig   `mapstructure:"headless"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
	// BaseURL is where the server can reach itself; used to fetch screenshots
	// for PDF reports. Empty means derive it from the incoming request.
	BaseURL               string `mapstructure:"base_url"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CloudflareConfig holds API credentials. An empty token disables exact
// traffic data and screenshots; it is not an error.
type CloudflareConfig struct {
	APIToken       string `mapstructure:"api_token"`
	AccountID      string `mapstructure:"account_id"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ScannerConfig bounds the screenshot workflow.
type ScannerConfig struct {
	PollIntervalMs   int    `mapstructure:"poll_interval_ms"`
	MaxWaitSeconds   int    `mapstructure:"max_wait_seconds"`
	ReuseWindowHours int    `mapstructure:"reuse_window_hours"`
	Resolution       string `mapstructure:"resolution"`
}

// ContentConfig configures page fetching for sentiment.
type ContentConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	RespectRobots  bool   `mapstructure:"respect_robots"`
	MaxTextBytes   int    `mapstructure:"max_text_bytes"`
	// HostRPS throttles fetches to any one host; zero disables throttling.
	HostRPS   float64 `mapstructure:"host_rps"`
	HostBurst int     `mapstructure:"host_burst"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MaxParallel     int  `mapstructure:"max_parallel"`
	NavTimeoutSec   int  `mapstructure:"nav_timeout_seconds"`
	PromotionThresh int  `mapstructure:"promotion_threshold"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	// The conventional unprefixed names are honored too.
	if err := v.BindEnv("cloudflare.api_token", EnvPrefix+"_CLOUDFLARE_API_TOKEN", "CLOUDFLARE_API_TOKEN"); err != nil {
		return Config{}, fmt.Errorf("bind cloudflare token: %w", err)
	}
	if err := v.BindEnv("cloudflare.account_id", EnvPrefix+"_CLOUDFLARE_ACCOUNT_ID", "CLOUDFLARE_ACCOUNT_ID"); err != nil {
		return Config{}, fmt.Errorf("bind cloudflare account: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is ignored.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "")
	v.SetDefault("server.request_timeout_seconds", 120)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("cloudflare.base_url", "https://api.cloudflare.com/client/v4")
	v.SetDefault("cloudflare.timeout_seconds", 15)
	v.SetDefault("scanner.poll_interval_ms", 2000)
	v.SetDefault("scanner.max_wait_seconds", 30)
	v.SetDefault("scanner.reuse_window_hours", 24)
	v.SetDefault("scanner.resolution", "desktop")
	v.SetDefault("content.user_agent", "link-traffic-analyzer/0.1")
	v.SetDefault("content.timeout_seconds", 10)
	v.SetDefault("content.respect_robots", false)
	v.SetDefault("content.max_text_bytes", 100_000)
	v.SetDefault("content.host_rps", 0.0)
	v.SetDefault("content.host_burst", 2)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.promotion_threshold", 2048)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.New("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return errors.New("server.request_timeout_seconds must be > 0")
	}
	if c.Server.BaseURL != "" {
		u, err := url.Parse(c.Server.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("server.base_url must be an absolute URL, got %q", c.Server.BaseURL)
		}
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return errors.New("auth.api_key must be set when auth is enabled")
	}
	if c.Cloudflare.TimeoutSeconds <= 0 {
		return errors.New("cloudflare.timeout_seconds must be > 0")
	}
	if c.Scanner.PollIntervalMs <= 0 {
		return errors.New("scanner.poll_interval_ms must be > 0")
	}
	if c.Scanner.MaxWaitSeconds <= 0 {
		return errors.New("scanner.max_wait_seconds must be > 0")
	}
	if c.Scanner.ReuseWindowHours <= 0 {
		return errors.New("scanner.reuse_window_hours must be > 0")
	}
	if c.Content.TimeoutSeconds <= 0 {
		return errors.New("content.timeout_seconds must be > 0")
	}
	if c.Content.MaxTextBytes < 0 {
		return errors.New("content.max_text_bytes must be >= 0")
	}
	if c.Content.HostRPS < 0 || c.Content.HostBurst < 0 {
		return errors.New("content.host_rps and content.host_burst must be >= 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return errors.New("headless.max_parallel must be > 0 when headless is enabled")
	}
	return nil
}

// HasCloudflare reports whether exact ranking data can be requested.
func (c Config) HasCloudflare() bool {
	return strings.TrimSpace(c.Cloudflare.APIToken) != ""
}

// HasScanner reports whether the URL scanner can be used.
func (c Config) HasScanner() bool {
	return c.HasCloudflare() && strings.TrimSpace(c.Cloudflare.AccountID) != ""
}

// RequestTimeout bounds a single HTTP request to the service.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// CloudflareTimeout bounds a single upstream API call.
func (c Config) CloudflareTimeout() time.Duration {
	return time.Duration(c.Cloudflare.TimeoutSeconds) * time.Second
}

// PollInterval is the wait between scan status polls.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Scanner.PollIntervalMs) * time.Millisecond
}

// MaxScanWait bounds the poll loop.
func (c Config) MaxScanWait() time.Duration {
	return time.Duration(c.Scanner.MaxWaitSeconds) * time.Second
}

// ReuseWindow is how old an existing scan may be and still be reused.
func (c Config) ReuseWindow() time.Duration {
	return time.Duration(c.Scanner.ReuseWindowHours) * time.Hour
}

// ContentTimeout bounds a page fetch.
func (c Config) ContentTimeout() time.Duration {
	return time.Duration(c.Content.TimeoutSeconds) * time.Second
}

// NavTimeout bounds a headless navigation.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}
