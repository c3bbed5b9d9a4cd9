package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrInvalidConfig is returned when required settings are missing or malformed.
var ErrInvalidConfig = errors.New("invalid configuration")

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config holds every setting of the stock checker, sourced from environment
// variables (loaded from .env for local runs).
type Config struct {
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL"`

	// Database endpoint and access credential
	DatabaseURL   string `envconfig:"DATABASE_URL" required:"true"`
	DatabaseKey   string `envconfig:"DATABASE_KEY" required:"true"`
	ProductsTable string `envconfig:"PRODUCTS_TABLE" default:"products"`

	// Page fetching
	Fetcher         string        `envconfig:"FETCHER" default:"playwright"`
	FetchTimeout    time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	UserAgent       string        `envconfig:"USER_AGENT"`
	ContentMode     string        `envconfig:"CONTENT_MODE" default:"html"`
	CheckInterval   time.Duration `envconfig:"CHECK_INTERVAL" default:"0s"`
	InstallBrowsers bool          `envconfig:"PLAYWRIGHT_INSTALL" default:"true"`

	RunTimeout time.Duration `envconfig:"RUN_TIMEOUT" default:"1h"`

	// Optional outputs
	Redis          Redis
	PushgatewayURL string `envconfig:"PUSHGATEWAY_URL"`
}

// Redis configures the stock-change publisher. Publishing is disabled when
// URL is empty.
type Redis struct {
	URL          string        `split_words:"true"`
	Channel      string        `split_words:"true" default:"stock:status"`
	DialTimeout  time.Duration `split_words:"true" default:"5s"`
	WriteTimeout time.Duration `split_words:"true" default:"3s"`
}

// Load reads .env if present and processes the environment into a Config.
func Load() (*Config, error) {
	// .env is optional; the process environment wins either way.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values envconfig cannot.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("%w: DATABASE_URL is empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.DatabaseKey) == "" {
		return fmt.Errorf("%w: DATABASE_KEY is empty", ErrInvalidConfig)
	}
	switch c.Fetcher {
	case "playwright", "chromedp", "http":
	default:
		return fmt.Errorf("%w: unknown FETCHER %q", ErrInvalidConfig, c.Fetcher)
	}
	switch c.ContentMode {
	case "html", "text":
	default:
		return fmt.Errorf("%w: unknown CONTENT_MODE %q", ErrInvalidConfig, c.ContentMode)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("%w: FETCH_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("%w: RUN_TIMEOUT must be positive", ErrInvalidConfig)
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	return nil
}

// DSN returns the Postgres connection string with the credential applied as
// the password. Both URL and key/value connection strings are accepted.
func (c *Config) DSN() (string, error) {
	raw := strings.TrimSpace(c.DatabaseURL)
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%w: DATABASE_URL: %v", ErrInvalidConfig, err)
		}
		user := "postgres"
		if u.User != nil && u.User.Username() != "" {
			user = u.User.Username()
		}
		u.User = url.UserPassword(user, c.DatabaseKey)
		return u.String(), nil
	}
	return fmt.Sprintf("%s password='%s'", raw, escapeKV(c.DatabaseKey)), nil
}

func escapeKV(v string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
}
