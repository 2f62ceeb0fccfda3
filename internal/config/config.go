// Package config loads server settings from MEMBERDESK_* environment
// variables, optionally seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Production is the MEMBERDESK_ENV value that enables strict checks.
const Production = "production"

// Email dispatch modes.
const (
	DispatchBackend = "backend"
	DispatchResend  = "resend"
)

// Config holds every runtime setting.
type Config struct {
	Env         string        `env:"ENV" envDefault:"development"`
	Addr        string        `env:"ADDR" envDefault:":8080"`
	APIURL      string        `env:"API_URL,required"`
	APITimeout  time.Duration `env:"API_TIMEOUT" envDefault:"15s"`
	PageSize    int           `env:"PAGE_SIZE" envDefault:"10"`
	DBPath      string        `env:"DB_PATH" envDefault:"memberdesk.db"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	SlowQueryMs int           `env:"SLOW_QUERY_MS" envDefault:"50"`

	CSRFKey       string        `env:"CSRF_KEY"`
	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	EmailDispatch string `env:"EMAIL_DISPATCH" envDefault:"backend"`
	ResendKey     string `env:"RESEND_KEY"`
	ResendFrom    string `env:"RESEND_FROM" envDefault:"Member Desk <noreply@example.org>"`
	ReplyTo       string `env:"REPLY_TO"`

	RateLimitRPS          int    `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RegistrationPerMinute int    `env:"REGISTRATION_PER_MINUTE" envDefault:"30"`
	MetricsPath           string `env:"METRICS_PATH" envDefault:"/metrics"`
}

// IsProduction reports whether strict production checks apply.
func (c Config) IsProduction() bool {
	return c.Env == Production
}

// LoadEnvFiles loads the files that exist, in order. Variables already set
// in the process environment are not overridden.
func LoadEnvFiles(files ...string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads .env and .env.local (if present) and parses the environment.
// POST: returned Config has passed Validate
func Load() (Config, error) {
	if _, err := LoadEnvFiles(".env", ".env.local"); err != nil {
		return Config{}, fmt.Errorf("load env files: %w", err)
	}
	return Parse(os.Environ())
}

// Parse builds a Config from KEY=VALUE pairs.
func Parse(environ []string) (Config, error) {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	var cfg Config
	err := env.ParseWithOptions(&cfg, env.Options{
		Prefix:      "MEMBERDESK_",
		Environment: vars,
	})
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.EmailDispatch = strings.ToLower(strings.TrimSpace(cfg.EmailDispatch))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that env tags cannot express.
func (c Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("MEMBERDESK_API_URL must be an absolute http(s) URL, got %q", c.APIURL))
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		errs = append(errs, fmt.Errorf("MEMBERDESK_PAGE_SIZE must be between 1 and 100, got %d", c.PageSize))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, fmt.Errorf("MEMBERDESK_API_TIMEOUT must be positive"))
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("MEMBERDESK_RATE_LIMIT_RPS must be non-negative, got %d", c.RateLimitRPS))
	}
	if c.RegistrationPerMinute < 0 {
		errs = append(errs, fmt.Errorf("MEMBERDESK_REGISTRATION_PER_MINUTE must be non-negative, got %d", c.RegistrationPerMinute))
	}
	if !strings.HasPrefix(c.MetricsPath, "/") {
		errs = append(errs, fmt.Errorf("MEMBERDESK_METRICS_PATH must start with '/', got %q", c.MetricsPath))
	}
	switch c.EmailDispatch {
	case DispatchBackend:
	case DispatchResend:
		if c.ResendKey == "" {
			errs = append(errs, errors.New("MEMBERDESK_RESEND_KEY is required when MEMBERDESK_EMAIL_DISPATCH is 'resend'"))
		}
	default:
		errs = append(errs, fmt.Errorf("MEMBERDESK_EMAIL_DISPATCH must be 'backend' or 'resend', got %q", c.EmailDispatch))
	}
	if c.IsProduction() {
		if len(c.CSRFKey) < 32 {
			errs = append(errs, errors.New("MEMBERDESK_CSRF_KEY must be at least 32 bytes in production"))
		}
		if c.SessionSecret == "" {
			errs = append(errs, errors.New("MEMBERDESK_SESSION_SECRET is required in production"))
		}
	}
	return errors.Join(errs...)
}
