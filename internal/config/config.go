// Package config loads the service configuration from an optional YAML
// file, a .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is built once at startup and passed to the components that need it.
type Config struct {
	Port      int             `koanf:"port"`
	Log       LogConfig       `koanf:"log"`
	Data      DataConfig      `koanf:"data"`
	Templates TemplatesConfig `koanf:"templates"`
	Sales     SalesConfig     `koanf:"sales"`
	PayPal    PayPalConfig    `koanf:"paypal"`
	Gemini    GeminiConfig    `koanf:"gemini"`
	Rate      RateConfig      `koanf:"rate"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DataConfig locates the analytics and sales files.
type DataConfig struct {
	Dir string `koanf:"dir"`
}

// TemplatesConfig optionally replaces the embedded template data.
type TemplatesConfig struct {
	Dir string `koanf:"dir"`
}

type SalesConfig struct {
	Enabled    bool   `koanf:"enabled"`
	PriceCents int64  `koanf:"price_cents"`
	Currency   string `koanf:"currency"`
}

type PayPalConfig struct {
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	Mode         string        `koanf:"mode"`
	BaseURL      string        `koanf:"base_url"`
	ReturnURL    string        `koanf:"return_url"`
	CancelURL    string        `koanf:"cancel_url"`
	Timeout      time.Duration `koanf:"timeout"`
	MaxAttempts  int           `koanf:"max_attempts"`
}

// GeminiConfig enables AI polishing when APIKey is set.
type GeminiConfig struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
}

// RateConfig limits write endpoints per client IP.
type RateConfig struct {
	RPS   float64 `koanf:"rps"`
	Burst int     `koanf:"burst"`
}

func applyDefaults(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "data"
	}

	if cfg.Sales.PriceCents == 0 {
		cfg.Sales.PriceCents = 499
	}
	if cfg.Sales.Currency == "" {
		cfg.Sales.Currency = "EUR"
	}
	cfg.Sales.Currency = strings.ToUpper(cfg.Sales.Currency)

	if cfg.PayPal.Mode == "" {
		cfg.PayPal.Mode = "sandbox"
	}
	cfg.PayPal.Mode = strings.ToLower(cfg.PayPal.Mode)
	if cfg.PayPal.Timeout == 0 {
		cfg.PayPal.Timeout = 30 * time.Second
	}
	if cfg.PayPal.MaxAttempts == 0 {
		cfg.PayPal.MaxAttempts = 3
	}
	if cfg.PayPal.ReturnURL == "" {
		cfg.PayPal.ReturnURL = fmt.Sprintf("http://localhost:%d/api/sales/confirm", cfg.Port)
	}
	if cfg.PayPal.CancelURL == "" {
		cfg.PayPal.CancelURL = fmt.Sprintf("http://localhost:%d/", cfg.Port)
	}

	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.5-flash-lite"
	}

	if cfg.Rate.RPS == 0 {
		cfg.Rate.RPS = 5
	}
	if cfg.Rate.Burst == 0 {
		cfg.Rate.Burst = 10
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q: must be json or console", c.Log.Format)
	}

	if c.Data.Dir == "" {
		return errors.New("data dir is required")
	}

	switch c.PayPal.Mode {
	case "sandbox", "live":
	default:
		return fmt.Errorf("invalid paypal mode %q: must be sandbox or live", c.PayPal.Mode)
	}
	if c.PayPal.Timeout < 0 {
		return errors.New("paypal timeout must be positive")
	}
	if c.PayPal.MaxAttempts < 1 {
		return fmt.Errorf("paypal max attempts must be at least 1, got %d", c.PayPal.MaxAttempts)
	}
	if c.PayPal.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.PayPal.BaseURL); err != nil {
			return fmt.Errorf("invalid paypal base url: %w", err)
		}
	}

	if c.Sales.Enabled {
		if c.PayPal.ClientID == "" || c.PayPal.ClientSecret == "" {
			return errors.New("sales are enabled but PAYPAL_CLIENT_ID or PAYPAL_CLIENT_SECRET is missing")
		}
		if c.Sales.PriceCents <= 0 {
			return fmt.Errorf("sales price must be positive, got %d", c.Sales.PriceCents)
		}
		if len(c.Sales.Currency) != 3 {
			return fmt.Errorf("invalid sales currency %q: must be an ISO 4217 code", c.Sales.Currency)
		}
	}

	if c.Rate.RPS < 0 || c.Rate.Burst < 0 {
		return errors.New("rate limit values must not be negative")
	}

	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
