// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Tasklane Contributors

// Package config defines tasklane's configuration and loads it from flags,
// a YAML file, a .env file and the environment.
package config

import (
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/tasklane/tasklane/internal/auth"
	"github.com/tasklane/tasklane/internal/logging"
)

// Storage and revocation backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
)

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server" yaml:"server"`
	Database DatabaseConfig `koanf:"database" yaml:"database"`
	Storage  StorageConfig  `koanf:"storage" yaml:"storage"`
	Auth     AuthConfig     `koanf:"auth" yaml:"auth"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics"`
	Log      LogConfig      `koanf:"log" yaml:"log"`
}

// ServerConfig configures the API listener.
type ServerConfig struct {
	Addr              string        `koanf:"addr" yaml:"addr"`
	APIPrefix         string        `koanf:"api_prefix" yaml:"api_prefix"`
	CORSOrigins       []string      `koanf:"cors_origins" yaml:"cors_origins"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL            string `koanf:"url" yaml:"url"`
	ConnectRetries uint64 `koanf:"connect_retries" yaml:"connect_retries"`
	AutoMigrate    bool   `koanf:"auto_migrate" yaml:"auto_migrate"`
}

// StorageConfig selects where users and todos live.
type StorageConfig struct {
	Backend string `koanf:"backend" yaml:"backend"`
}

// AuthConfig configures tokens, the session carrier and revocation.
type AuthConfig struct {
	TokenSecret             string        `koanf:"token_secret" yaml:"token_secret"`
	TokenTTL                time.Duration `koanf:"token_ttl" yaml:"token_ttl"`
	Issuer                  string        `koanf:"issuer" yaml:"issuer"`
	Carrier                 string        `koanf:"carrier" yaml:"carrier"`
	CookieSecure            bool          `koanf:"cookie_secure" yaml:"cookie_secure"`
	CookieSameSite          string        `koanf:"cookie_same_site" yaml:"cookie_same_site"`
	RevocationBackend       string        `koanf:"revocation_backend" yaml:"revocation_backend"`
	RedisURL                string        `koanf:"redis_url" yaml:"redis_url"`
	RevocationSweepInterval time.Duration `koanf:"revocation_sweep_interval" yaml:"revocation_sweep_interval"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Format string `koanf:"format" yaml:"format"`
	Level  string `koanf:"level" yaml:"level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8080",
			APIPrefix:         "/api/v1",
			CORSOrigins:       []string{"http://localhost:5173"},
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Database: DatabaseConfig{ConnectRetries: 5},
		Storage:  StorageConfig{Backend: BackendPostgres},
		Auth: AuthConfig{
			TokenTTL:                auth.DefaultTokenTTL,
			Issuer:                  auth.DefaultIssuer,
			Carrier:                 auth.CarrierCookie,
			CookieSameSite:          "lax",
			RevocationBackend:       BackendPostgres,
			RevocationSweepInterval: auth.DefaultSweepInterval,
		},
		Metrics: MetricsConfig{Addr: "127.0.0.1:9100"},
		Log:     LogConfig{Format: "json", Level: "info"},
	}
}

// Validate reports the first problem found.
func (c *Config) Validate() error {
	invalid := func(key, format string, args ...any) error {
		return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
	}

	if c.Server.Addr == "" {
		return invalid("server.addr", "server.addr is required")
	}
	if !strings.HasPrefix(c.Server.APIPrefix, "/") {
		return invalid("server.api_prefix", "server.api_prefix must start with '/', got %q", c.Server.APIPrefix)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return invalid("server.shutdown_timeout", "server.shutdown_timeout must be positive")
	}

	if !slices.Contains([]string{BackendPostgres, BackendMemory}, c.Storage.Backend) {
		return invalid("storage.backend", "storage.backend must be 'postgres' or 'memory', got %q", c.Storage.Backend)
	}
	if !slices.Contains([]string{BackendPostgres, BackendRedis, BackendMemory}, c.Auth.RevocationBackend) {
		return invalid("auth.revocation_backend",
			"auth.revocation_backend must be 'postgres', 'redis' or 'memory', got %q", c.Auth.RevocationBackend)
	}
	if c.NeedsDatabase() && c.Database.URL == "" {
		return invalid("database.url", "database.url is required for postgres storage or revocation")
	}
	if c.Auth.RevocationBackend == BackendRedis && c.Auth.RedisURL == "" {
		return invalid("auth.redis_url", "auth.redis_url is required for redis revocation")
	}

	if len(c.Auth.TokenSecret) < auth.MinSecretLength {
		return invalid("auth.token_secret", "auth.token_secret must be at least %d bytes", auth.MinSecretLength)
	}
	if c.Auth.TokenTTL <= 0 {
		return invalid("auth.token_ttl", "auth.token_ttl must be positive")
	}
	if c.Auth.Carrier != auth.CarrierCookie && c.Auth.Carrier != auth.CarrierHeader {
		return invalid("auth.carrier", "auth.carrier must be 'cookie' or 'header', got %q", c.Auth.Carrier)
	}
	if !slices.Contains([]string{"lax", "strict", "none"}, strings.ToLower(c.Auth.CookieSameSite)) {
		return invalid("auth.cookie_same_site", "auth.cookie_same_site must be lax, strict or none, got %q", c.Auth.CookieSameSite)
	}
	if strings.EqualFold(c.Auth.CookieSameSite, "none") && !c.Auth.CookieSecure {
		return invalid("auth.cookie_same_site", "auth.cookie_same_site 'none' requires auth.cookie_secure")
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", "log.level: %v", err)
	}
	return nil
}

// NeedsDatabase reports whether any configured backend uses PostgreSQL.
func (c *Config) NeedsDatabase() bool {
	return c.Storage.Backend == BackendPostgres || c.Auth.RevocationBackend == BackendPostgres
}

// Redacted returns a copy safe to print: the token secret is masked and
// passwords are removed from connection URLs.
func (c Config) Redacted() Config {
	if c.Auth.TokenSecret != "" {
		c.Auth.TokenSecret = "REDACTED"
	}
	c.Database.URL = redactURL(c.Database.URL)
	c.Auth.RedisURL = redactURL(c.Auth.RedisURL)
	c.Server.CORSOrigins = slices.Clone(c.Server.CORSOrigins)
	return c
}

func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "REDACTED"
	}
	return u.Redacted()
}
