// Package common provides shared utilities for the Payoff gateway
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the Payoff gateway
type Config struct {
	Environment string         `toml:"environment"`
	Server      ServerConfig   `toml:"server"`
	Upstream    UpstreamConfig `toml:"upstream"`
	Cache       CacheConfig    `toml:"cache"`
	Storage     StorageConfig  `toml:"storage"`
	Sync        SyncConfig     `toml:"sync"`
	Auth        AuthConfig     `toml:"auth"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig holds HTTP server configuration.
// PublicHost is the Host header clients address the gateway by; a request
// for any other host is proxied untouched instead of cached. Empty disables
// the check (single-host deployments behind a trusted front).
type ServerConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	PublicHost string `toml:"public_host"`
}

// UpstreamConfig holds configuration for the origin calculation API.
type UpstreamConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *UpstreamConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// CacheConfig holds cache namespace configuration.
// Namespace names are <prefix>-<family>-<version>; bumping a version on
// deploy makes every namespace from the previous generation stale.
type CacheConfig struct {
	Prefix        string   `toml:"prefix"`
	ShellVersion  string   `toml:"shell_version"`
	APIVersion    string   `toml:"api_version"`
	CalcVersion   string   `toml:"calc_version"`
	APIPrefix     string   `toml:"api_prefix"`
	AssetsPrefix  string   `toml:"assets_prefix"`
	ShellManifest []string `toml:"shell_manifest"`
}

// StorageConfig holds path configuration for the 2 storage areas.
type StorageConfig struct {
	Cache AreaConfig `toml:"cache"` // Cached responses + namespace registry (BadgerHold)
	Sync  AreaConfig `toml:"sync"`  // Pending-write replay queue (BadgerHold)
}

// AreaConfig holds path configuration for a storage area.
type AreaConfig struct {
	Path string `toml:"path"`
}

// SyncConfig holds background-sync replay configuration.
type SyncConfig struct {
	Interval    string `toml:"interval"`
	MaxAttempts int    `toml:"max_attempts"`
}

// GetInterval parses and returns the replay probe interval.
func (c *SyncConfig) GetInterval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// AuthConfig holds authentication configuration for the control channel.
type AuthConfig struct {
	JWTSecret   string `toml:"jwt_secret"`
	TokenExpiry string `toml:"token_expiry"` // duration string, default "24h"
}

// GetTokenExpiry parses and returns the token expiry duration.
func (c *AuthConfig) GetTokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.TokenExpiry)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string `toml:"level"`
	Format   string `toml:"format"`
	FilePath string `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8090,
		},
		Upstream: UpstreamConfig{
			BaseURL:   "http://localhost:8080",
			RateLimit: 20,
			Timeout:   "30s",
		},
		Cache: CacheConfig{
			Prefix:       "payoff",
			ShellVersion: "v1",
			APIVersion:   "v1",
			CalcVersion:  "v1",
			APIPrefix:    "/api/",
			AssetsPrefix: "/assets/",
			ShellManifest: []string{
				"/",
				"/index.html",
				"/manifest.json",
				"/icon.svg",
			},
		},
		Storage: StorageConfig{
			Cache: AreaConfig{Path: "data/cache"},
			Sync:  AreaConfig{Path: "data/sync"},
		},
		Sync: SyncConfig{
			Interval:    "5m",
			MaxAttempts: 10,
		},
		Auth: AuthConfig{
			JWTSecret:   "dev-jwt-secret-change-in-production",
			TokenExpiry: "24h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PAYOFF_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("PAYOFF_HOST"); host != "" {
		config.Server.Host = host
	}

	if host := os.Getenv("PAYOFF_PUBLIC_HOST"); host != "" {
		config.Server.PublicHost = host
	}

	if port := os.Getenv("PAYOFF_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("PAYOFF_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if base := os.Getenv("PAYOFF_UPSTREAM_URL"); base != "" {
		config.Upstream.BaseURL = base
	}

	if v := os.Getenv("PAYOFF_CACHE_VERSION"); v != "" {
		// Single deploy tag bumps all three families together.
		config.Cache.ShellVersion = v
		config.Cache.APIVersion = v
		config.Cache.CalcVersion = v
	}

	if v := os.Getenv("PAYOFF_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
	if v := os.Getenv("PAYOFF_AUTH_TOKEN_EXPIRY"); v != "" {
		config.Auth.TokenExpiry = v
	}
}

// validate rejects configurations the gateway cannot run with.
func validate(config *Config) error {
	if config.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if config.Cache.Prefix == "" {
		return fmt.Errorf("cache.prefix is required")
	}
	if len(config.Cache.ShellManifest) == 0 {
		return fmt.Errorf("cache.shell_manifest must list at least the app shell document")
	}
	if !strings.HasSuffix(config.Cache.APIPrefix, "/") {
		config.Cache.APIPrefix += "/"
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
