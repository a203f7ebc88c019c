// Package common provides shared utilities for fundview
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for fundview
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Backend     BackendConfig   `toml:"backend"`
	Cache       CacheConfig     `toml:"cache"`
	Telemetry   TelemetryConfig `toml:"telemetry"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// BackendConfig holds configuration for the dashboard backend API
type BackendConfig struct {
	V1 V1Config `toml:"v1"`
	V2 V2Config `toml:"v2"`
}

// V1Config holds configuration for the per-scope v1 endpoints
type V1Config struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *V1Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// V2Config holds configuration for the unified v2 endpoint
type V2Config struct {
	Enabled       bool   `toml:"enabled"`
	BaseURL       string `toml:"base_url"`
	RetryAttempts int    `toml:"retry_attempts"`
	RetryDelay    string `toml:"retry_delay"`
	Timeout       string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *V2Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetRetryDelay parses and returns the delay between retry attempts
func (c *V2Config) GetRetryDelay() time.Duration {
	d, err := time.ParseDuration(c.RetryDelay)
	if err != nil {
		return time.Second
	}
	return d
}

// CacheConfig holds TTL overrides for the normalized cache
type CacheConfig struct {
	EntityTTL string `toml:"entity_ttl"`
	QueryTTL  string `toml:"query_ttl"`
}

// GetEntityTTL parses the entity TTL, falling back to the freshness default
func (c *CacheConfig) GetEntityTTL() time.Duration {
	d, err := time.ParseDuration(c.EntityTTL)
	if err != nil {
		return FreshnessEntity
	}
	return d
}

// GetQueryTTL parses the query TTL, falling back to the freshness default
func (c *CacheConfig) GetQueryTTL() time.Duration {
	d, err := time.ParseDuration(c.QueryTTL)
	if err != nil {
		return FreshnessQuery
	}
	return d
}

// TelemetryConfig holds the event buffer configuration
type TelemetryConfig struct {
	Enabled       bool   `toml:"enabled"`
	BufferSize    int    `toml:"buffer_size"`
	FlushInterval string `toml:"flush_interval"`
}

// GetFlushInterval parses and returns the flush interval
func (c *TelemetryConfig) GetFlushInterval() time.Duration {
	d, err := time.ParseDuration(c.FlushInterval)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Backend: BackendConfig{
			V1: V1Config{
				BaseURL:   "http://localhost:5000",
				RateLimit: 10,
				Timeout:   "30s",
			},
			V2: V2Config{
				Enabled:       true,
				BaseURL:       "http://localhost:5000",
				RetryAttempts: 2,
				RetryDelay:    "1s",
				Timeout:       "30s",
			},
		},
		Cache: CacheConfig{
			EntityTTL: "5m",
			QueryTTL:  "2m",
		},
		Telemetry: TelemetryConfig{
			Enabled:       true,
			BufferSize:    64,
			FlushInterval: "30s",
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

	// Apply environment overrides
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FUNDVIEW_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("FUNDVIEW_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("FUNDVIEW_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("FUNDVIEW_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if url := os.Getenv("FUNDVIEW_BACKEND_URL"); url != "" {
		config.Backend.V1.BaseURL = url
		config.Backend.V2.BaseURL = url
	}

	if v2 := os.Getenv("FUNDVIEW_V2_ENABLED"); v2 != "" {
		if b, err := strconv.ParseBool(v2); err == nil {
			config.Backend.V2.Enabled = b
		}
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
