// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Storage  StorageConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	CORS     CORSConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 5005)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"5005"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 15s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// MaxBodySize caps POST bodies in bytes (default: 10MB)
	MaxBodySize int64 `env:"SERVER_MAX_BODY_SIZE" default:"10485760"`

	// DevServerURL is advertised by the root hint when no frontend bundle exists
	DevServerURL string `env:"DEV_SERVER_URL" default:"http://localhost:3000"`
}

// DataConfig holds sheet source settings.
type DataConfig struct {
	// Dir is the directory sheet paths are resolved against (default: .)
	Dir string `env:"DATA_DIR" default:"."`

	// ManifestPath points to a JSONC sheet manifest. Empty uses the built-in sheet list.
	ManifestPath string `env:"DATA_MANIFEST"`

	// Encoding is the text encoding of delimited sources, e.g. utf-8, gbk (default: utf-8)
	Encoding string `env:"DATA_ENCODING" default:"utf-8"`

	// DistDir holds the built frontend bundle (default: dist)
	DistDir string `env:"DATA_DIST_DIR" default:"dist"`

	// LinkedInReferencePath is the accepted-connections source used for matching.
	// Empty disables matching.
	LinkedInReferencePath string `env:"DATA_LINKEDIN_REFERENCE"`

	// LoadConcurrency bounds how many sheets load at once (default: 4)
	LoadConcurrency int `env:"DATA_LOAD_CONCURRENCY" default:"4"`
}

// StorageConfig holds overlay store settings.
type StorageConfig struct {
	// Backend selects the overlay store: file, memory, postgres (default: file)
	Backend string `env:"STORAGE_BACKEND" default:"file"`

	// Path is the overlay document for the file backend (default: data_storage.json)
	Path string `env:"STORAGE_PATH" default:"data_storage.json"`

	// DatabaseURL is the PostgreSQL connection string for the postgres backend
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: false)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"false"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey guards /api routes with the X-API-Key header (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// CORSConfig holds cross-origin settings for the dev frontend.
type CORSConfig struct {
	// AllowedOrigins is a comma-separated origin list (default: *)
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
