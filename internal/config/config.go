// Package config centralizes runtime configuration. Settings come from
// environment variables with defaults applied for anything unset, and the
// loaded result is validated once at startup so a misconfigured deployment
// fails before it serves traffic.
package config

import (
	"strconv"
	"time"
)

// Config holds all service configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Ingest   IngestConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing a response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// RequestTimeout is the per-request middleware timeout (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum wait for graceful shutdown (default: 15s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Optional: when unset the
	// service runs against the in-memory store, which is the mode used in
	// development and tests.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of pooled connections (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections kept open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
}

// IngestConfig holds evidence file ingestion settings.
type IngestConfig struct {
	// MaxFileSize is the largest accepted upload in bytes (default: 25MB)
	MaxFileSize int64 `env:"INGEST_MAX_FILE_SIZE" default:"26214400"`

	// MaxRecords caps the data rows processed from a single file (default: 50000)
	MaxRecords int `env:"INGEST_MAX_RECORDS" default:"50000"`

	// DefaultSourceSystem labels atoms whose upload did not name one (default: manual_upload)
	DefaultSourceSystem string `env:"INGEST_DEFAULT_SOURCE_SYSTEM" default:"manual_upload"`

	// Timeout bounds a single ingest operation end to end (default: 2m)
	Timeout time.Duration `env:"INGEST_TIMEOUT" default:"2m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: json)
	Format string `env:"LOG_FORMAT" default:"json"`
}

// Addr returns the server listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
