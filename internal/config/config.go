// Package config loads and validates spinshelf's environment-driven configuration
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	// Global configuration instance
	globalConfig *Config
	configMutex  sync.RWMutex
)

// Get returns the global configuration instance.
// If the configuration has not been initialized, it will return an error.
func Get() (*Config, error) {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if globalConfig == nil {
		return nil, fmt.Errorf("configuration not initialized")
	}

	return globalConfig, nil
}

// Set sets the global configuration instance
func Set(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()

	globalConfig = cfg
}

// Config represents the complete application configuration
type Config struct {
	Discogs   DiscogsConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
	Server    ServerConfig
	configDir string // Internal: directory the config was loaded from
}

// DiscogsConfig holds Discogs API configuration
type DiscogsConfig struct {
	// Authentication and identity
	Username string // Discogs username owning the collection
	Token    string // Personal access token

	// Connection settings
	BaseURL   string        // Discogs API base URL
	UserAgent string        // User-Agent sent with every request (required by Discogs)
	Timeout   time.Duration // Per-request timeout

	// Request pacing
	RequestsPerMinute int // Token-bucket budget per rolling minute
	BurstLimit        int // Token-bucket burst capacity
	MaxRetries        int // Retries after a rate-limit rejection (total attempts = MaxRetries + 1)

	// Collection paging
	PerPage int // Items per collection page
}

// HasCredentials reports whether the username/token pair needed for
// collection access is configured.
func (c DiscogsConfig) HasCredentials() bool {
	return c.Username != "" && c.Token != ""
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Path            string        // Path to the SQLite database file
	JournalMode     string        // Journal mode (WAL recommended)
	SynchronousMode string        // Synchronous mode
	BusyTimeout     int           // Busy timeout in milliseconds
	ForeignKeys     bool          // Whether to enforce foreign key constraints
	ConnMaxLife     time.Duration // Maximum connection lifetime
	QueryTimeout    time.Duration // Query timeout
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string // debug, info, warn, error
	Format     string // text or json
	Output     string // stdout, stderr, or file path
	AddSource  bool   // Include source code position in logs
	TimeFormat string // Time format for logs (empty uses RFC3339)
}

// ServerConfig holds configuration for the local HTTP server (serve command)
type ServerConfig struct {
	Addr         string        // Listen address, e.g. ":8090"
	ReadTimeout  time.Duration // HTTP read timeout
	WriteTimeout time.Duration // HTTP write timeout; 0 disables it so SSE streams stay open
}

// New returns a new empty Config
func New() *Config {
	return &Config{
		Discogs:  DiscogsConfig{},
		Database: DatabaseConfig{},
		Logging:  LoggingConfig{},
		Server:   ServerConfig{},
	}
}

// ConfigDir returns the directory the configuration was loaded from
func (c *Config) ConfigDir() string {
	return c.configDir
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.validateDiscogs(); err != nil {
		return fmt.Errorf("discogs config: %w", err)
	}

	if err := c.validateDatabase(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func (c *Config) validateDiscogs() error {
	if c.Discogs.BaseURL == "" {
		return fmt.Errorf("base URL must not be empty")
	}
	if c.Discogs.RequestsPerMinute < 0 {
		return fmt.Errorf("requests per minute must not be negative")
	}
	if c.Discogs.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	if c.Discogs.PerPage <= 0 || c.Discogs.PerPage > 100 {
		return fmt.Errorf("per page must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("path must not be empty")
	}
	switch strings.ToUpper(c.Database.JournalMode) {
	case "WAL", "DELETE", "TRUNCATE", "MEMORY", "PERSIST", "OFF":
	default:
		return fmt.Errorf("unsupported journal mode: %s", c.Database.JournalMode)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level: %s", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format: %s", c.Logging.Format)
	}
	return nil
}

// ParseLogLevel parses a log level string to a slog.Level
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// getEnvString returns a string from the environment variable
func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns an int from the environment variable
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool returns a bool from the environment variable
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration returns a time.Duration from the environment variable
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
