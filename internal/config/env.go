package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// LoadFromEnv loads configuration from environment variables.
// Parameters:
// - configDir: directory containing config files (or empty for the default ~/.spinshelf)
// - configFilePath: path to a .env file (or empty for the default)
func LoadFromEnv(configDir string, configFilePath string) (*Config, error) {
	cfg := New()

	// If configDir is empty, use the default
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".spinshelf")

		if err := os.MkdirAll(configDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	cfg.configDir = configDir

	// Default database and log paths live in the config directory
	defaultDBPath := filepath.Join(configDir, "spinshelf.db")
	defaultLogPath := filepath.Join(configDir, "spinshelf.log")

	// Use provided config file path or default
	if configFilePath == "" {
		configFilePath = filepath.Join(configDir, ".env")
	}

	// SPINSHELF_ENV_FILE overrides the .env location entirely
	envFilePath := getEnvString("SPINSHELF_ENV_FILE", "")
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			return nil, fmt.Errorf("failed to load env file from %s: %w", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(configFilePath); err != nil {
			// Fall back to a .env in the current directory
			_ = godotenv.Load()
		}
	}

	// Discogs configuration
	cfg.Discogs = DiscogsConfig{
		Username:          getEnvString("SPINSHELF_DISCOGS_USERNAME", ""),
		Token:             getEnvString("SPINSHELF_DISCOGS_TOKEN", ""),
		BaseURL:           getEnvString("SPINSHELF_DISCOGS_BASE_URL", "https://api.discogs.com"),
		UserAgent:         getEnvString("SPINSHELF_DISCOGS_USER_AGENT", "spinshelf/1.0"),
		Timeout:           getEnvDuration("SPINSHELF_DISCOGS_TIMEOUT", 30*time.Second),
		RequestsPerMinute: getEnvInt("SPINSHELF_DISCOGS_REQUESTS_PER_MINUTE", 60),
		BurstLimit:        getEnvInt("SPINSHELF_DISCOGS_BURST_LIMIT", 1),
		MaxRetries:        getEnvInt("SPINSHELF_DISCOGS_MAX_RETRIES", 2),
		PerPage:           getEnvInt("SPINSHELF_DISCOGS_PER_PAGE", 50),
	}

	// Database configuration
	cfg.Database = DatabaseConfig{
		Path:            getEnvString("SPINSHELF_DB_PATH", defaultDBPath),
		BusyTimeout:     getEnvInt("SPINSHELF_DB_BUSY_TIMEOUT", 5000),
		JournalMode:     getEnvString("SPINSHELF_DB_JOURNAL_MODE", "WAL"),
		SynchronousMode: getEnvString("SPINSHELF_DB_SYNCHRONOUS_MODE", "NORMAL"),
		ForeignKeys:     getEnvBool("SPINSHELF_DB_FOREIGN_KEYS", true),
		ConnMaxLife:     getEnvDuration("SPINSHELF_DB_CONN_MAX_LIFE", 5*time.Minute),
		QueryTimeout:    getEnvDuration("SPINSHELF_DB_QUERY_TIMEOUT", 30*time.Second),
	}

	// Logging configuration
	cfg.Logging = LoggingConfig{
		Level:      getEnvString("SPINSHELF_LOG_LEVEL", "info"),
		Format:     getEnvString("SPINSHELF_LOG_FORMAT", "text"),
		Output:     getEnvString("SPINSHELF_LOG_OUTPUT", defaultLogPath),
		AddSource:  getEnvBool("SPINSHELF_LOG_ADD_SOURCE", true),
		TimeFormat: getEnvString("SPINSHELF_LOG_TIME_FORMAT", time.RFC3339),
	}

	// Server configuration
	cfg.Server = ServerConfig{
		Addr:         getEnvString("SPINSHELF_SERVER_ADDR", ":8090"),
		ReadTimeout:  getEnvDuration("SPINSHELF_SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getEnvDuration("SPINSHELF_SERVER_WRITE_TIMEOUT", 0),
	}

	return cfg, cfg.Validate()
}
