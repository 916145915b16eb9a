// Package app provides the application initialization and lifecycle management
package app

import (
	"database/sql"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/spinshelf/spinshelf/internal/config"
	"github.com/spinshelf/spinshelf/internal/database"
	"github.com/spinshelf/spinshelf/internal/discogs"
	"github.com/spinshelf/spinshelf/internal/loggy"
	"github.com/spinshelf/spinshelf/internal/record"
	"github.com/spinshelf/spinshelf/internal/sync"
	"github.com/spinshelf/spinshelf/internal/throttle"
)

// App represents the application instance with its dependencies
type App struct {
	Config  *config.Config
	Discogs *discogs.Client
	Records record.Repository
	Runs    sync.Repository
	Sync    *sync.Service
}

// New initializes a new application instance with all its dependencies
func New() (*App, error) {
	cfg, err := initConfig()
	if err != nil {
		return nil, err
	}

	if err := initLogger(cfg); err != nil {
		return nil, err
	}

	loggy.Info("Application initializing", "log_level", cfg.Logging.Level)

	if err := database.InitDB(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	db, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	app := initServices(cfg, db)

	loggy.Info("Application initialized successfully")
	return app, nil
}

// initConfig loads and sets up the application configuration
func initConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv("", "")
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	config.Set(cfg)
	return cfg, nil
}

// initLogger initializes the logging system
func initLogger(cfg *config.Config) error {
	err := loggy.Init(loggy.Config{
		Level:      config.ParseLogLevel(cfg.Logging.Level),
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// initServices wires the repositories and services together. The single
// throttle.Limiter instance keeps every Discogs request on one budget.
func initServices(cfg *config.Config, db *sql.DB) *App {
	logger := loggy.GetGlobalLogger()

	limiter := throttle.New(
		cfg.Discogs.RequestsPerMinute,
		cfg.Discogs.BurstLimit,
		cfg.Discogs.MaxRetries,
		logger,
	)

	client := discogs.NewClient(cfg.Discogs, limiter, logger)
	records := record.NewSQLRepository(db, logger)
	runs := sync.NewSQLRepository(db, logger)
	syncService := sync.NewService(cfg.Discogs, client, records, runs, logger)

	return &App{
		Config:  cfg,
		Discogs: client,
		Records: records,
		Runs:    runs,
		Sync:    syncService,
	}
}

// Shutdown gracefully shuts down the application
func (app *App) Shutdown() error {
	loggy.Info("Shutting down application")

	if err := database.CloseDB(); err != nil {
		loggy.Error("Error closing database connection", "error", err)
	}

	return nil
}

// FromContext retrieves the App instance from the CLI context
func FromContext(c *cli.Context) (*App, error) {
	if c.App.Metadata == nil {
		return nil, fmt.Errorf("app metadata not found in context")
	}

	app, ok := c.App.Metadata["app"].(*App)
	if !ok {
		return nil, fmt.Errorf("app instance not found in context")
	}

	return app, nil
}
