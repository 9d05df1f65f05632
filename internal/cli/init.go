// Package cli provides the initialization shared by cmd/walleet,
// cmd/walleet-analyzer and cmd/walleetctl.
package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"walleet/internal/config"
	"walleet/internal/log"
	"walleet/internal/taxonomy"
)

// SetupLogger initializes structured logging at level and sets it as the
// default logger.
func SetupLogger(level, component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	cfg.Component = component
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// LoadTaxonomy reads the category seed file from the data directory.
func LoadTaxonomy(logger *log.Logger, cfg *config.Config) *taxonomy.Taxonomy {
	tax := taxonomy.Load(cfg.DataDir)
	logger.Info("Categories loaded",
		"source", filepath.Join(cfg.DataDir, taxonomy.SeedFile),
		log.FieldCount, len(tax.Names()))
	return tax
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
