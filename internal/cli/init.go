// Package cli provides common CLI initialization utilities shared by
// cmd/dentaldash, cmd/dentaldash-refresh and cmd/dentaldash-snapshot.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"dentaldash/internal/config"
	"dentaldash/internal/log"
)

// SetupLogger initializes structured logging at the given level and
// installs it as the default logger. An unknown level falls back to info
// and is reported.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	lvl, err := log.ParseLevel(level)
	cfg.Level = lvl
	logger := log.New(cfg)
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info logging", log.FieldError, err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads the configuration and checks it with validate,
// exiting the process on failure.
func LoadConfig(logger *log.Logger, validate func(*config.Config) error) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		Fatal(logger, "Failed to load configuration", err)
	}
	if validate != nil {
		if err := validate(cfg); err != nil {
			Fatal(logger, "Configuration validation failed", err)
		}
	}
	return cfg
}

// Bootstrap runs the usual startup sequence: .env, configuration, then a
// logger at the configured level.
func Bootstrap(validate func(*config.Config) error) (*config.Config, *log.Logger) {
	LoadEnvFile()
	boot := SetupLogger("info")
	cfg := LoadConfig(boot, validate)
	return cfg, SetupLogger(cfg.LogLevel)
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// Fatal logs err and exits with status 1.
func Fatal(logger *log.Logger, msg string, err error) {
	logger.Error(msg, log.FieldError, err)
	os.Exit(1)
}
