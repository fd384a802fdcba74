package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv         string
	LogLevel       string
	EchoStatements bool
	TracingEnabled bool
	OTelEndpoint   string
	EncryptionKey  string
	Database       DatabaseConfig
	Pool           PoolConfig
}

type DatabaseConfig struct {
	Driver string
	URL    string
}

type PoolConfig struct {
	Size            int
	CheckoutRetries int
}

var bindings = map[string]string{
	"app.env":               "APP_ENV",
	"log.level":             "LOG_LEVEL",
	"log.echo":              "ECHO_STATEMENTS",
	"tracing.enabled":       "TRACING_ENABLED",
	"tracing.endpoint":      "OTEL_ENDPOINT",
	"encryption.key":        "ENCRYPTION_KEY",
	"database.driver":       "DB_DRIVER",
	"database.url":          "DATABASE_URL",
	"pool.size":             "POOL_SIZE",
	"pool.checkout_retries": "POOL_CHECKOUT_RETRIES",
}

// Load loads configuration from the environment, after reading a .env
// file into it when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// A missing .env is normal outside development.
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}

	v.SetDefault("app.env", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("pool.size", 5)
	v.SetDefault("pool.checkout_retries", 1)

	cfg := Config{
		AppEnv:         v.GetString("app.env"),
		LogLevel:       v.GetString("log.level"),
		EchoStatements: v.GetBool("log.echo"),
		TracingEnabled: v.GetBool("tracing.enabled"),
		OTelEndpoint:   v.GetString("tracing.endpoint"),
		EncryptionKey:  v.GetString("encryption.key"),
		Database: DatabaseConfig{
			Driver: v.GetString("database.driver"),
			URL:    v.GetString("database.url"),
		},
		Pool: PoolConfig{
			Size:            v.GetInt("pool.size"),
			CheckoutRetries: v.GetInt("pool.checkout_retries"),
		},
	}

	switch cfg.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, cfg.Database.Driver)
	}
	if cfg.Pool.Size <= 0 {
		return nil, fmt.Errorf("POOL_SIZE must be positive, got %d", cfg.Pool.Size)
	}
	if cfg.Pool.CheckoutRetries < 0 {
		return nil, fmt.Errorf("POOL_CHECKOUT_RETRIES must not be negative, got %d", cfg.Pool.CheckoutRetries)
	}

	if cfg.EncryptionKey != "" && len(cfg.EncryptionKey) != 64 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be a 64-character hex string (32 bytes), but got %d chars", len(cfg.EncryptionKey))
	}

	return &cfg, nil
}

// RequireDatabase checks that a database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL is not set in environment or .env file")
	}
	return nil
}
