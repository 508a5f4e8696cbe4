// Package config loads the reconciler configuration from environment
// variables and .env files.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	Environment string
	LogLevel    string
	DBPath      string
	CatalogPath string
}

// Load loads configuration from environment variables.
// It loads .env from the current directory when present, or the file given
// in envPath.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	return &Config{
		Environment: getEnvOrDefault("RECONCILER_ENV", "development"),
		LogLevel:    os.Getenv("RECONCILER_LOG_LEVEL"),
		DBPath:      getEnvOrDefault("RECONCILER_DB_PATH", "./data/reconciler.db"),
		CatalogPath: getEnvOrDefault("RECONCILER_CATALOG", "./catalog.yaml"),
	}, nil
}

// Validate checks that every named setting is set. Names are the
// environment variable names.
func (c *Config) Validate(required ...string) error {
	var missing []string
	for _, key := range required {
		var value string
		switch key {
		case "RECONCILER_ENV":
			value = c.Environment
		case "RECONCILER_LOG_LEVEL":
			value = c.LogLevel
		case "RECONCILER_DB_PATH":
			value = c.DBPath
		case "RECONCILER_CATALOG":
			value = c.CatalogPath
		default:
			return fmt.Errorf("unknown configuration key %s", key)
		}
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}
	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
