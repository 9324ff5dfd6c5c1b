package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultResultsFile        = "test-results.json"
	DefaultStatusQueryTimeout = 10 * time.Second
)

// Config holds the defaults for command-line parameters. Flags override every field.
type Config struct {
	// FHIR server settings
	BaseURL            string
	StatusQueryTimeout time.Duration

	// Operational logging
	LogLevel string
	LogFile  string

	// Report written by --store when no file name is given
	ResultsFile string
}

// Load reads configuration from environment variables and an optional .env file in the
// working directory.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		BaseURL:            getEnvOrDefault("FHIR_BASE_URL", ""),
		StatusQueryTimeout: getEnvDurationOrDefault("FHIR_STATUS_TIMEOUT", DefaultStatusQueryTimeout),
		LogLevel:           getEnvOrDefault("FHIR_LOG_LEVEL", "info"),
		LogFile:            getEnvOrDefault("FHIR_LOG_FILE", ""),
		ResultsFile:        getEnvOrDefault("FHIR_RESULTS_FILE", DefaultResultsFile),
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvDurationOrDefault accepts either a Go duration string or a whole number of seconds.
func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	slog.Warn("ignoring invalid duration", "key", key, "value", val)
	return defaultVal
}
