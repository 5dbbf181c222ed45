// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// On-chain RPC endpoint
	RPCURL string

	// Postgres connection
	PGHost               string
	PGPort               int
	PGUser               string
	PGPassword           string
	PGDatabase           string
	PGMaxPoolConnections int
	PGUseSSL             bool
	PGCACertPath         string
	PGClientKeyPath      string

	// Market file: JSON array of {name, address}
	MarketFilePath string

	// Ingestion
	NumPartitions int

	// How far back the one-shot bounded backfill walks on startup (spec.md
	// §4.3.1's duration D).
	BackfillWindow time.Duration

	// HTTP read API
	Port string

	// Rate limiting for the RPC client and the HTTP read surface
	RateLimitRPS   int
	RateLimitBurst int

	// Metrics
	MetricsPort string

	LogLevel string
}

// Load initializes and returns the configuration, validating the fields
// spec.md marks as required. A missing RPC_URL or market file path is a
// fatal configuration fault (spec.md §7) and the caller is expected to
// log.Fatalf on the returned error, matching the teacher's startup
// guard-clause style.
func Load() (*Config, error) {
	cfg := &Config{
		RPCURL:               getEnv("RPC_URL", ""),
		PGHost:               getEnv("PG_HOST", "localhost"),
		PGPort:               getEnvAsInt("PG_PORT", 5432),
		PGUser:               getEnv("PG_USER", "postgres"),
		PGPassword:           getEnv("PG_PASSWORD", ""),
		PGDatabase:           getEnv("PG_DATABASE", "openbook_candles"),
		PGMaxPoolConnections: getEnvAsInt("PG_MAX_POOL_CONNECTIONS", 10),
		PGUseSSL:             getEnvAsBool("PG_USE_SSL", false),
		PGCACertPath:         getEnv("PG_CA_CERT_PATH", ""),
		PGClientKeyPath:      getEnv("PG_CLIENT_KEY_PATH", ""),
		MarketFilePath:       getEnv("MARKET_FILE_PATH", ""),
		NumPartitions:        getEnvAsInt("NUM_TRANSACTION_PARTITIONS", 10),
		BackfillWindow:       getEnvAsDuration("BACKFILL_WINDOW", 24*time.Hour),
		Port:                 getEnv("PORT", "8080"),
		RateLimitRPS:         getEnvAsInt("RATE_LIMIT_REQUESTS_PER_SECOND", 10),
		RateLimitBurst:       getEnvAsInt("RATE_LIMIT_BURST", 20),
		MetricsPort:          getEnv("METRICS_PORT", "9090"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}

	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC_URL is required")
	}
	if cfg.MarketFilePath == "" {
		return nil, fmt.Errorf("MARKET_FILE_PATH is required")
	}

	return cfg, nil
}

// DatabaseURL builds the pgx connection string from the discrete PG_* fields.
func (c *Config) DatabaseURL() string {
	sslmode := "disable"
	if c.PGUseSSL {
		sslmode = "verify-full"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase, sslmode)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a bool with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as a time.Duration (e.g.
// "24h", "30m") with a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
