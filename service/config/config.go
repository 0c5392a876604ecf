package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Database configuration
	DatabaseURL string

	// NATS configuration
	NATSURL string

	// Token gateway configuration
	TokenGatewayURL string

	// Temporal configuration
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string

	// Queue configuration
	CooldownPeriod time.Duration
	MinApprovers   int
	SweepInterval  time.Duration
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Database configuration
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DATABASE_URL is required"))
	}

	// NATS configuration
	cfg.NATSURL = getEnvOrDefault("NATS_URL", "nats://localhost:4222")

	// Token gateway configuration
	cfg.TokenGatewayURL = os.Getenv("TOKEN_GATEWAY_URL")
	if cfg.TokenGatewayURL == "" {
		errs = append(errs, fmt.Errorf("TOKEN_GATEWAY_URL is required"))
	}

	// Temporal configuration
	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "adminq-sweep")

	// Queue configuration
	cooldown, err := parseDuration("COOLDOWN_PERIOD", "90m")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.CooldownPeriod = cooldown
	}

	minApprovers, err := parseInt("MIN_APPROVERS", 1)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MinApprovers = minApprovers
	}

	sweepInterval, err := parseDuration("SWEEP_INTERVAL", "1m")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.SweepInterval = sweepInterval
	}

	if cfg.CooldownPeriod < time.Minute {
		errs = append(errs, fmt.Errorf("COOLDOWN_PERIOD (%v) must be at least 1 minute", cfg.CooldownPeriod))
	}
	if cfg.MinApprovers < 1 {
		errs = append(errs, fmt.Errorf("MIN_APPROVERS (%d) must be at least 1", cfg.MinApprovers))
	}
	if cfg.SweepInterval < time.Second {
		errs = append(errs, fmt.Errorf("SWEEP_INTERVAL (%v) must be at least 1 second", cfg.SweepInterval))
	}

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DatabaseURL is required"))
	}

	if c.TokenGatewayURL == "" {
		errs = append(errs, fmt.Errorf("TokenGatewayURL is required"))
	}

	if c.TemporalHost == "" {
		errs = append(errs, fmt.Errorf("TemporalHost is required"))
	}

	if c.TemporalNamespace == "" {
		errs = append(errs, fmt.Errorf("TemporalNamespace is required"))
	}

	if c.TemporalTaskQueue == "" {
		errs = append(errs, fmt.Errorf("TemporalTaskQueue is required"))
	}

	if c.CooldownPeriod < time.Minute {
		errs = append(errs, fmt.Errorf("CooldownPeriod must be at least 1 minute"))
	}

	if c.MinApprovers < 1 {
		errs = append(errs, fmt.Errorf("MinApprovers must be at least 1"))
	}

	if c.SweepInterval < time.Second {
		errs = append(errs, fmt.Errorf("SweepInterval must be at least 1 second"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
