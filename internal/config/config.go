package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the runtime configuration for the indexer
type Config struct {
	// Postgres connection string; journal and replica share one database
	DatabaseURL string `env:"DATABASE_URL"`

	// HTTP port the query API listens on
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// Log level: debug, info, warn or error
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Environment name; "development" unlocks error detail in responses
	Environment string `env:"ENVIRONMENT" envDefault:"production"`

	// How often the projection polls the journal for new blocks
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`

	// Events fetched per journal page
	PageSize int `env:"PAGE_SIZE" envDefault:"200"`

	// Rebuild the replica from the first journal event on startup
	ReplayFromZero bool `env:"REPLAY_FROM_ZERO" envDefault:"false"`
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive")
	}
	return nil
}

// Development reports whether error detail may appear in API responses
func (c *Config) Development() bool {
	return c.Environment == "development"
}
