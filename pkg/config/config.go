// Package config loads simulator configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// FeedConfig configures the optional kafka order-update feed.
type FeedConfig struct {
	Enabled bool     `env:"FEED_ENABLED" envDefault:"false"`
	Brokers []string `env:"FEED_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	Topic   string   `env:"FEED_TOPIC" envDefault:"order-updates"`
}

// Config holds the simulator configuration.
type Config struct {
	LogLevel string   `env:"LOG_LEVEL" envDefault:"info"`
	Venues   []string `env:"VENUES" envSeparator:"," envDefault:"binance,coinbase"`
	Feed     FeedConfig
}

// Load reads configuration from a .env file (when present) and the
// environment.
func Load() (*Config, error) {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
