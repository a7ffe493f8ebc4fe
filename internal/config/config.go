package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server    ServerConfig
	Catalog   CatalogConfig   `envPrefix:"CATALOG_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Log       LogConfig
}

type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Host string `env:"HOST" envDefault:""`
}

func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// CatalogConfig configures the upstream catalog client.
type CatalogConfig struct {
	APIKey  string        `env:"API_KEY,required,notEmpty"`
	BaseURL string        `env:"BASE_URL" envDefault:"https://api.bestbuy.com/v1"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"8s"`
}

type RateLimitConfig struct {
	// RPS of zero disables limiting.
	RPS   float64 `env:"RPS" envDefault:"20"`
	Burst int     `env:"BURST" envDefault:"40"`
}

type LogConfig struct {
	Level slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
