package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the process configuration, loaded from BYWATER_* env vars.
type Config struct {
	Port      string `env:"BYWATER_PORT" envDefault:"8080"`
	DBPath    string `env:"BYWATER_DB_PATH" envDefault:"bywater.db"`
	LogLevel  string `env:"BYWATER_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"BYWATER_LOG_FORMAT" envDefault:"text"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
