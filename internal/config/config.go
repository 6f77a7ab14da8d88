// Package config loads application configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Log     LogConfig
	DB      DBConfig
	Session SessionConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port string `envconfig:"PORT" default:"8080"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// DBConfig holds audit database configuration.
type DBConfig struct {
	Path string `envconfig:"DB_PATH" default:"data/broker.db"`
}

// SessionConfig tunes session handling.
type SessionConfig struct {
	// ReplayBufferSize is the per-session output replay cache in bytes.
	ReplayBufferSize int `envconfig:"REPLAY_BUFFER_SIZE" default:"65536"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
