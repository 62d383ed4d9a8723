package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the client configuration, sourced from environment
// variables. Command-line flags may override individual fields in main.
type Config struct {
	// ServerURL - адрес бекенда
	ServerURL string `env:"TRAINCACHE_SERVER_URL" envDefault:"http://localhost:3000"`

	// DBPath - путь к локальной BoltDB базе
	DBPath string `env:"TRAINCACHE_DB_PATH" envDefault:"traincache.db"`

	// SyncInterval - период опроса /api/sync/versions
	SyncInterval time.Duration `env:"TRAINCACHE_SYNC_INTERVAL" envDefault:"1m"`

	// RequestTTL - TTL записей кеша запросов
	RequestTTL time.Duration `env:"TRAINCACHE_REQUEST_TTL" envDefault:"5m"`

	// LogLevel - debug | info | warn | error
	LogLevel string `env:"TRAINCACHE_LOG_LEVEL" envDefault:"info"`
}

// Load parses the configuration from the environment
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
