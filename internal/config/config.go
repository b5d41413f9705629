package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the service settings read from the environment.
type Config struct {
	Addr        string        `env:"TASKBOARD_ADDR" envDefault:":8080"`
	DBPath      string        `env:"TASKBOARD_DB_PATH" envDefault:"data/taskboard.db"`
	DBDriver    string        `env:"TASKBOARD_DB_DRIVER" envDefault:"sqlite3"`
	StaticDir   string        `env:"TASKBOARD_STATIC_DIR" envDefault:"web/dist"`
	JWTSecret   string        `env:"TASKBOARD_JWT_SECRET"`
	TokenTTL    time.Duration `env:"TASKBOARD_TOKEN_TTL" envDefault:"168h"`
	CORSOrigins []string      `env:"TASKBOARD_CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
	LogLevel    string        `env:"TASKBOARD_LOG_LEVEL" envDefault:"info"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("TASKBOARD_JWT_SECRET is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("TASKBOARD_DB_PATH is required")
	}
	return nil
}
