package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds application configuration values loaded from environment variables.
type Config struct {
	HTTPPort  string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`

	SessionSecret string        `env:"SESSION_SECRET"` // Signs session JWTs; required by the server
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionIdle   time.Duration `env:"SESSION_IDLE_TTL" envDefault:"30m"` // Idle sessions leave memory after this
	EncryptionKey string        `env:"ENCRYPTION_KEY"`                    // 64 hex chars; derived from SessionSecret when empty

	StoreDriver string `env:"STORE_DRIVER" envDefault:"memory"` // memory | sqlite | postgres
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"convobot.db"`
	DatabaseURL string `env:"DATABASE_URL"`

	GeminiAPIKey    string        `env:"GEMINI_API_KEY"`
	GeminiBaseURL   string        `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	GeminiModel     string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	CustomModel     string        `env:"CUSTOM_MODEL" envDefault:"gpt-3.5-turbo"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"0s"` // 0 keeps the transport default

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"10"`

	ThinkDelayMin time.Duration `env:"THINK_DELAY_MIN" envDefault:"1s"`
	ThinkDelayMax time.Duration `env:"THINK_DELAY_MAX" envDefault:"3s"`
}

var ErrInvalidConfig = errors.New("invalid configuration")

// LoadConfig loads configuration from a .env file, if present, and the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Str("component", "config").Msg("no .env file found, using environment variables only")
	}
	return Parse()
}

// Parse reads the environment without touching .env files.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "memory", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for the postgres store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown STORE_DRIVER %q", ErrInvalidConfig, c.StoreDriver)
	}
	if c.ThinkDelayMax < c.ThinkDelayMin {
		return fmt.Errorf("%w: THINK_DELAY_MAX is below THINK_DELAY_MIN", ErrInvalidConfig)
	}
	return nil
}

// RequireSessionSecret fails when no session secret is configured.
func (c *Config) RequireSessionSecret() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("%w: SESSION_SECRET is not set", ErrInvalidConfig)
	}
	return nil
}
