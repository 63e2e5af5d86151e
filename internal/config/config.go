package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config application configuration
type Config struct {
	// Panel HTTP API
	ListenAddr string `env:"LISTEN_ADDR" envDefault:"127.0.0.1:8080"`

	// Database
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/commentbot.db"`

	// Polling
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	PollTimeout     int           `env:"POLL_TIMEOUT_SECONDS" envDefault:"1"` // getUpdates short-poll wait
	TelegramAPIHost string        `env:"TELEGRAM_API_HOST" envDefault:"https://api.telegram.org"`

	// OpenAI
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com"`
	OpenAIModel     string `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	OpenAIMaxTokens int    `env:"OPENAI_MAX_TOKENS" envDefault:"150"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive, got %s", cfg.PollInterval)
	}
	if cfg.PollTimeout < 0 {
		return nil, fmt.Errorf("POLL_TIMEOUT_SECONDS must not be negative, got %d", cfg.PollTimeout)
	}
	if cfg.OpenAIMaxTokens <= 0 {
		return nil, fmt.Errorf("OPENAI_MAX_TOKENS must be positive, got %d", cfg.OpenAIMaxTokens)
	}

	return cfg, nil
}
