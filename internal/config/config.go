package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	pkgRetry "github.com/futig/omnistudy/internal/pkg/retry"
	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr       string        `env:"SERVER_ADDR,notEmpty"`
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"90s"`

	// Conversation configuration (in-memory only)
	ConversationTTL             time.Duration `env:"CONVERSATION_TTL" envDefault:"6h"`
	ConversationCleanupInterval time.Duration `env:"CONVERSATION_CLEANUP_INTERVAL" envDefault:"10m"`
	MaxInputLength              int           `env:"MAX_INPUT_LENGTH" envDefault:"20000"`

	// External service configurations
	LLMConnectorCfg LLMConnectorConfig `envPrefix:"LLM_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL,notEmpty"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Telegram bot configuration (optional)
	TelegramCfg TelegramConfig `envPrefix:"TELEGRAM_"`

	// Environment (set from flag, not from env var)
	Environment string
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken           string               `env:"BOT_TOKEN"`
	UpdateTimeout      int                  `env:"UPDATE_TIMEOUT" envDefault:"60"`
	RateLimitPerMinute int                  `env:"RATE_LIMIT_PER_MINUTE" envDefault:"20"`
	RateLimitBurst     int                  `env:"RATE_LIMIT_BURST" envDefault:"5"`
	ShutdownTimeout    int                  `env:"SHUTDOWN_TIMEOUT" envDefault:"30"` // seconds
	StateTTL           time.Duration        `env:"STATE_TTL" envDefault:"24h"`
	Retry              pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

// LLMConnectorConfig configures the Gemini generateContent gateway.
// APIKey is not validated here; a missing key surfaces as a generation failure.
type LLMConnectorConfig struct {
	HTTPClientConfig
	APIKey string `env:"API_KEY"`
	Model  string `env:"MODEL" envDefault:"gemini-3-flash-preview"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"60s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"60s"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL" envDefault:"https://generativelanguage.googleapis.com"`
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}

	cfg.Environment = *envFlag

	return cfg, nil
}

// Parse reads and validates the configuration from the process environment
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errors []string

	if cfg.MaxInputLength < 1 {
		errors = append(errors, fmt.Sprintf("MAX_INPUT_LENGTH must be positive, got %d", cfg.MaxInputLength))
	}

	if cfg.ConversationTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("CONVERSATION_TTL must be at least 1m, got %s", cfg.ConversationTTL))
	}

	if cfg.LLMConnectorCfg.Model == "" {
		errors = append(errors, "LLM_MODEL must not be empty")
	}

	// Validate Telegram configuration
	if cfg.TelegramCfg.RateLimitPerMinute < 1 || cfg.TelegramCfg.RateLimitPerMinute > 60 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_RATE_LIMIT_PER_MINUTE must be between 1 and 60, got %d", cfg.TelegramCfg.RateLimitPerMinute))
	}

	if cfg.TelegramCfg.RateLimitBurst < 1 || cfg.TelegramCfg.RateLimitBurst > 20 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_RATE_LIMIT_BURST must be between 1 and 20, got %d", cfg.TelegramCfg.RateLimitBurst))
	}

	if cfg.TelegramCfg.ShutdownTimeout < 1 || cfg.TelegramCfg.ShutdownTimeout > 300 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_SHUTDOWN_TIMEOUT must be between 1 and 300 seconds, got %d", cfg.TelegramCfg.ShutdownTimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
