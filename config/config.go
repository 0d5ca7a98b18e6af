// Package config loads server settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Assistant providers.
const (
	ProviderLangchain = "langchain"
	ProviderOpenAI    = "openai"
)

// APIKeyEnv names the variable holding the assistant API key.
const APIKeyEnv = "CHATFLOW_ASSISTANT_API_KEY"

// Config holds all server settings.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Assistant AssistantConfig
	Executor  ExecutorConfig
}

type ServerConfig struct {
	Host     string
	Port     int
	LogLevel string
}

type DatabaseConfig struct {
	// URL selects Postgres persistence. Empty keeps flows in memory.
	URL string
}

type AssistantConfig struct {
	Provider  string
	APIKey    string
	Model     string
	MaxRounds int
}

type ExecutorConfig struct {
	// HTTPTimeout of zero leaves the transport default in place.
	HTTPTimeout time.Duration
}

// Load reads configuration from the environment, after applying .env if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:     getEnvWithDefault("CHATFLOW_HOST", ""),
			Port:     getEnvAsInt("CHATFLOW_PORT", 3000),
			LogLevel: getEnvWithDefault("CHATFLOW_LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL: getEnvWithDefault("DATABASE_URL", ""),
		},
		Assistant: AssistantConfig{
			Provider:  getEnvWithDefault("CHATFLOW_ASSISTANT_PROVIDER", ProviderOpenAI),
			APIKey:    getEnvWithDefault(APIKeyEnv, ""),
			Model:     getEnvWithDefault("CHATFLOW_ASSISTANT_MODEL", ""),
			MaxRounds: getEnvAsInt("CHATFLOW_ASSISTANT_MAX_ROUNDS", 8),
		},
		Executor: ExecutorConfig{
			HTTPTimeout: getEnvAsDuration("CHATFLOW_HTTP_TIMEOUT", 0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration. A missing API key is allowed: the
// server then runs in placeholder mode.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("CHATFLOW_PORT must be between 1 and 65535")
	}
	if _, err := ParseLevel(c.Server.LogLevel); err != nil {
		return err
	}
	switch c.Assistant.Provider {
	case ProviderLangchain, ProviderOpenAI:
	default:
		return fmt.Errorf("CHATFLOW_ASSISTANT_PROVIDER must be %q or %q", ProviderLangchain, ProviderOpenAI)
	}
	if c.Assistant.MaxRounds <= 0 {
		return fmt.Errorf("CHATFLOW_ASSISTANT_MAX_ROUNDS must be positive")
	}
	if c.Executor.HTTPTimeout < 0 {
		return fmt.Errorf("CHATFLOW_HTTP_TIMEOUT must not be negative")
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// HasAPIKey reports whether the assistant is configured.
func (c *Config) HasAPIKey() bool {
	return c.Assistant.APIKey != ""
}

// Logger builds the process logger.
func (c *Config) Logger() *slog.Logger {
	level, _ := ParseLevel(c.Server.LogLevel)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("CHATFLOW_LOG_LEVEL: unknown level %q", s)
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr := os.Getenv(key); valueStr != "" {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
