// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port string

	// Messaging transport.
	TelegramToken string
	PollTimeout   time.Duration
	ReplyDelay    time.Duration

	// Completion service.
	OpenAIKey   string
	OpenAIModel string
	LLMTimeout  time.Duration

	// Durable fact store. FactStoreURL selects the remote KV service;
	// when empty the SQLite store at DBPath is used instead.
	FactStoreURL string
	DBPath       string
	StoreTimeout time.Duration

	// Shared secrets. DevPassword empty disables developer mode.
	BotPassword string
	DevPassword string

	// External billing registry for email linking. Empty disables the
	// email step of the authorization flow.
	PlanRegistryURL string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		TelegramToken:   getEnv("TELEGRAM_TOKEN", ""),
		PollTimeout:     getEnvDuration("TELEGRAM_POLL_TIMEOUT", 50*time.Second),
		ReplyDelay:      getEnvDuration("REPLY_DELAY", 1500*time.Millisecond),
		OpenAIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		LLMTimeout:      getEnvDuration("LLM_TIMEOUT", 30*time.Second),
		FactStoreURL:    getEnv("FACTSTORE_URL", ""),
		DBPath:          getEnv("DB_PATH", "./data/sofia.db"),
		StoreTimeout:    getEnvDuration("STORE_TIMEOUT", 5*time.Second),
		BotPassword:     getEnv("BOT_PASSWORD", ""),
		DevPassword:     getEnv("DEV_PASSWORD", ""),
		PlanRegistryURL: getEnv("PLAN_REGISTRY_URL", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
// A missing secret is fatal at startup; the process must not run degraded.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if c.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.BotPassword == "" {
		return fmt.Errorf("BOT_PASSWORD is required")
	}
	if c.FactStoreURL == "" && c.DBPath == "" {
		return fmt.Errorf("either FACTSTORE_URL or DB_PATH must be set")
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be > 0")
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be > 0")
	}
	return nil
}

// UseRemoteStore returns true when the remote KV fact store is configured.
func (c *Config) UseRemoteStore() bool {
	return c.FactStoreURL != ""
}

// EmailLinkingEnabled returns true when the plan registry is configured.
func (c *Config) EmailLinkingEnabled() bool {
	return c.PlanRegistryURL != ""
}

// IsDevelopment returns true if running in development mode.
func IsDevelopment() bool {
	return os.Getenv("APP_ENV") == "development"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
