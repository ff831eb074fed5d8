package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	LLM        LLMConfig        `mapstructure:"llm"        validate:"required"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
// Token issuance lives in the surrounding application; this service only
// verifies bearer tokens signed with the shared secret.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// LLMConfig contains all generation-provider settings.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	IdeaModel    string `mapstructure:"idea_model"     validate:"required"`
	ImageModel   string `mapstructure:"image_model"    validate:"required"`
}

// DispatcherConfig tunes the bounded dispatcher.
type DispatcherConfig struct {
	// MaxParallel bounds concurrent image-generation calls.
	MaxParallel int `mapstructure:"max_parallel" validate:"required,gt=0,lte=64"`

	// MaxRetries is the number of retries after a failed attempt,
	// so MaxRetries=2 means at most 3 attempts per thumbnail.
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0,lte=10"`

	// SettleDelayMS is the pause, in milliseconds, between a slot freeing
	// and the next queued task starting.
	SettleDelayMS int `mapstructure:"settle_delay_ms" validate:"gte=0,lte=10000"`
}

// SettleDelay returns the settle delay as a duration.
func (c DispatcherConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}
