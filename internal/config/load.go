package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally a config file.
// Environment variables (prefixed THUMBGEN_, nested keys joined with
// underscores, e.g. THUMBGEN_DISPATCHER_MAX_PARALLEL) take precedence over
// values from config.yaml in the working directory.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("THUMBGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine; env vars alone are a complete source.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key with viper so AutomaticEnv can see it.
// Required keys default to the empty string and are caught by validation
// when neither the environment nor the config file provides them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.url", "")

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.idea_model", "gemini-2.5-pro")
	v.SetDefault("llm.image_model", "gemini-2.0-flash-exp-image-generation")

	v.SetDefault("dispatcher.max_parallel", 5)
	v.SetDefault("dispatcher.max_retries", 2)
	v.SetDefault("dispatcher.settle_delay_ms", 200)
}
