package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file in the working directory
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// SCRY_SERVER_PORT overrides server.port, and so on
	v.SetEnvPrefix("SCRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags and the rules that span config groups.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	switch cfg.Storage.Driver {
	case DriverPostgres:
		if cfg.Database.URL == "" {
			return fmt.Errorf("config validation failed: database.url is required for the %s driver",
				DriverPostgres)
		}
	case DriverJSONFile:
		if cfg.Storage.JSONDir == "" {
			return fmt.Errorf("config validation failed: storage.json_dir is required for the %s driver",
				DriverJSONFile)
		}
	case DriverBadger:
		if cfg.Storage.BadgerDir == "" {
			return fmt.Errorf("config validation failed: storage.badger_dir is required for the %s driver",
				DriverBadger)
		}
	}

	return nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 15)
	v.SetDefault("server.rate_limit", 600)
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("storage.json_dir", "")
	v.SetDefault("storage.badger_dir", "")
	v.SetDefault("storage.breaker_failures", 5)
	v.SetDefault("storage.breaker_timeout", 30)

	v.SetDefault("database.url", "")

	v.SetDefault("scheduler.default_ease", 0.0)
	v.SetDefault("scheduler.min_ease", 0.0)
	v.SetDefault("scheduler.max_ease", 0.0)
}
