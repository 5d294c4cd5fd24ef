package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load,
// e.g. DEMO_SERVER_PORT for server.port.
const EnvPrefix = "DEMO"

// setDefaults registers a default for every key so that environment
// variables can override any of them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("database.url", "")

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.finished_retention", 10*time.Minute)
	v.SetDefault("task.max_finished", 1000)

	v.SetDefault("datasync.steps", 3)
	v.SetDefault("datasync.step_delay", time.Second)

	v.SetDefault("worker.steps", 5)
	v.SetDefault("worker.step_delay", time.Second)

	v.SetDefault("connectivity.probe_address", "")
	v.SetDefault("connectivity.interval", 10*time.Second)
	v.SetDefault("connectivity.timeout", 2*time.Second)
	v.SetDefault("connectivity.initially_connected", true)

	v.SetDefault("playback.pause_when_stopped", "ignore")
}

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
