package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server       ServerConfig       `mapstructure:"server" validate:"required"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Task         TaskConfig         `mapstructure:"task" validate:"required"`
	DataSync     SyncConfig         `mapstructure:"datasync" validate:"required"`
	Worker       SyncConfig         `mapstructure:"worker" validate:"required"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity"`
	Playback     PlaybackConfig     `mapstructure:"playback" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains database-related configuration settings.
// An empty URL selects the in-memory task store.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// TaskConfig configures the worker pool behind the constrained scheduler.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"gt=0"`
	// FinishedRetention and MaxFinished bound how many finished submissions
	// stay in memory; older ones are served from the task store.
	FinishedRetention time.Duration `mapstructure:"finished_retention" validate:"gt=0"`
	MaxFinished       int           `mapstructure:"max_finished" validate:"gt=0"`
}

// SyncConfig describes a simulated sync body: how many steps it runs and
// how long each step waits.
type SyncConfig struct {
	Steps     int           `mapstructure:"steps" validate:"gt=0"`
	StepDelay time.Duration `mapstructure:"step_delay" validate:"gte=0"`
}

// ConnectivityConfig configures the network connectivity monitor.
// When ProbeAddress is empty the monitor is disabled and connectivity is
// driven only through the API.
type ConnectivityConfig struct {
	ProbeAddress       string        `mapstructure:"probe_address" validate:"omitempty,hostname_port"`
	Interval           time.Duration `mapstructure:"interval" validate:"gt=0"`
	Timeout            time.Duration `mapstructure:"timeout" validate:"gt=0"`
	InitiallyConnected bool          `mapstructure:"initially_connected"`
}

// PlaybackConfig configures the foreground playback service.
type PlaybackConfig struct {
	// PauseWhenStopped decides what PAUSE does while the service is stopped:
	// "ignore" treats it as a no-op, "reject" returns an error.
	PauseWhenStopped string `mapstructure:"pause_when_stopped" validate:"required,oneof=ignore reject"`
}
