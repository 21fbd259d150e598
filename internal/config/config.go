// Package config loads and validates the dewey configuration.
package config

import "fmt"

// Config is the root configuration for dewey.
type Config struct {
	Server    ServerConfig    `yaml:"server,omitempty"`
	Session   SessionConfig   `yaml:"session,omitempty"`
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// ServerConfig points the client at its backend.
type ServerConfig struct {
	URL string `yaml:"url,omitempty"` // WebSocket endpoint, e.g. ws://localhost:5000/ws
}

// SessionConfig controls chat session behavior.
type SessionConfig struct {
	DBPath       string `yaml:"dbPath,omitempty"`       // SQLite file; defaults under the data dir
	ConfirmClose *bool  `yaml:"confirmClose,omitempty"` // ask before closing a chat; defaults to true
}

// TelemetryConfig controls the system resources readout.
type TelemetryConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"` // defaults to true
	Window  int   `yaml:"window,omitempty"`  // samples retained for the readout
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File  string `yaml:"file,omitempty"`  // log to this file instead of the console
}

// ShouldConfirmClose reports whether closing a chat requires confirmation.
func (c SessionConfig) ShouldConfirmClose() bool {
	return c.ConfirmClose == nil || *c.ConfirmClose
}

// IsEnabled reports whether the telemetry readout is on.
func (c TelemetryConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			URL: "ws://localhost:5000/ws",
		},
		Telemetry: TelemetryConfig{
			Window: 120,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
