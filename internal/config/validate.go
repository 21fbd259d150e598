package config

import (
	"fmt"
	"net/url"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Server.URL == "" {
		issues = append(issues, ValidationIssue{
			Path:    "server.url",
			Message: "server URL is required",
		})
	} else if u, err := url.Parse(cfg.Server.URL); err != nil {
		issues = append(issues, ValidationIssue{
			Path:    "server.url",
			Message: "invalid URL: " + err.Error(),
		})
	} else if u.Scheme != "ws" && u.Scheme != "wss" {
		issues = append(issues, ValidationIssue{
			Path:    "server.url",
			Message: fmt.Sprintf("scheme must be ws or wss, got %q", u.Scheme),
		})
	}

	if cfg.Telemetry.Window < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "telemetry.window",
			Message: fmt.Sprintf("window must be non-negative, got %d", cfg.Telemetry.Window),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	return issues
}
