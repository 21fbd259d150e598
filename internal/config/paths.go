package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".dewey"

// Paths holds resolved filesystem paths for dewey data.
type Paths struct {
	Base   string // ~/.dewey
	Config string // ~/.dewey/config.yaml
	Data   string // ~/.dewey/data
	Logs   string // ~/.dewey/logs
}

// ResolvePaths computes all standard paths from the home directory.
// If DEWEY_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("DEWEY_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:   base,
		Config: filepath.Join(base, "config.yaml"),
		Data:   filepath.Join(base, "data"),
		Logs:   filepath.Join(base, "logs"),
	}, nil
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Data, p.Logs} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}

// DBPath returns the configured session database path, defaulting to the
// standard data directory.
func (p Paths) DBPath(cfg Config) string {
	if cfg.Session.DBPath != "" {
		return cfg.Session.DBPath
	}
	return filepath.Join(p.Data, "dewey.db")
}
