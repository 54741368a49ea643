// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"
)

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultLibraryPath returns the default gesture library path.
func DefaultLibraryPath() string {
	return filepath.Join(XDGConfigHome(), "gesturelab", "gestures.yaml")
}

// DefaultStoryPath returns the default study story path.
func DefaultStoryPath() string {
	return filepath.Join(XDGConfigHome(), "gesturelab", "story.json")
}

// DefaultDBPath returns the default path for the SQLite database.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), "gesturelab", "gesturelab.db")
}

// DefaultLogPath returns the default path of the run log.
func DefaultLogPath() string {
	return filepath.Join(XDGDataHome(), "gesturelab", "gesturelab.log")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), "gesturelab", "config.toml")
}
