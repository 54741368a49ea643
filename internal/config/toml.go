// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Study  StudyConfig  `toml:"study"`
	Timing TimingConfig `toml:"timing"`
}

// StudyConfig maps the participant selection and data file locations.
type StudyConfig struct {
	Participant *int    `toml:"participant"`
	Modality    *int    `toml:"modality"`
	Library     *string `toml:"library"`
	Story       *string `toml:"story"`
	Poses       *string `toml:"poses"`
	FPS         *int    `toml:"fps"`
}

// TimingConfig maps the study timers. Durations are in seconds.
type TimingConfig struct {
	StaticTimeout  *float64 `toml:"static-timeout"`
	NeutralDelay   *float64 `toml:"neutral-delay"`
	Cooldown       *float64 `toml:"cooldown"`
	AnimDelay      *float64 `toml:"anim-delay"`
	Smoothing      *float64 `toml:"smoothing"`
	SmoothingLead  *float64 `toml:"smoothing-lead"`
	MaxRepetitions *int     `toml:"max-repetitions"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Seconds converts fractional seconds to a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
