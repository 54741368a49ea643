package gesture

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks errors caused by a malformed gesture library or study plan.
var ErrConfiguration = errors.New("configuration error")

// ConfigError describes a fatal configuration problem detected at load time.
type ConfigError struct {
	Subject string
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Subject, e.Reason)
}

// Unwrap lets errors.Is match ErrConfiguration.
func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

func configErrorf(subject, format string, args ...any) error {
	return &ConfigError{Subject: subject, Reason: fmt.Sprintf(format, args...)}
}
