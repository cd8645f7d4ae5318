package feed

import (
	"fmt"
	"time"
)

// Config controls one notification feed. Every field is required; there are
// no defaults applied here.
type Config struct {
	PageLimit    int
	PageOffset   int
	PollInterval time.Duration
	Enabled      bool
}

// ConfigurationError explains why a feed was not started.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string { return "feed not started: " + e.Reason }

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.PageLimit <= 0:
		return &ConfigurationError{Reason: fmt.Sprintf("page limit must be > 0, got %d", c.PageLimit)}
	case c.PageOffset < 0:
		return &ConfigurationError{Reason: fmt.Sprintf("page offset must be >= 0, got %d", c.PageOffset)}
	case c.PollInterval <= 0:
		return &ConfigurationError{Reason: fmt.Sprintf("poll interval must be > 0, got %s", c.PollInterval)}
	}
	return nil
}

func startable(subjectID int64, c Config) error {
	if !c.Enabled {
		return &ConfigurationError{Reason: "disabled"}
	}
	if subjectID <= 0 {
		return &ConfigurationError{Reason: "no subject"}
	}
	return c.Validate()
}
