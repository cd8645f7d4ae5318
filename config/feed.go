package config

import (
	"strings"
	"time"

	"github.com/ticketdesk/admin-console/internal/feed"
)

// FeedConfig configures the per-user notification feeds.
type FeedConfig struct {
	Enabled      bool          `env:"ENABLED"       envDefault:"true"`
	PageLimit    int           `env:"PAGE_LIMIT"    envDefault:"50"`
	PageOffset   int           `env:"PAGE_OFFSET"   envDefault:"0"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"30s"`

	// IdleTTL is how long a feed survives without a reader. Zero keeps feeds until logout.
	IdleTTL time.Duration `env:"IDLE_TTL" envDefault:"15m"`
	// ReapSchedule is the cron spec for the feed-reaper service.
	ReapSchedule string `env:"REAP_SCHEDULE" envDefault:"@every 1m"`
	// OutageThreshold is the consecutive failure count that raises an alert. Zero disables alerts.
	OutageThreshold int `env:"OUTAGE_THRESHOLD" envDefault:"5"`
}

// Sanitize applies guardrails to feed configuration values. The page and
// interval values are passed through untouched; feed.Config.Validate rejects
// bad ones and the feed is then not started.
func (c *FeedConfig) Sanitize() {
	if c.IdleTTL < 0 {
		c.IdleTTL = 0
	}
	if c.OutageThreshold < 0 {
		c.OutageThreshold = 0
	}
	c.ReapSchedule = strings.TrimSpace(c.ReapSchedule)
}

// HandleConfig returns the feed.Config every handle is started with.
func (c FeedConfig) HandleConfig() feed.Config {
	return feed.Config{
		PageLimit:    c.PageLimit,
		PageOffset:   c.PageOffset,
		PollInterval: c.PollInterval,
		Enabled:      c.Enabled,
	}
}
