package config

import (
	"strings"
	"time"
)

const defaultAlertSource = "ticketdesk-console"

// ObservabilityConfig holds the statsd sink and feed outage alerting.
type ObservabilityConfig struct {
	Metrics MetricsConfig     `envPrefix:"METRICS_"`
	Alerts  OutageAlertConfig `envPrefix:"OUTAGE_ALERT_"`
}

// Sanitize applies guardrails to both sections.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.Alerts.Sanitize()
}

// MetricsConfig controls the statsd sink for feed metrics.
type MetricsConfig struct {
	Enabled    bool              `env:"ENABLED"     envDefault:"false"`
	StatsdAddr string            `env:"STATSD_ADDR" envDefault:"127.0.0.1:8125"`
	Prefix     string            `env:"PREFIX"      envDefault:"ticketdesk"`
	Tags       map[string]string `env:"TAGS"`
}

// Sanitize trims the address and prefix. An empty address turns metrics off.
func (c *MetricsConfig) Sanitize() {
	c.StatsdAddr = strings.TrimSpace(c.StatsdAddr)
	c.Prefix = strings.Trim(strings.TrimSpace(c.Prefix), ".")
	if c.StatsdAddr == "" {
		c.Enabled = false
	}
}

// Active reports whether a statsd client should be built.
func (c MetricsConfig) Active() bool {
	return c.Enabled && c.StatsdAddr != ""
}

// OutageAlertConfig controls the alerts sent when a user's feed keeps failing.
// A sink is used when its destination is set; Enabled gates all of them.
type OutageAlertConfig struct {
	Enabled bool          `env:"ENABLED" envDefault:"false"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`
	Retries int           `env:"RETRIES" envDefault:"3"`

	// ConsoleURL is linked from alerts. Empty means APP_BASE_URL + /approvals.
	ConsoleURL string `env:"CONSOLE_URL"`

	Slack     SlackAlertConfig     `envPrefix:"SLACK_"`
	PagerDuty PagerDutyAlertConfig `envPrefix:"PAGERDUTY_"`
}

// Sanitize clamps the send settings and fills sink defaults.
func (c *OutageAlertConfig) Sanitize() {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	c.Retries = max(c.Retries, 0)
	c.ConsoleURL = strings.TrimSpace(c.ConsoleURL)

	c.Slack.WebhookURL = strings.TrimSpace(c.Slack.WebhookURL)
	c.Slack.Channel = strings.TrimSpace(c.Slack.Channel)
	c.Slack.Username = orDefault(c.Slack.Username, defaultAlertSource)

	c.PagerDuty.RoutingKey = strings.TrimSpace(c.PagerDuty.RoutingKey)
	c.PagerDuty.Source = orDefault(c.PagerDuty.Source, defaultAlertSource)
	c.PagerDuty.Component = orDefault(c.PagerDuty.Component, "notification-feed")
}

// Sinks names the destinations that will receive alerts.
func (c OutageAlertConfig) Sinks() []string {
	if !c.Enabled {
		return nil
	}
	var out []string
	if c.Slack.Configured() {
		out = append(out, "slack")
	}
	if c.PagerDuty.Configured() {
		out = append(out, "pagerduty")
	}
	return out
}

// SlackAlertConfig posts alerts to an incoming webhook.
type SlackAlertConfig struct {
	WebhookURL string `env:"WEBHOOK_URL"`
	Channel    string `env:"CHANNEL"`
	Username   string `env:"USERNAME" envDefault:"ticketdesk-console"`
}

// Configured reports whether a webhook is set.
func (c SlackAlertConfig) Configured() bool { return c.WebhookURL != "" }

// PagerDutyAlertConfig sends Events API v2 triggers and resolves.
type PagerDutyAlertConfig struct {
	RoutingKey string `env:"ROUTING_KEY"`
	Source     string `env:"SOURCE"      envDefault:"ticketdesk-console"`
	Component  string `env:"COMPONENT"   envDefault:"notification-feed"`
}

// Configured reports whether a routing key is set.
func (c PagerDutyAlertConfig) Configured() bool { return c.RoutingKey != "" }

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
