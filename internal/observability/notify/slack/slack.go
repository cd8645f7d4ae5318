// Package slack posts feed outage alerts to a Slack incoming webhook.
package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ticketdesk/admin-console/internal/observability/notify"
)

// Config captures the subset of Slack webhook behaviour we need.
type Config struct {
	WebhookURL string
	Channel    string
	Username   string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	// ConsoleURL, when set, adds a link to the approvals page.
	ConsoleURL string
}

// Client delivers feed outage alerts to a Slack webhook.
type Client struct {
	poster     notify.Poster
	channel    string
	username   string
	consoleURL string
	now        func() time.Time
}

// NewClient builds a Slack webhook client.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		poster: notify.Poster{
			Name:       "slack webhook",
			URL:        webhookURL,
			RetryLimit: cfg.RetryLimit,
			Client:     hc,
		},
		channel:    strings.TrimSpace(cfg.Channel),
		username:   fallbackString(strings.TrimSpace(cfg.Username), "ticketdesk"),
		consoleURL: approvalsLink(cfg.ConsoleURL),
		now:        time.Now,
	}, nil
}

// SendFeedOutage posts a formatted message to Slack.
func (c *Client) SendFeedOutage(ctx context.Context, payload notify.FeedOutagePayload) error {
	body, err := json.Marshal(c.formatMessage(payload))
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}
	return c.poster.Post(ctx, body)
}

func (c *Client) formatMessage(p notify.FeedOutagePayload) map[string]any {
	var text strings.Builder
	if p.Resolved {
		text.WriteString(":white_check_mark: *Approval feed recovered*")
	} else {
		text.WriteString(":rotating_light: *Approval feed outage*")
	}
	text.WriteByte('\n')

	user := strconv.FormatInt(p.SubjectID, 10)
	if p.UserEmail != "" {
		user = fmt.Sprintf("%s (%s)", escape(p.UserEmail), user)
	}
	field(&text, "User", user)
	if !p.Resolved {
		field(&text, "Severity", fallbackString(p.Severity, notify.SeverityCritical))
		field(&text, "Consecutive failures", strconv.Itoa(p.ConsecutiveFailures))
		field(&text, "Error class", p.ErrorClass)
		field(&text, "Error", escape(p.Error))
	}
	if !p.LastSuccess.IsZero() {
		field(&text, "Last success", p.LastSuccess.UTC().Format(time.RFC3339))
	}
	if c.consoleURL != "" {
		field(&text, "Console", fmt.Sprintf("<%s|pending approvals>", c.consoleURL))
	}
	metadata(&text, p.Metadata)

	ts := p.OccurredAt
	if ts.IsZero() {
		ts = c.now()
	}
	text.WriteString("• Timestamp: ")
	text.WriteString(ts.UTC().Format(time.RFC3339))

	msg := map[string]any{
		"text":     text.String(),
		"username": c.username,
	}
	if c.channel != "" {
		msg["channel"] = c.channel
	}
	return msg
}

func approvalsLink(base string) string {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.JoinPath("approvals").String()
}

func field(text *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	text.WriteString("• ")
	text.WriteString(label)
	text.WriteString(": ")
	text.WriteString(value)
	text.WriteByte('\n')
}

func metadata(text *strings.Builder, md map[string]string) {
	if len(md) == 0 {
		return
	}
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	text.WriteString("• Metadata:\n")
	for _, k := range keys {
		text.WriteString("    • ")
		text.WriteString(k)
		text.WriteString(": ")
		text.WriteString(escape(md[k]))
		text.WriteByte('\n')
	}
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

func fallbackString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
