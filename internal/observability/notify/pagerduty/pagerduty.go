// Package pagerduty raises and resolves feed outage incidents through the
// PagerDuty Events API v2.
package pagerduty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ticketdesk/admin-console/internal/observability/notify"
)

// APIEndpoint is the PagerDuty Events API v2 ingest URL.
const APIEndpoint = "https://events.pagerduty.com/v2/enqueue"

// Config captures runtime configuration for the PagerDuty sink.
type Config struct {
	RoutingKey string
	Source     string
	Component  string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	Endpoint   string // defaults to APIEndpoint
}

// Client publishes events via PagerDuty's Events API v2.
type Client struct {
	routingKey string
	source     string
	component  string
	poster     notify.Poster
	now        func() time.Time
}

// NewClient constructs a PagerDuty events client. A routing key is required.
func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.RoutingKey)
	if key == "" {
		return nil, errors.New("pagerduty routing key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = APIEndpoint
	}

	return &Client{
		routingKey: key,
		source:     fallbackString(cfg.Source, "ticketdesk-console"),
		component:  fallbackString(cfg.Component, "approval-feed"),
		poster:     notify.Poster{Name: "pagerduty api", URL: endpoint, RetryLimit: cfg.RetryLimit, Client: hc},
		now:        time.Now,
	}, nil
}

// SendFeedOutage triggers an incident, or resolves it when payload.Resolved is set.
func (c *Client) SendFeedOutage(ctx context.Context, payload notify.FeedOutagePayload) error {
	body, err := json.Marshal(c.buildEvent(payload))
	if err != nil {
		return fmt.Errorf("encode pagerduty payload: %w", err)
	}
	return c.poster.Post(ctx, body)
}

func (c *Client) buildEvent(p notify.FeedOutagePayload) map[string]any {
	event := map[string]any{
		"routing_key":  c.routingKey,
		"event_action": "trigger",
		"dedup_key":    p.DedupKey(),
	}
	if p.Resolved {
		event["event_action"] = "resolve"
		return event
	}

	occurredAt := p.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = c.now()
	}

	custom := map[string]any{
		"subject_id":           strconv.FormatInt(p.SubjectID, 10),
		"consecutive_failures": p.ConsecutiveFailures,
		"error":                p.Error,
		"error_class":          p.ErrorClass,
	}
	if p.UserEmail != "" {
		custom["user_email"] = p.UserEmail
	}
	if !p.LastSuccess.IsZero() {
		custom["last_success"] = p.LastSuccess.UTC().Format(time.RFC3339)
	}
	for k, v := range p.Metadata {
		if _, exists := custom[k]; !exists {
			custom[k] = v
		}
	}

	event["payload"] = map[string]any{
		"summary":        p.Summary(),
		"severity":       fallbackString(strings.ToLower(p.Severity), notify.SeverityCritical),
		"source":         c.source,
		"component":      c.component,
		"timestamp":      occurredAt.UTC().Format(time.RFC3339),
		"custom_details": custom,
	}
	return event
}

func fallbackString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
