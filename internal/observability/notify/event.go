// Package notify defines the outage events the console raises and the sinks
// that deliver them.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// FeedOutagePayload describes a notification feed that has stopped reaching
// the ticketing API, or has recovered when Resolved is set.
type FeedOutagePayload struct {
	SubjectID           int64
	UserEmail           string
	ConsecutiveFailures int
	Error               string
	ErrorClass          string
	Severity            string
	Resolved            bool
	LastSuccess         time.Time
	OccurredAt          time.Time
	Metadata            map[string]string
}

// DedupKey identifies the outage across trigger and resolve events.
func (p FeedOutagePayload) DedupKey() string {
	return "feed-outage:" + strconv.FormatInt(p.SubjectID, 10)
}

// Summary is a one-line description.
func (p FeedOutagePayload) Summary() string {
	if p.Resolved {
		return fmt.Sprintf("Approval feed for user %d recovered", p.SubjectID)
	}
	return fmt.Sprintf("Approval feed for user %d failing (%d consecutive errors)", p.SubjectID, p.ConsecutiveFailures)
}

// Sink describes a destination capable of consuming feed outage events.
type Sink interface {
	SendFeedOutage(ctx context.Context, payload FeedOutagePayload) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, payload FeedOutagePayload) error

// SendFeedOutage implements the Sink interface.
func (f SinkFunc) SendFeedOutage(ctx context.Context, payload FeedOutagePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
