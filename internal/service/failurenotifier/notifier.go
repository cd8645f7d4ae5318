// Package failurenotifier fans feed outage events out to every configured sink.
package failurenotifier

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ticketdesk/admin-console/internal/observability/metrics"
	"github.com/ticketdesk/admin-console/internal/observability/notify"
	"github.com/ticketdesk/admin-console/internal/observability/statsd"
)

// SinkRegistration names a sink for logs and metric tags.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the dispatcher.
type Options struct {
	Logger  *slog.Logger
	Metrics statsd.Sink
	Sinks   []SinkRegistration
}

// Service delivers outage events to all registered sinks. It remembers which
// subjects have an open outage so a recovery is only announced after a trigger.
type Service struct {
	logger  *slog.Logger
	metrics statsd.Sink
	sinks   []SinkRegistration

	mu   sync.Mutex
	open map[int64]struct{}
}

// NewService drops nil sinks and names anonymous ones.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sinks := make([]SinkRegistration, 0, len(opts.Sinks))
	for i, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		if entry.Name == "" {
			entry.Name = "sink-" + strconv.Itoa(i)
		}
		sinks = append(sinks, entry)
	}

	return &Service{
		logger:  logger.With("component", "failure_notifier"),
		metrics: opts.Metrics,
		sinks:   sinks,
		open:    make(map[int64]struct{}),
	}
}

// NotifyFeedOutage sends payload to every sink concurrently and waits.
// Delivery errors are logged and counted; one failing sink does not stop the others.
func (s *Service) NotifyFeedOutage(ctx context.Context, payload notify.FeedOutagePayload) {
	if !s.Enabled() || !s.track(payload) {
		return
	}
	if payload.Severity == "" {
		payload.Severity = notify.SeverityCritical
	}
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = time.Now().UTC()
	}

	var g errgroup.Group
	for _, entry := range s.sinks {
		g.Go(func() error {
			start := time.Now()
			err := entry.Sink.SendFeedOutage(ctx, payload)
			metrics.EmitAlertDelivery(s.metrics, entry.Name, err, time.Since(start))
			if err != nil {
				s.logger.ErrorContext(ctx, "outage alert delivery failed",
					"sink", entry.Name,
					"subject_id", payload.SubjectID,
					"resolved", payload.Resolved,
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// track records the outage state and reports whether the event should go out.
func (s *Service) track(p notify.FeedOutagePayload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, isOpen := s.open[p.SubjectID]
	if p.Resolved {
		delete(s.open, p.SubjectID)
		return isOpen
	}
	s.open[p.SubjectID] = struct{}{}
	return true
}

// OpenOutages is the number of subjects with an unresolved alert.
func (s *Service) OpenOutages() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}

// Enabled reports whether any sink is registered.
func (s *Service) Enabled() bool {
	return s != nil && len(s.sinks) > 0
}
