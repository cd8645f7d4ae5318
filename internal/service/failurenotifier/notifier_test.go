package failurenotifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ticketdesk/admin-console/internal/observability/notify"
)

type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string][]map[string]string
}

func (r *recordingMetrics) Count(name string, _ int64, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = map[string][]map[string]string{}
	}
	r.counts[name] = append(r.counts[name], tags)
}
func (r *recordingMetrics) Gauge(string, float64, map[string]string)        {}
func (r *recordingMetrics) Timing(string, time.Duration, map[string]string) {}

func capture() (notify.Sink, func() []notify.FeedOutagePayload) {
	var (
		mu       sync.Mutex
		received []notify.FeedOutagePayload
	)
	sink := notify.SinkFunc(func(_ context.Context, p notify.FeedOutagePayload) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, p)
		return nil
	})
	return sink, func() []notify.FeedOutagePayload {
		mu.Lock()
		defer mu.Unlock()
		return append([]notify.FeedOutagePayload(nil), received...)
	}
}

func TestServiceNotifyFeedOutage(t *testing.T) {
	sink, got := capture()
	svc := NewService(Options{
		Sinks: []SinkRegistration{
			{Name: "a", Sink: sink},
			{Name: "b", Sink: sink},
			{Name: "nil"},
		},
	})

	svc.NotifyFeedOutage(context.Background(), notify.FeedOutagePayload{SubjectID: 7, ConsecutiveFailures: 3})

	received := got()
	if len(received) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(received))
	}
	if received[0].Severity != notify.SeverityCritical {
		t.Errorf("severity = %s, want critical", received[0].Severity)
	}
	if received[0].OccurredAt.IsZero() {
		t.Error("OccurredAt should default to now")
	}
	if svc.OpenOutages() != 1 {
		t.Errorf("OpenOutages() = %d, want 1", svc.OpenOutages())
	}
}

func TestServiceResolveOnlyAfterTrigger(t *testing.T) {
	sink, got := capture()
	svc := NewService(Options{Sinks: []SinkRegistration{{Name: "slack", Sink: sink}}})
	ctx := context.Background()

	svc.NotifyFeedOutage(ctx, notify.FeedOutagePayload{SubjectID: 3, Resolved: true})
	if n := len(got()); n != 0 {
		t.Fatalf("resolve without a trigger sent %d events", n)
	}

	svc.NotifyFeedOutage(ctx, notify.FeedOutagePayload{SubjectID: 3, ConsecutiveFailures: 5})
	svc.NotifyFeedOutage(ctx, notify.FeedOutagePayload{SubjectID: 3, Resolved: true, Severity: notify.SeverityInfo})
	svc.NotifyFeedOutage(ctx, notify.FeedOutagePayload{SubjectID: 3, Resolved: true})

	received := got()
	if len(received) != 2 {
		t.Fatalf("expected trigger and one resolve, got %d events", len(received))
	}
	if received[0].Resolved || !received[1].Resolved {
		t.Errorf("unexpected order: %+v", received)
	}
	if svc.OpenOutages() != 0 {
		t.Errorf("OpenOutages() = %d, want 0", svc.OpenOutages())
	}
}

func TestServiceDisabled(t *testing.T) {
	svc := NewService(Options{})
	if svc.Enabled() {
		t.Fatal("expected Enabled() to be false when no sinks registered")
	}
	svc.NotifyFeedOutage(context.Background(), notify.FeedOutagePayload{SubjectID: 1})
	if svc.OpenOutages() != 0 {
		t.Error("a disabled notifier should not track outages")
	}

	var nilSvc *Service
	if nilSvc.Enabled() || nilSvc.OpenOutages() != 0 {
		t.Fatal("nil service should report disabled")
	}
}

func TestServiceCountsDeliveryFailures(t *testing.T) {
	rec := &recordingMetrics{}
	ok, _ := capture()
	svc := NewService(Options{
		Metrics: rec,
		Sinks: []SinkRegistration{
			{Name: "fail", Sink: notify.SinkFunc(func(context.Context, notify.FeedOutagePayload) error {
				return errors.New("boom")
			})},
			{Name: "ok", Sink: ok},
		},
	})

	svc.NotifyFeedOutage(context.Background(), notify.FeedOutagePayload{SubjectID: 1})

	results := map[string]string{}
	for _, tags := range rec.counts["alert.delivery"] {
		results[tags["sink"]] = tags["result"]
	}
	if results["fail"] != "error" || results["ok"] != "success" {
		t.Fatalf("delivery results = %v", results)
	}
}
