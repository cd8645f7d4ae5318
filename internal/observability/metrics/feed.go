package metrics

import (
	"strconv"
	"time"

	obserrors "github.com/ticketdesk/admin-console/internal/observability/errors"
	"github.com/ticketdesk/admin-console/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess   = "success"
	ResultError     = "error"
	ResultDiscarded = "discarded"
)

// FeedFetch captures one notification feed fetch for metric emission.
type FeedFetch struct {
	Result   string
	Duration time.Duration
	Items    int
	Err      error
}

// EmitFeedFetch emits fetch counters, latency and the resulting item gauge.
func EmitFeedFetch(sink statsd.Sink, in FeedFetch) {
	if sink == nil {
		return
	}

	tags := map[string]string{"result": in.Result}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("feed.fetch", 1, tags)
	if in.Duration > 0 {
		sink.Timing("feed.fetch.duration", in.Duration, CloneTags(tags))
	}
	if in.Result == ResultSuccess {
		sink.Gauge("feed.items", float64(in.Items), nil)
	}
}

// EmitFeedCoalesced counts a trigger that joined an in-flight fetch.
func EmitFeedCoalesced(sink statsd.Sink, source string) {
	if sink == nil {
		return
	}
	sink.Count("feed.coalesced", 1, map[string]string{"source": source})
}

// EmitActiveFeeds records how many feeds the server is running.
func EmitActiveFeeds(sink statsd.Sink, n int) {
	if sink == nil {
		return
	}
	sink.Gauge("feed.active", float64(n), nil)
}

// EmitFeedOutage counts an outage alert for a subject.
func EmitFeedOutage(sink statsd.Sink, failures int) {
	if sink == nil {
		return
	}
	sink.Count("feed.outage", 1, map[string]string{"failures": strconv.Itoa(failures)})
}

// EmitFeedsReaped records one idle-feed sweep.
func EmitFeedsReaped(sink statsd.Sink, reaped int, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.Count("feed.reaped", int64(reaped), nil)
	sink.Timing("feed.reap.duration", elapsed, nil)
}

// EmitAlertDelivery records one outage alert send to a named sink.
func EmitAlertDelivery(sink statsd.Sink, name string, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	tags := map[string]string{"sink": name, "result": ResultSuccess}
	if err != nil {
		tags["result"] = ResultError
		tags["error_class"] = obserrors.Classify(err)
	}
	sink.Count("alert.delivery", 1, tags)
	sink.Timing("alert.delivery.duration", elapsed, CloneTags(tags))
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
