package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/ticketdesk/admin-console/internal/errors"
)

type metricCall struct {
	kind string
	name string
	tags map[string]string
}

type recordingSink struct {
	mu    sync.Mutex
	calls []metricCall
}

func (r *recordingSink) add(kind, name string, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, metricCall{kind: kind, name: name, tags: tags})
}

func (r *recordingSink) Count(name string, _ int64, tags map[string]string) { r.add("count", name, tags) }
func (r *recordingSink) Gauge(name string, _ float64, tags map[string]string) {
	r.add("gauge", name, tags)
}

func (r *recordingSink) Timing(name string, _ time.Duration, tags map[string]string) {
	r.add("timing", name, tags)
}

func TestEmitFeedFetch_Success(t *testing.T) {
	sink := &recordingSink{}
	EmitFeedFetch(sink, FeedFetch{Result: ResultSuccess, Duration: time.Millisecond, Items: 3})

	if assert.Len(t, sink.calls, 3) {
		assert.Equal(t, "feed.fetch", sink.calls[0].name)
		assert.Equal(t, map[string]string{"result": "success"}, sink.calls[0].tags)
		assert.Equal(t, "feed.fetch.duration", sink.calls[1].name)
		assert.Equal(t, "feed.items", sink.calls[2].name)
	}
}

func TestEmitFeedFetch_ErrorClass(t *testing.T) {
	sink := &recordingSink{}
	EmitFeedFetch(sink, FeedFetch{Result: ResultError, Err: apperrors.Unauthorized("x")})

	if assert.Len(t, sink.calls, 1) {
		assert.Equal(t, "unauthorized", sink.calls[0].tags["error_class"])
	}
}

func TestEmitters_NilSink(t *testing.T) {
	assert.NotPanics(t, func() {
		EmitFeedFetch(nil, FeedFetch{Result: ResultError, Err: errors.New("x")})
		EmitFeedCoalesced(nil, "tick")
		EmitActiveFeeds(nil, 1)
		EmitFeedOutage(nil, 3)
	})
}

func TestCloneTags(t *testing.T) {
	assert.Nil(t, CloneTags(nil))
	src := map[string]string{"a": "1"}
	out := CloneTags(src)
	out["a"] = "2"
	assert.Equal(t, "1", src["a"])
}
