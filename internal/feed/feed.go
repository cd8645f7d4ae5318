// Package feed polls the ticketing API for the signed-in user's pending
// approvals.
//
// A Handle fetches once on start and then on a fixed interval. At most one
// fetch is in flight: timer ticks and RefreshNow calls that arrive during a
// fetch join it instead of issuing another request. A failed fetch keeps the
// previous items and records the error; polling continues. Stop is
// idempotent and discards results of a fetch that was in flight.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ticketdesk/admin-console/internal/domain/model"
	"github.com/ticketdesk/admin-console/internal/observability/metrics"
	"github.com/ticketdesk/admin-console/internal/observability/statsd"
	"github.com/ticketdesk/admin-console/internal/ports"
)

// ErrStopped is returned by RefreshNow on a handle that is not running, and
// to callers waiting on a fetch whose result was discarded by Stop.
var ErrStopped = errors.New("feed: stopped")

const fetchKey = "pending-approvals"

// Status is the lifecycle state of a handle.
type Status int

const (
	StatusStopped Status = iota
	StatusRunning
)

func (s Status) String() string {
	if s == StatusRunning {
		return "running"
	}
	return "stopped"
}

// State is a point-in-time copy of the feed.
type State struct {
	Items               []model.PendingApprovalItem
	Loading             bool
	Err                 error
	ConsecutiveFailures int
	// UpdatedAt is the time of the last successful fetch.
	UpdatedAt   time.Time
	LastAttempt time.Time
}

// Count is the number of pending approvals.
func (s State) Count() int { return len(s.Items) }

func (s State) clone() State {
	s.Items = slices.Clone(s.Items)
	return s
}

// Options wires a handle's collaborators. Source is required; the rest
// default to a ticker, slog.Default and no metrics.
type Options struct {
	Source    ports.PendingApprovalSource
	Scheduler Scheduler
	Logger    *slog.Logger
	Metrics   statsd.Sink
	Now       func() time.Time
}

// Handle is a running (or never started) notification feed.
type Handle struct {
	subjectID int64
	cfg       Config
	source    ports.PendingApprovalSource
	metrics   statsd.Sink
	logger    *slog.Logger
	now       func() time.Time

	fetchCtx context.Context
	group    singleflight.Group
	fetching atomic.Bool

	mu          sync.Mutex
	status      Status
	state       State
	notStarted  error
	cancelTimer func()
	stopAfter   func() bool
	subs        map[uint64]func(State)
	nextSub     uint64
}

// Start begins polling for subjectID. When the feed is disabled, the subject
// is missing or cfg is invalid, the returned handle is stopped and
// NotStartedReason explains why. Cancelling ctx stops the feed; in-flight
// fetches are not cancelled by Stop.
func Start(ctx context.Context, subjectID int64, cfg Config, opts Options) *Handle {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	h := &Handle{
		subjectID: subjectID,
		cfg:       cfg,
		source:    opts.Source,
		metrics:   opts.Metrics,
		logger:    logger.With("component", "notification_feed", "subject_id", subjectID),
		now:       now,
		subs:      make(map[uint64]func(State)),
	}

	err := startable(subjectID, cfg)
	if err == nil && opts.Source == nil {
		err = &ConfigurationError{Reason: "no source"}
	}
	if err != nil {
		h.notStarted = err
		h.logger.InfoContext(ctx, "notification feed not started", "reason", err.Error())
		return h
	}

	sched := opts.Scheduler
	if sched == nil {
		sched = TickerScheduler{}
	}
	h.fetchCtx = context.WithoutCancel(ctx)

	h.mu.Lock()
	h.status = StatusRunning
	h.cancelTimer = sched.StartTimer(cfg.PollInterval, h.tick)
	h.stopAfter = context.AfterFunc(ctx, h.Stop)
	h.mu.Unlock()

	h.logger.DebugContext(ctx, "notification feed started",
		"limit", cfg.PageLimit, "offset", cfg.PageOffset, "interval", cfg.PollInterval)
	h.group.DoChan(fetchKey, h.fetch)
	return h
}

// SubjectID is the user the feed polls for.
func (h *Handle) SubjectID() int64 { return h.subjectID }

// Config returns the configuration the handle was started with.
func (h *Handle) Config() Config { return h.cfg }

// Status reports whether the feed is running.
func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// NotStartedReason is non-nil when Start declined to run the feed.
func (h *Handle) NotStartedReason() error { return h.notStarted }

// Snapshot returns a copy of the current state.
func (h *Handle) Snapshot() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.clone()
}

// Subscribe calls fn with a copy of the state after every change. fn runs on
// the goroutine performing the fetch and must not call RefreshNow.
func (h *Handle) Subscribe(fn func(State)) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
	}
}

// RefreshNow fetches immediately, or joins the fetch already in flight, and
// waits for it. The returned error is the fetch error; the state records it
// either way.
func (h *Handle) RefreshNow(ctx context.Context) error {
	if h.Status() != StatusRunning {
		return ErrStopped
	}
	if h.fetching.Load() {
		metrics.EmitFeedCoalesced(h.metrics, "refresh")
	}
	ch := h.group.DoChan(fetchKey, h.fetch)
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels polling. It is safe to call more than once and from any
// goroutine, including a subscriber. Stopping during a fetch publishes one
// final state with Loading cleared.
func (h *Handle) Stop() {
	h.mu.Lock()
	if h.status != StatusRunning {
		h.mu.Unlock()
		return
	}
	h.status = StatusStopped
	wasLoading := h.state.Loading
	h.state.Loading = false
	cancel, stopAfter := h.cancelTimer, h.stopAfter
	var (
		snap State
		subs []func(State)
	)
	if wasLoading {
		snap = h.state.clone()
		for _, fn := range h.subs {
			subs = append(subs, fn)
		}
	}
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stopAfter != nil {
		stopAfter()
	}
	// Subscribers last saw Loading=true; the discarded fetch will not publish.
	for _, fn := range subs {
		fn(snap)
	}
	h.logger.Debug("notification feed stopped")
}

func (h *Handle) tick() {
	if h.Status() != StatusRunning {
		return
	}
	if h.fetching.Load() {
		metrics.EmitFeedCoalesced(h.metrics, "tick")
		h.logger.Debug("poll tick skipped; fetch in flight")
		return
	}
	h.group.DoChan(fetchKey, h.fetch)
}

func (h *Handle) fetch() (any, error) {
	h.fetching.Store(true)
	defer h.fetching.Store(false)

	if !h.update(func(s *State) { s.Loading = true }) {
		return nil, ErrStopped
	}

	start := h.now()
	items, err := h.source.PendingApprovals(h.fetchCtx, model.PendingApprovalQuery{
		SubjectID: h.subjectID,
		Limit:     h.cfg.PageLimit,
		Offset:    h.cfg.PageOffset,
	})
	finished := h.now()

	applied := h.update(func(s *State) {
		s.Loading = false
		s.LastAttempt = finished
		if err != nil {
			s.Err = err
			s.ConsecutiveFailures++
			return
		}
		s.Items = slices.Clone(items)
		s.Err = nil
		s.ConsecutiveFailures = 0
		s.UpdatedAt = finished
	})

	fm := metrics.FeedFetch{Duration: finished.Sub(start), Items: len(items), Err: err}
	switch {
	case !applied:
		fm.Result = metrics.ResultDiscarded
		metrics.EmitFeedFetch(h.metrics, fm)
		h.logger.Debug("discarding fetch result; feed stopped")
		return nil, ErrStopped
	case err != nil:
		fm.Result = metrics.ResultError
		metrics.EmitFeedFetch(h.metrics, fm)
		h.logger.Warn("pending approvals fetch failed; keeping previous items", "error", err)
		return nil, err
	default:
		fm.Result = metrics.ResultSuccess
		metrics.EmitFeedFetch(h.metrics, fm)
		return nil, nil
	}
}

// update applies mut if the handle is still running and notifies
// subscribers outside the lock. It reports whether mut ran.
func (h *Handle) update(mut func(*State)) bool {
	h.mu.Lock()
	if h.status != StatusRunning {
		h.mu.Unlock()
		return false
	}
	mut(&h.state)
	snap := h.state.clone()
	subs := make([]func(State), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return true
}
