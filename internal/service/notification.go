package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
	"github.com/ticketdesk/admin-console/internal/feed"
	obserrors "github.com/ticketdesk/admin-console/internal/observability/errors"
	"github.com/ticketdesk/admin-console/internal/observability/metrics"
	"github.com/ticketdesk/admin-console/internal/observability/notify"
	"github.com/ticketdesk/admin-console/internal/observability/statsd"
	"github.com/ticketdesk/admin-console/internal/ports"
)

// OutageNotifier receives feed outage and recovery events.
type OutageNotifier interface {
	NotifyFeedOutage(ctx context.Context, payload notify.FeedOutagePayload)
}

// NotificationServiceOptions groups dependencies for NotificationService.
type NotificationServiceOptions struct {
	Source ports.PendingApprovalSource // Required
	Config feed.Config

	// Authorize attaches a user's access token to the context the feed
	// fetches with.
	Authorize func(ctx context.Context, accessToken string) context.Context

	// IdleTTL is how long a feed survives without being read. Zero disables reaping.
	IdleTTL time.Duration
	// OutageThreshold is the number of consecutive failures that raises an
	// alert. Zero disables alerts.
	OutageThreshold int
	Notifier        OutageNotifier

	Scheduler feed.Scheduler
	Logger    *slog.Logger
	Metrics   statsd.Sink
	Now       func() time.Time
}

// FeedSnapshot is a feed's state plus what the presentation layer needs to
// render it.
type FeedSnapshot struct {
	feed.State
	Running      bool
	PollInterval time.Duration
}

type feedEntry struct {
	handle      *feed.Handle
	token       string
	email       string
	cancel      context.CancelFunc
	unsubscribe func()
	lastAccess  time.Time
	alerted     bool
	lastSuccess time.Time
}

// NotificationService keeps one notification feed per signed-in user. Feeds
// start on first use and restart when the user's access token changes. A
// feed whose token the API rejects is stopped but kept, so readers can see
// the unauthorized error. Idle feeds are removed by ReapIdle.
type NotificationService struct {
	source    ports.PendingApprovalSource
	cfg       feed.Config
	authorize func(context.Context, string) context.Context
	idleTTL   time.Duration
	threshold int
	notifier  OutageNotifier
	scheduler feed.Scheduler
	logger    *slog.Logger
	metrics   statsd.Sink
	now       func() time.Time

	base     context.Context
	stopBase context.CancelFunc
	alerts   sync.WaitGroup

	mu    sync.Mutex
	feeds map[int64]*feedEntry
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(opts NotificationServiceOptions) (*NotificationService, error) {
	if opts.Source == nil {
		return nil, errors.New("PendingApprovalSource is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	authorize := opts.Authorize
	if authorize == nil {
		authorize = func(ctx context.Context, _ string) context.Context { return ctx }
	}
	base, stop := context.WithCancel(context.Background())

	logger = logger.With("component", "notification_service")
	logger.Debug("NotificationService initialized",
		"enabled", opts.Config.Enabled,
		"interval", opts.Config.PollInterval,
		"idle_ttl", opts.IdleTTL,
		"outage_threshold", opts.OutageThreshold,
	)

	return &NotificationService{
		source:    opts.Source,
		cfg:       opts.Config,
		authorize: authorize,
		idleTTL:   opts.IdleTTL,
		threshold: opts.OutageThreshold,
		notifier:  opts.Notifier,
		scheduler: opts.Scheduler,
		logger:    logger,
		metrics:   opts.Metrics,
		now:       now,
		base:      base,
		stopBase:  stop,
		feeds:     make(map[int64]*feedEntry),
	}, nil
}

// Config returns the feed configuration new feeds start with.
func (s *NotificationService) Config() feed.Config { return s.cfg }

// Ensure returns the running feed for the session's user, starting it if
// needed. A signed-out session gets a handle that was never started.
func (s *NotificationService) Ensure(ctx context.Context, sess domainauth.Session) *feed.Handle {
	if !sess.IsAuthenticated() {
		return feed.Start(ctx, 0, s.cfg, s.feedOptions())
	}
	userID := sess.User.ID

	s.mu.Lock()
	if e, ok := s.feeds[userID]; ok {
		if e.token == sess.AccessToken {
			e.lastAccess = s.now()
			s.mu.Unlock()
			return e.handle
		}
		s.logger.InfoContext(ctx, "access token changed; restarting feed", "user_id", userID)
		s.removeLocked(userID, e)
	}

	fctx, cancel := context.WithCancel(s.authorize(s.base, sess.AccessToken))
	handle := feed.Start(fctx, userID, s.cfg, s.feedOptions())
	e := &feedEntry{
		handle:     handle,
		token:      sess.AccessToken,
		email:      sess.User.Email,
		cancel:     cancel,
		lastAccess: s.now(),
	}
	s.feeds[userID] = e
	running := handle.Status() == feed.StatusRunning
	if running {
		e.unsubscribe = handle.Subscribe(func(st feed.State) { s.observe(userID, e, st) })
	}
	active := len(s.feeds)
	s.mu.Unlock()

	if running {
		s.observe(userID, e, handle.Snapshot())
	}
	metrics.EmitActiveFeeds(s.metrics, active)
	return handle
}

// Snapshot returns the current state of the user's feed, starting it if needed.
func (s *NotificationService) Snapshot(ctx context.Context, sess domainauth.Session) FeedSnapshot {
	return s.snapshotOf(s.Ensure(ctx, sess))
}

// Refresh fetches immediately (joining any fetch in flight) and returns the
// resulting state. The error is the fetch error, or for a stopped feed the
// error that stopped it.
func (s *NotificationService) Refresh(ctx context.Context, sess domainauth.Session) (FeedSnapshot, error) {
	h := s.Ensure(ctx, sess)
	err := h.RefreshNow(ctx)
	snap := s.snapshotOf(h)
	if errors.Is(err, feed.ErrStopped) && snap.Err != nil {
		err = snap.Err
	}
	return snap, err
}

func (s *NotificationService) snapshotOf(h *feed.Handle) FeedSnapshot {
	return FeedSnapshot{
		State:        h.Snapshot(),
		Running:      h.Status() == feed.StatusRunning,
		PollInterval: h.Config().PollInterval,
	}
}

// Release stops the user's feed, e.g. on logout.
func (s *NotificationService) Release(userID int64) {
	s.mu.Lock()
	e, ok := s.feeds[userID]
	if ok {
		s.removeLocked(userID, e)
	}
	active := len(s.feeds)
	s.mu.Unlock()
	if ok {
		metrics.EmitActiveFeeds(s.metrics, active)
	}
}

// ReapIdle stops feeds not read since now-IdleTTL and returns how many it stopped.
func (s *NotificationService) ReapIdle(ctx context.Context, now time.Time) int {
	if s.idleTTL <= 0 {
		return 0
	}
	cutoff := now.Add(-s.idleTTL)

	s.mu.Lock()
	reaped := 0
	for id, e := range s.feeds {
		if e.lastAccess.Before(cutoff) {
			s.removeLocked(id, e)
			reaped++
		}
	}
	active := len(s.feeds)
	s.mu.Unlock()

	if reaped > 0 {
		s.logger.DebugContext(ctx, "stopped idle feeds", "count", reaped, "active", active)
	}
	metrics.EmitActiveFeeds(s.metrics, active)
	return reaped
}

// Active is the number of registered feeds.
func (s *NotificationService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.feeds)
}

// Close stops every feed and waits for pending outage notifications.
func (s *NotificationService) Close() {
	s.mu.Lock()
	for id, e := range s.feeds {
		s.removeLocked(id, e)
	}
	s.mu.Unlock()
	s.stopBase()
	s.alerts.Wait()
}

func (s *NotificationService) removeLocked(userID int64, e *feedEntry) {
	delete(s.feeds, userID)
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	e.handle.Stop()
	e.cancel()
}

func (s *NotificationService) feedOptions() feed.Options {
	return feed.Options{
		Source:    s.source,
		Scheduler: s.scheduler,
		Logger:    s.logger,
		Metrics:   s.metrics,
		Now:       s.now,
	}
}

// observe reacts to a settled fetch: a rejected token releases the feed, and
// crossing the failure threshold raises (or later resolves) an outage.
func (s *NotificationService) observe(userID int64, e *feedEntry, st feed.State) {
	if st.Loading || (st.Err == nil && st.UpdatedAt.IsZero()) {
		return
	}

	if apperrors.IsUnauthorized(st.Err) {
		// The entry stays so readers see the rejection until the session
		// changes or the feed is reaped.
		s.mu.Lock()
		if cur, ok := s.feeds[userID]; ok && cur == e {
			e.handle.Stop()
			e.cancel()
		}
		s.mu.Unlock()
		s.logger.Info("access token rejected; feed stopped", "user_id", userID)
		return
	}

	s.mu.Lock()
	var payload *notify.FeedOutagePayload
	switch {
	case st.Err == nil:
		e.lastSuccess = st.UpdatedAt
		if e.alerted {
			e.alerted = false
			payload = &notify.FeedOutagePayload{Resolved: true, Severity: notify.SeverityInfo}
		}
	case s.threshold > 0 && st.ConsecutiveFailures >= s.threshold && !e.alerted:
		e.alerted = true
		payload = &notify.FeedOutagePayload{
			ConsecutiveFailures: st.ConsecutiveFailures,
			Error:               st.Err.Error(),
			ErrorClass:          obserrors.Classify(st.Err),
			Severity:            notify.SeverityCritical,
		}
	}
	if payload != nil {
		payload.SubjectID = userID
		payload.UserEmail = e.email
		payload.LastSuccess = e.lastSuccess
		payload.OccurredAt = st.LastAttempt
	}
	s.mu.Unlock()

	if payload == nil {
		return
	}
	if !payload.Resolved {
		metrics.EmitFeedOutage(s.metrics, payload.ConsecutiveFailures)
		s.logger.Warn("notification feed outage",
			"user_id", userID,
			"failures", payload.ConsecutiveFailures,
			"error_class", payload.ErrorClass,
		)
	}
	if s.notifier == nil {
		return
	}
	s.alerts.Add(1)
	go func() {
		defer s.alerts.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.base), 30*time.Second)
		defer cancel()
		s.notifier.NotifyFeedOutage(ctx, *payload)
	}()
}
