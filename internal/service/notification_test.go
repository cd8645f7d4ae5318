package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	"github.com/ticketdesk/admin-console/internal/domain/model"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
	"github.com/ticketdesk/admin-console/internal/feed"
	"github.com/ticketdesk/admin-console/internal/feed/feedtest"
	"github.com/ticketdesk/admin-console/internal/observability/notify"
	"github.com/ticketdesk/admin-console/internal/testutil"
)

type tokenKey struct{}

func withToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// scriptedSource answers per access token. Unknown tokens are unauthorized.
type scriptedSource struct {
	mu      sync.Mutex
	items   map[string][]model.PendingApprovalItem
	errs    map[string]error
	queries []model.PendingApprovalQuery
	calls   atomic.Int32
}

func newScriptedSource() *scriptedSource {
	return &scriptedSource{items: map[string][]model.PendingApprovalItem{}, errs: map[string]error{}}
}

func (s *scriptedSource) set(token string, items []model.PendingApprovalItem, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[token] = items
	s.errs[token] = err
}

func (s *scriptedSource) PendingApprovals(ctx context.Context, q model.PendingApprovalQuery) ([]model.PendingApprovalItem, error) {
	s.calls.Add(1)
	token, _ := ctx.Value(tokenKey{}).(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	if err, ok := s.errs[token]; ok && err != nil {
		return nil, err
	}
	items, ok := s.items[token]
	if !ok {
		return nil, apperrors.Unauthorized("token rejected")
	}
	return items, nil
}

type chanNotifier chan notify.FeedOutagePayload

func (c chanNotifier) NotifyFeedOutage(_ context.Context, p notify.FeedOutagePayload) { c <- p }

func (c chanNotifier) next(t *testing.T) notify.FeedOutagePayload {
	t.Helper()
	select {
	case p := <-c:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("no outage notification")
		return notify.FeedOutagePayload{}
	}
}

func (c chanNotifier) none(t *testing.T) {
	t.Helper()
	select {
	case p := <-c:
		t.Fatalf("unexpected notification: %+v", p)
	case <-time.After(50 * time.Millisecond):
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func feedCfg() feed.Config {
	return feed.Config{PageLimit: 10, PageOffset: 0, PollInterval: 30 * time.Second, Enabled: true}
}

func newNotificationService(t *testing.T, src *scriptedSource, mutate func(*NotificationServiceOptions)) (*NotificationService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: testutil.TestTime()}
	opts := NotificationServiceOptions{
		Source:    src,
		Config:    feedCfg(),
		Authorize: withToken,
		IdleTTL:   10 * time.Minute,
		Scheduler: feedtest.NewManualScheduler(),
		Now:       clock.Now,
	}
	if mutate != nil {
		mutate(&opts)
	}
	svc, err := NewNotificationService(opts)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc, clock
}

func TestNewNotificationService_RequiresSource(t *testing.T) {
	_, err := NewNotificationService(NotificationServiceOptions{})
	require.Error(t, err)
}

func TestNotificationService_OneFeedPerUser(t *testing.T) {
	src := newScriptedSource()
	sess := testutil.SessionFor(7, domainauth.RoleUser)
	src.set(sess.AccessToken, testutil.PendingApprovals(1), nil)
	svc, _ := newNotificationService(t, src, nil)
	ctx := context.Background()

	snap, err := svc.Refresh(ctx, sess)
	require.NoError(t, err)
	assert.True(t, snap.Running)
	assert.Equal(t, 1, snap.Count())
	assert.Equal(t, 30*time.Second, snap.PollInterval)

	h1 := svc.Ensure(ctx, sess)
	h2 := svc.Ensure(ctx, sess)
	assert.Same(t, h1, h2)
	assert.Equal(t, 1, svc.Active())

	src.mu.Lock()
	q := src.queries[0]
	src.mu.Unlock()
	assert.Equal(t, model.PendingApprovalQuery{SubjectID: 7, Limit: 10, Offset: 0}, q)
}

func TestNotificationService_TokenChangeRestarts(t *testing.T) {
	src := newScriptedSource()
	sess := testutil.SessionFor(7, domainauth.RoleUser)
	src.set(sess.AccessToken, nil, nil)
	src.set("new-token", testutil.PendingApprovals(15), nil)
	svc, _ := newNotificationService(t, src, nil)
	ctx := context.Background()

	old := svc.Ensure(ctx, sess)
	sess.AccessToken = "new-token"
	snap, err := svc.Refresh(ctx, sess)
	require.NoError(t, err)

	assert.Equal(t, feed.StatusStopped, old.Status())
	assert.Equal(t, 15, snap.Count())
	assert.Equal(t, 1, svc.Active())
}

func TestNotificationService_SignedOutAndDisabled(t *testing.T) {
	src := newScriptedSource()
	svc, _ := newNotificationService(t, src, nil)

	h := svc.Ensure(context.Background(), domainauth.Anonymous())
	assert.Equal(t, feed.StatusStopped, h.Status())
	assert.Equal(t, 0, svc.Active())

	broken := domainauth.Session{Authenticated: true}
	assert.Equal(t, feed.StatusStopped, svc.Ensure(context.Background(), broken).Status())

	disabled, _ := newNotificationService(t, src, func(o *NotificationServiceOptions) { o.Config.Enabled = false })
	snap := disabled.Snapshot(context.Background(), testutil.SessionFor(1, domainauth.RoleUser))
	assert.False(t, snap.Running)
	assert.Zero(t, src.calls.Load())
}

func TestNotificationService_UnauthorizedStopsFeed(t *testing.T) {
	src := newScriptedSource()
	svc, _ := newNotificationService(t, src, nil)
	sess := testutil.SessionFor(7, domainauth.RoleUser)

	_, err := svc.Refresh(context.Background(), sess)
	require.True(t, apperrors.IsUnauthorized(err), "got %v", err)

	snap := svc.Snapshot(context.Background(), sess)
	assert.False(t, snap.Running)
	assert.True(t, apperrors.IsUnauthorized(snap.Err), "rejection stays visible")
	assert.Equal(t, 1, svc.Active())
	assert.Equal(t, int32(1), src.calls.Load(), "a stopped feed is not restarted for the same token")
}

func TestNotificationService_OutageAlertFiresOnceAndResolves(t *testing.T) {
	src := newScriptedSource()
	sess := testutil.SessionFor(7, domainauth.RoleUser)
	src.set(sess.AccessToken, nil, apperrors.Wrap(errors.New("connection refused"), apperrors.ErrCodeUnavailable, "ticketing API unavailable"))
	alerts := make(chanNotifier, 4)
	svc, _ := newNotificationService(t, src, func(o *NotificationServiceOptions) {
		o.OutageThreshold = 2
		o.Notifier = alerts
	})
	ctx := context.Background()

	svc.Ensure(ctx, sess)
	require.Eventually(t, func() bool {
		return svc.Snapshot(ctx, sess).ConsecutiveFailures == 1
	}, 2*time.Second, 5*time.Millisecond)
	alerts.none(t)

	failUntil(t, svc, sess, 2)
	p := alerts.next(t)
	assert.Equal(t, int64(7), p.SubjectID)
	assert.Equal(t, 2, p.ConsecutiveFailures)
	assert.Equal(t, "unavailable", p.ErrorClass)
	assert.Equal(t, sess.User.Email, p.UserEmail)
	assert.False(t, p.Resolved)

	failUntil(t, svc, sess, 3)
	alerts.none(t)

	src.set(sess.AccessToken, testutil.PendingApprovals(2), nil)
	snap, err := svc.Refresh(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Count())
	assert.Nil(t, snap.Err)
	resolved := alerts.next(t)
	assert.True(t, resolved.Resolved)
	assert.Equal(t, int64(7), resolved.SubjectID)
}

// failUntil refreshes until the feed has failed n times in a row. A refresh
// may join the initial fetch, so the count is polled rather than assumed.
func failUntil(t *testing.T, svc *NotificationService, sess domainauth.Session, n int) {
	t.Helper()
	for range 10 {
		snap, err := svc.Refresh(context.Background(), sess)
		require.Error(t, err)
		if snap.ConsecutiveFailures >= n {
			require.Equal(t, n, snap.ConsecutiveFailures)
			return
		}
	}
	t.Fatalf("feed never reached %d failures", n)
}

func TestNotificationService_ReapIdleAndRelease(t *testing.T) {
	src := newScriptedSource()
	a := testutil.SessionFor(1, domainauth.RoleUser)
	b := testutil.SessionFor(2, domainauth.RoleAdmin)
	src.set(a.AccessToken, nil, nil)
	src.set(b.AccessToken, nil, nil)
	svc, clock := newNotificationService(t, src, nil)
	ctx := context.Background()

	ha := svc.Ensure(ctx, a)
	clock.Add(8 * time.Minute)
	hb := svc.Ensure(ctx, b)
	clock.Add(3 * time.Minute)

	assert.Equal(t, 1, svc.ReapIdle(ctx, clock.Now()))
	assert.Equal(t, feed.StatusStopped, ha.Status())
	assert.Equal(t, feed.StatusRunning, hb.Status())

	svc.Release(2)
	assert.Equal(t, feed.StatusStopped, hb.Status())
	assert.Equal(t, 0, svc.Active())
	svc.Release(2)
}

func TestNotificationService_ReapDisabled(t *testing.T) {
	src := newScriptedSource()
	svc, clock := newNotificationService(t, src, func(o *NotificationServiceOptions) { o.IdleTTL = 0 })
	svc.Ensure(context.Background(), testutil.SessionFor(1, domainauth.RoleUser))
	clock.Add(24 * time.Hour)
	assert.Zero(t, svc.ReapIdle(context.Background(), clock.Now()))
	assert.Equal(t, 1, svc.Active())
}

func TestNotificationService_Close(t *testing.T) {
	src := newScriptedSource()
	svc, _ := newNotificationService(t, src, nil)
	h := svc.Ensure(context.Background(), testutil.SessionFor(1, domainauth.RoleUser))

	svc.Close()
	assert.Equal(t, feed.StatusStopped, h.Status())
	assert.Equal(t, 0, svc.Active())
}
