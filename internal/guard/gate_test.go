package guard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
)

type fakeSessions struct {
	mu   sync.Mutex
	cur  domainauth.Session
	subs map[int]func(domainauth.Session)
	next int
	// afterRead runs once, after Current has copied the session it returns.
	afterRead func()
}

func (f *fakeSessions) Current() domainauth.Session {
	f.mu.Lock()
	cur := f.cur
	hook := f.afterRead
	f.afterRead = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return cur
}

func (f *fakeSessions) Subscribe(fn func(domainauth.Session)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		f.subs = map[int]func(domainauth.Session){}
	}
	id := f.next
	f.next++
	f.subs[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}

func (f *fakeSessions) set(s domainauth.Session) {
	f.mu.Lock()
	f.cur = s
	subs := make([]func(domainauth.Session), 0, len(f.subs))
	for _, fn := range f.subs {
		subs = append(subs, fn)
	}
	f.mu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

// recorder logs navigation and render events in order.
type recorder struct {
	mu     sync.Mutex
	events []string
	gate   *Gate
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Replace(path string) {
	r.add("replace " + path)
	if r.gate != nil {
		r.gate.Navigate(path)
	}
}

func (r *recorder) Push(path string) { r.add("push " + path) }

func (r *recorder) onView(v View) { r.add("view " + v.Path + " " + v.Kind.String()) }

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func newTestGate(t *testing.T, sess domainauth.Session, path string) (*Gate, *fakeSessions, *recorder) {
	t.Helper()
	src := &fakeSessions{cur: sess}
	rec := &recorder{}
	g, err := NewGate(GateOptions{Sessions: src, Navigator: rec, OnView: rec.onView, Path: path})
	require.NoError(t, err)
	rec.gate = g
	t.Cleanup(g.Close)
	return g, src, rec
}

func TestNewGate_RequiresCollaborators(t *testing.T) {
	_, err := NewGate(GateOptions{Navigator: &recorder{}})
	assert.Error(t, err)
	_, err = NewGate(GateOptions{Sessions: &fakeSessions{}})
	assert.Error(t, err)
}

func TestGate_SuppressesBeforeReplace(t *testing.T) {
	g, _, rec := newTestGate(t, domainauth.Anonymous(), "/approvals")
	g.Protect("/approvals", "")

	assert.Equal(t, []string{
		"view /approvals render_children",
		"view /approvals render_nothing",
		"replace /login",
		"view /login render_children",
	}, rec.snapshot())
	assert.Equal(t, View{Path: "/login", Kind: RenderChildren}, g.View())
}

func TestGate_RoleMismatchRedirectsToDashboard(t *testing.T) {
	g, _, rec := newTestGate(t, signedIn(domainauth.RoleUser), "/dashboard")
	g.Protect("/dashboard", "")
	g.Protect("/users", domainauth.RoleAdmin)

	g.Navigate("/users/new")

	events := rec.snapshot()
	assert.Contains(t, events, "view /users/new render_nothing")
	assert.Contains(t, events, "replace /dashboard")
	assert.Equal(t, "/dashboard", g.View().Path)
	assert.Equal(t, RenderChildren, g.View().Kind)
	for _, e := range events {
		assert.NotContains(t, e, "push", "redirects must not push history")
	}
}

func TestGate_ReactsToSessionChange(t *testing.T) {
	g, src, rec := newTestGate(t, signedIn(domainauth.RoleAdmin), "/users")
	g.Protect("/users", domainauth.RoleAdmin)
	assert.Equal(t, RenderChildren, g.View().Kind)
	assert.NotContains(t, rec.snapshot(), "replace /login")

	src.set(domainauth.Anonymous())

	assert.Contains(t, rec.snapshot(), "replace /login")
	assert.Equal(t, "/login", g.View().Path)
}

func TestGate_FailsClosedOnInconsistentSession(t *testing.T) {
	g, _, rec := newTestGate(t, domainauth.Session{Authenticated: true}, "/dashboard")
	g.Protect("/dashboard", "")
	assert.Contains(t, rec.snapshot(), "replace /login")
	assert.Equal(t, "/login", g.View().Path)
}

func TestGate_ProtectChangeReevaluates(t *testing.T) {
	g, _, rec := newTestGate(t, signedIn(domainauth.RoleModerator), "/reports")
	g.Protect("/reports", "")
	assert.Equal(t, RenderChildren, g.View().Kind)

	g.Protect("/reports", domainauth.RoleAdmin)
	assert.Contains(t, rec.snapshot(), "replace /dashboard")
}

func TestGate_LongestPrefixWins(t *testing.T) {
	g, _, _ := newTestGate(t, signedIn(domainauth.RoleUser), "/")
	g.Protect("/", "")
	g.Protect("/users", domainauth.RoleAdmin)

	g.Navigate("/usersettings")
	assert.Equal(t, RenderChildren, g.View().Kind, "segment boundary respected")
}

func TestGate_PushIsUserNavigation(t *testing.T) {
	g, _, rec := newTestGate(t, signedIn(domainauth.RoleUser), "/dashboard")
	g.Protect("/dashboard", "")
	g.Protect("/approvals", "")

	g.Push("/approvals")
	assert.Contains(t, rec.snapshot(), "push /approvals")
	assert.Equal(t, View{Path: "/approvals", Kind: RenderChildren}, g.View())
}

func TestGate_CloseStopsReacting(t *testing.T) {
	g, src, rec := newTestGate(t, signedIn(domainauth.RoleUser), "/dashboard")
	g.Protect("/dashboard", "")
	g.Close()
	g.Close()

	before := len(rec.snapshot())
	src.set(domainauth.Anonymous())
	assert.Len(t, rec.snapshot(), before)
}

func TestGate_SignOutDuringEvaluationWins(t *testing.T) {
	g, src, rec := newTestGate(t, signedIn(domainauth.RoleUser), "/dashboard")
	g.Protect("/approvals", "")

	src.mu.Lock()
	src.afterRead = func() { src.set(domainauth.Anonymous()) }
	src.mu.Unlock()

	g.Navigate("/approvals/1")

	assert.False(t, src.Current().IsAuthenticated())
	assert.Equal(t, View{Path: "/login", Kind: RenderChildren}, g.View())
	events := rec.snapshot()
	require.NotEmpty(t, events)
	assert.Contains(t, events, "replace /login")
	assert.NotEqual(t, "view /approvals/1 render_children", events[len(events)-1],
		"a stale signed-in evaluation must not be the last view")
}

func TestGate_ConcurrentSignOutEndsSignedOut(t *testing.T) {
	g, src, _ := newTestGate(t, signedIn(domainauth.RoleUser), "/approvals")
	g.Protect("/approvals", "")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for range 50 {
			g.Navigate("/approvals")
		}
	}()
	go func() {
		defer wg.Done()
		src.set(domainauth.Anonymous())
	}()
	wg.Wait()
	g.Navigate("/approvals")

	assert.Equal(t, View{Path: "/login", Kind: RenderChildren}, g.View())
}

func TestGate_GuardedRedirectTargetDoesNotLoop(t *testing.T) {
	g, _, rec := newTestGate(t, signedIn(domainauth.RoleUser), "/")
	g.Protect("/", "")
	g.Protect("/dashboard", domainauth.RoleAdmin)

	g.Navigate("/dashboard")

	replaces := 0
	for _, e := range rec.snapshot() {
		if e == "replace /dashboard" {
			replaces++
		}
	}
	assert.Zero(t, replaces, "a redirect to the current path must not be issued")
	assert.Equal(t, View{Path: "/dashboard", Kind: RenderNothing}, g.View())
}

func TestGate_GuardedLoginRendersNothing(t *testing.T) {
	g, _, rec := newTestGate(t, domainauth.Anonymous(), "/login")
	g.Protect("/", "")

	assert.NotContains(t, rec.snapshot(), "replace /login")
	assert.Equal(t, RenderNothing, g.View().Kind)
}
