package guard

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
)

// SessionSource is the observable session context the gate reads from.
type SessionSource interface {
	Current() domainauth.Session
	Subscribe(fn func(domainauth.Session)) (unsubscribe func())
}

// Navigator changes the client location. Replace must not add a history
// entry; Push is reserved for user-initiated navigation.
type Navigator interface {
	Replace(path string)
	Push(path string)
}

// View is what the client should render at Path.
type View struct {
	Path string
	Kind Kind
}

// GateOptions configures a Gate.
type GateOptions struct {
	Sessions  SessionSource
	Navigator Navigator
	Logger    *slog.Logger
	// OnView receives every render decision, before any redirect is issued.
	OnView func(View)
	// Path is the initial location.
	Path string
}

type route struct {
	prefix string
	role   domainauth.Role
}

// Gate re-evaluates Decide for the current location whenever its inputs change.
type Gate struct {
	sessions SessionSource
	nav      Navigator
	logger   *slog.Logger
	onView   func(View)

	mu          sync.Mutex
	routes      []route
	path        string
	view        View
	closed      bool
	unsubscribe func()

	// dirty marks inputs changed since the last evaluation; draining is set
	// while one caller runs the evaluation loop.
	dirty    bool
	draining bool
}

// NewGate subscribes to the session source and evaluates the initial location.
func NewGate(opts GateOptions) (*Gate, error) {
	if opts.Sessions == nil {
		return nil, errors.New("guard: session source is required")
	}
	if opts.Navigator == nil {
		return nil, errors.New("guard: navigator is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{
		sessions: opts.Sessions,
		nav:      opts.Navigator,
		logger:   logger.With("component", "guard"),
		onView:   opts.OnView,
		path:     opts.Path,
	}
	g.unsubscribe = opts.Sessions.Subscribe(func(domainauth.Session) {
		g.reevaluate()
	})
	g.reevaluate()
	return g, nil
}

// Protect requires role for every path under prefix. An empty role means
// "signed in". Re-registering a prefix replaces its role.
func (g *Gate) Protect(prefix string, role domainauth.Role) {
	prefix = "/" + strings.Trim(prefix, "/")
	g.mu.Lock()
	replaced := false
	for i := range g.routes {
		if g.routes[i].prefix == prefix {
			g.routes[i].role = role
			replaced = true
		}
	}
	if !replaced {
		g.routes = append(g.routes, route{prefix: prefix, role: role})
		sort.SliceStable(g.routes, func(i, j int) bool {
			return len(g.routes[i].prefix) > len(g.routes[j].prefix)
		})
	}
	g.mu.Unlock()
	g.reevaluate()
}

// Navigate records that the client location changed to path.
func (g *Gate) Navigate(path string) {
	g.mu.Lock()
	g.path = path
	g.mu.Unlock()
	g.reevaluate()
}

// Push performs a user-initiated navigation.
func (g *Gate) Push(path string) {
	g.nav.Push(path)
	g.Navigate(path)
}

// View returns the current render decision.
func (g *Gate) View() View {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.view
}

// Close stops reacting to session changes. It is safe to call more than once.
func (g *Gate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	unsub := g.unsubscribe
	g.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// reevaluate runs evaluations until no input changed during the last one.
// Evaluations never overlap, and each reads the session afresh, so the last
// published view always reflects the latest session. Calls made while another
// caller is draining (a navigator re-entering Navigate, a concurrent sign-out)
// only mark the gate dirty.
func (g *Gate) reevaluate() {
	g.mu.Lock()
	g.dirty = true
	if g.draining {
		g.mu.Unlock()
		return
	}
	g.draining = true
	g.mu.Unlock()

	for {
		g.mu.Lock()
		if !g.dirty || g.closed {
			g.draining = false
			g.mu.Unlock()
			return
		}
		g.dirty = false
		g.mu.Unlock()
		g.evaluate()
	}
}

func (g *Gate) evaluate() {
	sess := g.sessions.Current()

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	path := g.path
	r, guarded := g.match(path)
	decision := Decision{Kind: RenderChildren}
	if guarded {
		decision = Decide(sess, r.role)
	}
	view := View{Path: path, Kind: RenderChildren}
	if decision.Kind == Redirect {
		view.Kind = RenderNothing
	}
	g.view = view
	g.mu.Unlock()

	if guarded && sess.Inconsistent() {
		g.logger.Warn("session flagged authenticated without a user; treating as signed out", "path", path)
	}
	if g.onView != nil {
		g.onView(view)
	}
	if decision.Kind != Redirect {
		return
	}
	if decision.Target == path {
		// The redirect target is itself guarded against this session.
		g.logger.Warn("redirect target is guarded; rendering nothing", "path", path, "required_role", string(r.role))
		return
	}
	g.logger.Debug("guard redirect", "from", path, "to", decision.Target, "required_role", string(r.role))
	g.nav.Replace(decision.Target)
}

func (g *Gate) match(path string) (route, bool) {
	for _, r := range g.routes {
		if r.prefix == "/" || path == r.prefix || strings.HasPrefix(path, r.prefix+"/") {
			return r, true
		}
	}
	return route{}, false
}
