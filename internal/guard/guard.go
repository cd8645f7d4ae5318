// Package guard decides whether a protected view may render for a session.
//
// Decide is a pure function of the session and the required role. Gate wraps
// it for long-lived clients: it re-evaluates whenever the session, the route
// table or the current location changes, and drives a Navigator.
package guard

import (
	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
)

// Redirect targets.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

// Kind is the outcome of a guard evaluation.
type Kind int

const (
	// RenderNothing suppresses the protected view while a redirect is pending.
	RenderNothing Kind = iota
	// RenderChildren lets the protected view render.
	RenderChildren
	// Redirect sends the client to Decision.Target.
	Redirect
)

func (k Kind) String() string {
	switch k {
	case RenderChildren:
		return "render_children"
	case Redirect:
		return "redirect"
	default:
		return "render_nothing"
	}
}

// Decision is the result of Decide.
type Decision struct {
	Kind   Kind
	Target string
}

// Allowed reports whether the protected view may render.
func (d Decision) Allowed() bool { return d.Kind == RenderChildren }

// Decide evaluates access for sess. An empty required role means any
// authenticated user is allowed. A session flagged authenticated without a
// user is treated as signed out.
func Decide(sess domainauth.Session, required domainauth.Role) Decision {
	if !sess.IsAuthenticated() {
		return Decision{Kind: Redirect, Target: LoginPath}
	}
	if required != "" && !sess.User.Role.Matches(required) {
		return Decision{Kind: Redirect, Target: DashboardPath}
	}
	return Decision{Kind: RenderChildren}
}
