package httpx

import (
	"context"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
)

type sessionKey struct{}

// WithSession returns ctx carrying a copy of s. A nil s leaves ctx unchanged.
func WithSession(ctx context.Context, s *domainauth.Session) context.Context {
	if s == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, *s)
}

// SessionFromContext is the request's session, anonymous when none was loaded.
func SessionFromContext(ctx context.Context) domainauth.Session {
	if s, ok := ctx.Value(sessionKey{}).(domainauth.Session); ok {
		return s
	}
	return domainauth.Anonymous()
}

// signedInUser is the request's user when its session passes IsAuthenticated.
func signedInUser(ctx context.Context) (*domainauth.User, bool) {
	s := SessionFromContext(ctx)
	if !s.IsAuthenticated() {
		return nil, false
	}
	return s.User, true
}
