// Package ports defines interfaces (hexagonal ports) the services depend on.
// Implementations live in internal/adapters; orchestration in internal/service.
package ports

import (
	"context"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
)

// BeginInput carries inputs for initiating a redirect-based auth flow.
type BeginInput struct {
	RedirectURL string
}

// AuthProvider initiates and completes a redirect-based authentication flow.
type AuthProvider interface {
	// Begin starts the login flow and returns the provider auth URL, an opaque state, and a nonce.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)

	// Exchange completes the login flow, verifying state and nonce, and returns the authenticated identity.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// CredentialAuthenticator signs a user in with email and password.
type CredentialAuthenticator interface {
	Authenticate(ctx context.Context, email, password string) (domainauth.Identity, error)
}

// ProfileResolver looks up the user behind an access token. The ticketing API
// is the source of truth for roles.
type ProfileResolver interface {
	Profile(ctx context.Context, accessToken string) (domainauth.User, error)
}

// SessionStore persists and retrieves server-side user sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}
