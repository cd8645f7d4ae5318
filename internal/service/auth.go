package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
	"github.com/ticketdesk/admin-console/internal/ports"
)

// ErrSessionExpired is returned by GetSession for a session past its expiry.
var ErrSessionExpired = apperrors.Unauthorized("session expired")

// AuthServiceOptions groups dependencies for AuthService. At least one of
// Provider and Credentials must be set.
type AuthServiceOptions struct {
	Provider    ports.AuthProvider            // redirect login (oauth, mock)
	Credentials ports.CredentialAuthenticator // password login
	Profiles    ports.ProfileResolver         // resolves identities without a user
	Sessions    ports.SessionStore
	Logger      *slog.Logger
	Now         func() time.Time
}

// AuthService signs users in through the configured mode and persists
// server-side sessions.
type AuthService struct {
	provider    ports.AuthProvider
	credentials ports.CredentialAuthenticator
	profiles    ports.ProfileResolver
	sessions    ports.SessionStore
	logger      *slog.Logger
	now         func() time.Time
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) (*AuthService, error) {
	if opts.Sessions == nil {
		return nil, errors.New("SessionStore is required")
	}
	if opts.Provider == nil && opts.Credentials == nil {
		return nil, errors.New("an AuthProvider or CredentialAuthenticator is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		provider:    opts.Provider,
		credentials: opts.Credentials,
		profiles:    opts.Profiles,
		sessions:    opts.Sessions,
		logger:      logger.With("component", "auth_service"),
		now:         now,
	}, nil
}

// PasswordEnabled reports whether the login form accepts email and password.
func (s *AuthService) PasswordEnabled() bool { return s.credentials != nil }

// RedirectEnabled reports whether a redirect-based login is configured.
func (s *AuthService) RedirectEnabled() bool { return s.provider != nil }

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin starts a redirect-based login and returns the provider URL with state and nonce.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if s.provider == nil {
		return nil, apperrors.Validation("redirect login is not enabled")
	}
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}
	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLoginResult contains the persisted session.
type CompleteLoginResult struct {
	Session domainauth.Session
}

// CompleteLogin exchanges the code for an identity, resolves the user's
// profile from the ticketing API when the provider did not supply one, and
// persists a session.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (*CompleteLoginResult, error) {
	if s.provider == nil {
		return nil, apperrors.Validation("redirect login is not enabled")
	}
	switch {
	case input.Code == "":
		return nil, errors.New("authorization code is required")
	case input.State == "":
		return nil, errors.New("state parameter is required")
	case input.Nonce == "":
		return nil, errors.New("nonce parameter is required")
	}

	identity, err := s.provider.Exchange(ctx, ports.ExchangeInput{
		Code:  input.Code,
		State: input.State,
		Nonce: input.Nonce,
	})
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return s.startSession(ctx, identity)
}

// LoginWithPassword signs in with email and password against the ticketing API.
func (s *AuthService) LoginWithPassword(ctx context.Context, email, password string) (*CompleteLoginResult, error) {
	if s.credentials == nil {
		return nil, apperrors.Validation("password login is not enabled")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.ValidationField("email", "Email is required")
	}
	if password == "" {
		return nil, apperrors.ValidationField("password", "Password is required")
	}

	identity, err := s.credentials.Authenticate(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return s.startSession(ctx, identity)
}

func (s *AuthService) startSession(ctx context.Context, identity domainauth.Identity) (*CompleteLoginResult, error) {
	if identity.AccessToken == "" {
		return nil, apperrors.Unauthorized("identity provider returned no access token")
	}

	user := identity.User
	if user == nil {
		if s.profiles == nil {
			return nil, apperrors.Internal("no profile resolver configured")
		}
		u, err := s.profiles.Profile(ctx, identity.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("resolve profile: %w", err)
		}
		user = &u
	}

	sess := domainauth.Session{
		ID:            uuid.NewString(),
		Authenticated: true,
		User:          user,
		AccessToken:   identity.AccessToken,
		ExpiresAt:     identity.ExpiresAt,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.InfoContext(ctx, "user signed in",
		"user_id", user.ID,
		"role", user.Role,
		"expires_at", sess.ExpiresAt,
	)
	return &CompleteLoginResult{Session: sess}, nil
}

// GetSession retrieves a session by ID. Expired sessions are deleted and
// reported as ErrSessionExpired.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if sess.Expired(s.now()) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(ErrSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, ErrSessionExpired
	}

	return &sess, nil
}

// Logout removes a session. An empty ID is a no-op.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
