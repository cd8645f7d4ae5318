// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
	"github.com/ticketdesk/admin-console/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthProvider            = (*MockAuthProvider)(nil)
	_ ports.SessionStore            = (*MemorySessionStore)(nil)
	_ ports.CredentialAuthenticator = (*StaticAuthenticator)(nil)
	_ ports.ProfileResolver         = (*StaticProfileResolver)(nil)
)

// MockAuthProvider simulates an IdP for tests with deterministic state/nonce handling.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)

	AuthURL     string
	StatePrefix string
	NoncePrefix string
	// Token is returned as the identity's access token by the default Exchange.
	Token string

	mu        sync.Mutex
	callCount int
}

// NewMockAuthProvider creates a MockAuthProvider with sensible defaults.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{
		AuthURL:     "https://mock-idp/auth",
		StatePrefix: "state",
		NoncePrefix: "nonce",
		Token:       "mock-token",
	}
}

func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}

	m.mu.Lock()
	m.callCount++
	n := m.callCount
	m.mu.Unlock()

	authURL := orDefault(m.AuthURL, "https://mock-idp/auth")
	state := fmt.Sprintf("%s-%d", orDefault(m.StatePrefix, "state"), n)
	nonce := fmt.Sprintf("%s-%d", orDefault(m.NoncePrefix, "nonce"), n)
	return authURL, state, nonce, nil
}

func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}
	return domainauth.Identity{
		Subject:     "mock-user-1",
		Email:       "mock.user@example.com",
		AccessToken: orDefault(m.Token, "mock-token"),
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domainauth.Session
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainauth.Session)}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if id == "" || !ok {
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ErrNotFound is returned by mocks when an entity is not present.
var ErrNotFound = apperrors.NotFound("not found")

// StaticAuthenticator accepts a fixed set of email/password pairs.
type StaticAuthenticator struct {
	// Accounts maps lower-case email to password.
	Accounts map[string]string
	// Users maps lower-case email to the profile returned on success.
	Users map[string]domainauth.User
	Token string
	TTL   time.Duration
}

func (s *StaticAuthenticator) Authenticate(_ context.Context, email, password string) (domainauth.Identity, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if pw, ok := s.Accounts[key]; !ok || pw != password {
		return domainauth.Identity{}, apperrors.Unauthorized("invalid email or password")
	}
	var user *domainauth.User
	if u, ok := s.Users[key]; ok {
		user = &u
	}
	ttl := s.TTL
	if ttl == 0 {
		ttl = time.Hour
	}
	return domainauth.Identity{
		Subject:     key,
		Email:       key,
		AccessToken: orDefault(s.Token, "token-"+key),
		User:        user,
		ExpiresAt:   time.Now().Add(ttl),
	}, nil
}

// StaticProfileResolver resolves tokens from a fixed map.
type StaticProfileResolver struct {
	Profiles map[string]domainauth.User
	Err      error
}

func (s *StaticProfileResolver) Profile(_ context.Context, token string) (domainauth.User, error) {
	if s.Err != nil {
		return domainauth.User{}, s.Err
	}
	u, ok := s.Profiles[token]
	if !ok {
		return domainauth.User{}, apperrors.Unauthorized("unknown token")
	}
	return u, nil
}
