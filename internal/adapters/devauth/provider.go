// Package devauth provides a config-driven AuthProvider for local development
// and demos. It skips the identity provider entirely and signs the browser in
// as a fixed user whose role comes from configuration.
package devauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	"github.com/ticketdesk/admin-console/internal/ports"
)

// Config controls the dev auth provider. Email and Role are required.
type Config struct {
	UserID          int64
	FirstName       string
	LastName        string
	Email           string
	Role            string
	AccessToken     string        // sent to the ticketing API; defaults to "dev-token"
	SessionDuration time.Duration // defaults to 8h
	CallbackPath    string        // defaults to /auth/callback
	Now             func() time.Time
}

// Provider implements ports.AuthProvider for local development. Begin
// redirects straight back to the callback; Exchange ignores the code and
// returns the configured identity.
type Provider struct {
	mu       sync.Mutex
	user     domainauth.User
	token    string
	duration time.Duration
	callback string
	now      func() time.Time
}

// NewProvider constructs a dev auth provider from cfg.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	role, ok := domainauth.ParseRole(cfg.Role)
	if !ok {
		return nil, fmt.Errorf("dev auth: unknown role %q", cfg.Role)
	}
	p := &Provider{
		user: domainauth.User{
			ID:        cfg.UserID,
			FirstName: cfg.FirstName,
			LastName:  cfg.LastName,
			Email:     cfg.Email,
			Role:      role,
		},
		token:    cfg.AccessToken,
		duration: cfg.SessionDuration,
		callback: cfg.CallbackPath,
		now:      cfg.Now,
	}
	if p.user.ID == 0 {
		p.user.ID = 1
	}
	if p.token == "" {
		p.token = "dev-token"
	}
	if p.duration <= 0 {
		p.duration = 8 * time.Hour
	}
	if p.callback == "" {
		p.callback = "/auth/callback"
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// Begin returns a local callback URL with a fresh state and nonce.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}
	q := url.Values{"code": {"dev"}, "state": {state}}
	return p.callback + "?" + q.Encode(), state, nonce, nil
}

// Exchange returns the configured identity. State and nonce are checked by the caller.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	user := p.user
	return domainauth.Identity{
		Subject:     fmt.Sprintf("dev-%d", user.ID),
		Email:       user.Email,
		AccessToken: p.token,
		User:        &user,
		ExpiresAt:   p.now().Add(p.duration),
	}, nil
}

// SetRole changes the role handed out by later logins.
func (p *Provider) SetRole(r domainauth.Role) {
	p.mu.Lock()
	p.user.Role = r
	p.mu.Unlock()
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
