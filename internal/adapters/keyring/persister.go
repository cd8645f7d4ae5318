// Package keyring persists the CLI session in the operating system keyring.
package keyring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	"github.com/ticketdesk/admin-console/internal/session"
)

const (
	// ServiceName scopes the keyring entries.
	ServiceName = "ticketdesk"
	sessionKey  = "session"
)

// OpenConfig configures Open.
type OpenConfig struct {
	// FileDir is used by the encrypted-file fallback backend.
	FileDir string
	// FilePassword unlocks the file backend. Empty disables that backend.
	FilePassword string
}

// Open opens the OS keyring, preferring native backends.
func Open(cfg OpenConfig) (keyring.Keyring, error) {
	backends := []keyring.BackendType{
		keyring.KeychainBackend,
		keyring.SecretServiceBackend,
		keyring.WinCredBackend,
		keyring.PassBackend,
	}
	kc := keyring.Config{
		ServiceName:              ServiceName,
		KeychainTrustApplication: true,
	}
	if cfg.FilePassword != "" {
		backends = append(backends, keyring.FileBackend)
		kc.FileDir = cfg.FileDir
		kc.FilePasswordFunc = keyring.FixedStringPrompt(cfg.FilePassword)
	}
	kc.AllowedBackends = backends

	ring, err := keyring.Open(kc)
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// SessionPersister implements session.Persister over a keyring.
type SessionPersister struct {
	ring keyring.Keyring
	key  string
}

// NewSessionPersister stores the session under the given profile name.
// An empty profile uses the default entry.
func NewSessionPersister(ring keyring.Keyring, profile string) *SessionPersister {
	key := sessionKey
	if profile != "" {
		key = sessionKey + ":" + profile
	}
	return &SessionPersister{ring: ring, key: key}
}

// Load returns session.ErrNoSession when nothing is stored.
func (p *SessionPersister) Load(_ context.Context) (domainauth.Session, error) {
	item, err := p.ring.Get(p.key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return domainauth.Session{}, session.ErrNoSession
	}
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("getting session %q: %w", p.key, err)
	}
	var sess domainauth.Session
	if err := json.Unmarshal(item.Data, &sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

func (p *SessionPersister) Save(_ context.Context, sess domainauth.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	err = p.ring.Set(keyring.Item{
		Key:         p.key,
		Data:        data,
		Label:       "ticketdesk session",
		Description: "ticketdesk CLI access token",
	})
	if err != nil {
		return fmt.Errorf("setting session %q: %w", p.key, err)
	}
	return nil
}

// Clear removes the stored session. Clearing an empty keyring is not an error.
func (p *SessionPersister) Clear(_ context.Context) error {
	err := p.ring.Remove(p.key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting session %q: %w", p.key, err)
	}
	return nil
}

var _ session.Persister = (*SessionPersister)(nil)
