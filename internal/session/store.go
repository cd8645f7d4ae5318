// Package session holds the client-side authentication state as an
// observable store. The guard and the feed read from it; only the login and
// logout flows write to it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
)

// ErrNoSession is returned by a Persister that has nothing stored.
var ErrNoSession = errors.New("session: none stored")

// Persister saves the session between process runs.
type Persister interface {
	Load(ctx context.Context) (domainauth.Session, error)
	Save(ctx context.Context, sess domainauth.Session) error
	Clear(ctx context.Context) error
}

// StoreOptions configures a Store. Persister is optional.
type StoreOptions struct {
	Persister Persister
	Logger    *slog.Logger
	Now       func() time.Time
}

// Store is an observable session context. The zero session is signed out.
type Store struct {
	persister Persister
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.RWMutex
	current domainauth.Session
	subs    map[uint64]func(domainauth.Session)
	nextID  uint64
}

// NewStore creates a signed-out store.
func NewStore(opts StoreOptions) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		persister: opts.Persister,
		logger:    logger.With("component", "session_store"),
		now:       now,
		subs:      make(map[uint64]func(domainauth.Session)),
	}
}

// Current returns the current session.
func (s *Store) Current() domainauth.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers fn for every subsequent change. Call the returned
// function to unsubscribe.
func (s *Store) Subscribe(fn func(domainauth.Session)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Load restores a persisted session. A missing or expired session leaves the
// store signed out and is not an error.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	sess, err := s.persister.Load(ctx)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if sess.Expired(s.now()) {
		s.logger.InfoContext(ctx, "stored session expired", "expires_at", sess.ExpiresAt)
		if err := s.persister.Clear(ctx); err != nil {
			s.logger.WarnContext(ctx, "failed to clear expired session", "error", err)
		}
		return nil
	}
	s.set(ctx, sess)
	return nil
}

// SignIn replaces the current session and persists it.
func (s *Store) SignIn(ctx context.Context, sess domainauth.Session) error {
	if s.persister != nil {
		if err := s.persister.Save(ctx, sess); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}
	s.set(ctx, sess)
	return nil
}

// SignOut clears the session. Subscribers are notified even if clearing the
// persisted copy fails.
func (s *Store) SignOut(ctx context.Context) error {
	s.set(ctx, domainauth.Anonymous())
	if s.persister == nil {
		return nil
	}
	if err := s.persister.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *Store) set(ctx context.Context, sess domainauth.Session) {
	if sess.Inconsistent() {
		s.logger.WarnContext(ctx, "session marked authenticated without a user")
	}
	s.mu.Lock()
	s.current = sess
	subs := make([]func(domainauth.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(sess)
	}
}
