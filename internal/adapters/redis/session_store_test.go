package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
	"github.com/ticketdesk/admin-console/internal/testutil"
)

func newStore(t *testing.T) *SessionStore {
	t.Helper()
	client := testutil.SetupTestRedis(t)
	return NewSessionStore(SessionStoreOptions{Client: client, Prefix: "test-session:" + uuid.NewString() + ":"})
}

func adminSession(id string, exp time.Time) domainauth.Session {
	return domainauth.Session{
		ID:            id,
		Authenticated: true,
		User:          &domainauth.User{ID: 7, FirstName: "Ada", Email: "ada@example.com", Role: domainauth.RoleAdmin},
		AccessToken:   "tok",
		ExpiresAt:     exp,
	}
}

func TestSessionStore_SaveGetDelete(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	sess := adminSession("s1", time.Now().Add(30*time.Minute))
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.IsAuthenticated())
	assert.Equal(t, int64(7), got.User.ID)
	assert.Equal(t, "tok", got.AccessToken)
	assert.WithinDuration(t, sess.ExpiresAt, got.ExpiresAt, time.Second)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSessionStore_RejectsBadInput(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	assert.Error(t, store.Save(ctx, adminSession("", time.Now().Add(time.Hour))))
	assert.Error(t, store.Save(ctx, adminSession("old", time.Now().Add(-time.Minute))))

	_, err := store.Get(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Delete(ctx, ""))
}

func TestSessionStore_ExpiresByClock(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	now := time.Now()
	store := NewSessionStore(SessionStoreOptions{
		Client: client,
		Prefix: "test-session:" + uuid.NewString() + ":",
		Now:    func() time.Time { return now },
	})
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, adminSession("s2", now.Add(time.Minute))))

	now = now.Add(2 * time.Minute)
	_, err := store.Get(ctx, "s2")
	assert.ErrorIs(t, err, ErrNotFound)
}
