package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
	"github.com/ticketdesk/admin-console/internal/ports"
)

func TestMockAuthProvider_Begin_Defaults(t *testing.T) {
	provider := NewMockAuthProvider()
	ctx := context.Background()
	input := ports.BeginInput{RedirectURL: "http://localhost:8080/auth/callback"}

	authURL, state, nonce, err := provider.Begin(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "https://mock-idp/auth", authURL)
	assert.Equal(t, "state-1", state)
	assert.Equal(t, "nonce-1", nonce)

	_, state2, nonce2, err := provider.Begin(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "state-2", state2)
	assert.Equal(t, "nonce-2", nonce2)
}

func TestMockAuthProvider_Exchange(t *testing.T) {
	provider := &MockAuthProvider{Token: "tok"}
	id, err := provider.Exchange(context.Background(), ports.ExchangeInput{Code: "c"})
	require.NoError(t, err)
	assert.Equal(t, "tok", id.AccessToken)
	assert.Nil(t, id.User)
	assert.True(t, id.ExpiresAt.After(time.Now()))
}

func TestMemorySessionStore_Lifecycle(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	require.Error(t, store.Save(ctx, domainauth.Session{}))

	sess := domainauth.Session{ID: "s1", Authenticated: true, User: &domainauth.User{ID: 1}}
	require.NoError(t, store.Save(ctx, sess))
	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.User.ID)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.True(t, apperrors.IsNotFound(err))
	assert.Zero(t, store.Len())
}

func TestStaticAuthenticator(t *testing.T) {
	a := &StaticAuthenticator{
		Accounts: map[string]string{"ada@example.com": "pw"},
		Users:    map[string]domainauth.User{"ada@example.com": {ID: 3, Role: domainauth.RoleAdmin}},
	}
	id, err := a.Authenticate(context.Background(), " Ada@Example.com", "pw")
	require.NoError(t, err)
	require.NotNil(t, id.User)
	assert.Equal(t, int64(3), id.User.ID)

	_, err = a.Authenticate(context.Background(), "ada@example.com", "nope")
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestStaticProfileResolver(t *testing.T) {
	r := &StaticProfileResolver{Profiles: map[string]domainauth.User{"t": {ID: 9}}}
	u, err := r.Profile(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, int64(9), u.ID)

	_, err = r.Profile(context.Background(), "other")
	assert.True(t, apperrors.IsUnauthorized(err))
}
