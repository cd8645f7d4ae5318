package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRole_Matches(t *testing.T) {
	assert.True(t, RoleAdmin.Matches("Admin"))
	assert.True(t, RoleAdmin.Matches(" ADMIN "))
	assert.False(t, RoleAdmin.Matches(RoleUser))
	assert.False(t, RoleAdmin.Matches(""))
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("Moderator")
	assert.True(t, ok)
	assert.Equal(t, RoleModerator, r)

	_, ok = ParseRole("guest")
	assert.False(t, ok)
}

func TestRole_Label(t *testing.T) {
	assert.Equal(t, "Admin", RoleAdmin.Label())
	assert.Equal(t, "Moderator", Role("MODERATOR").Label())
	assert.Empty(t, Role("").Label())
}

func TestSession_IsAuthenticated(t *testing.T) {
	u := &User{ID: 7, Role: RoleUser}
	tests := []struct {
		name string
		sess Session
		want bool
	}{
		{"anonymous", Anonymous(), false},
		{"flag without user", Session{Authenticated: true}, false},
		{"user without flag", Session{User: u}, false},
		{"authenticated", Session{Authenticated: true, User: u}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sess.IsAuthenticated())
		})
	}
	assert.True(t, Session{Authenticated: true}.Inconsistent())
}

func TestSession_SubjectIDAndRole(t *testing.T) {
	s := Session{Authenticated: true, User: &User{ID: 7, Role: RoleModerator}}
	assert.Equal(t, int64(7), s.SubjectID())
	assert.Equal(t, RoleModerator, s.Role())

	assert.Zero(t, Session{Authenticated: true}.SubjectID())
	assert.Empty(t, Anonymous().Role())
}

func TestSession_Expired(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.False(t, Session{}.Expired(now), "zero expiry never expires")
	assert.True(t, Session{ExpiresAt: now}.Expired(now))
	assert.False(t, Session{ExpiresAt: now.Add(time.Minute)}.Expired(now))
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", User{FirstName: "Ada", LastName: "Lovelace"}.DisplayName())
	assert.Equal(t, "ada@example.com", User{Email: "ada@example.com"}.DisplayName())
}
