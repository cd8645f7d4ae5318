// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.
package auth

import (
	"strings"
	"time"
)

// Role is the authorization role the ticketing API assigns to a user.
// The API is not consistent about case, so comparisons go through Matches.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Roles lists the known roles in ascending privilege order.
var Roles = []Role{RoleUser, RoleModerator, RoleAdmin}

// ParseRole normalizes s to a known role.
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if r.Matches(Role(s)) {
			return r, true
		}
	}
	return "", false
}

// Matches reports whether r and other name the same role, ignoring case and surrounding space.
func (r Role) Matches(other Role) bool {
	return strings.EqualFold(strings.TrimSpace(string(r)), strings.TrimSpace(string(other)))
}

// Label is the display form ("Admin").
func (r Role) Label() string {
	s := strings.ToLower(strings.TrimSpace(string(r)))
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// User is the signed-in user as reported by the ticketing API.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
}

// DisplayName returns "First Last", falling back to the email.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Identity is what an auth provider hands back after a successful login.
// User is nil when the provider only yields a token; the caller then
// resolves the profile from the API.
type Identity struct {
	Subject     string
	Email       string
	AccessToken string
	User        *User
	ExpiresAt   time.Time
}

// Session is the authentication state shared by the guard, the feed and the
// presentation layers. On the server it is persisted under ID; the CLI keeps
// it in the OS keyring.
type Session struct {
	ID            string    `json:"id,omitempty"`
	Authenticated bool      `json:"authenticated"`
	User          *User     `json:"user,omitempty"`
	AccessToken   string    `json:"access_token,omitempty"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// IsAuthenticated is true only when the flag is set and a user is present.
// A flagged session with no user is treated as signed out.
func (s Session) IsAuthenticated() bool {
	return s.Authenticated && s.User != nil
}

// Inconsistent reports the Authenticated-without-User state.
func (s Session) Inconsistent() bool {
	return s.Authenticated && s.User == nil
}

// Expired reports whether ExpiresAt is set and not after now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Role returns the user's role, or "" when signed out.
func (s Session) Role() Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// SubjectID is the user ID used to scope the notification feed, 0 when absent.
func (s Session) SubjectID() int64 {
	if !s.IsAuthenticated() {
		return 0
	}
	return s.User.ID
}

// Anonymous is the signed-out session.
func Anonymous() Session { return Session{} }
