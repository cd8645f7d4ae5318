// Package viewmodel holds the data shapes templates render.
package viewmodel

// User represents the authenticated user context exposed to templates.
type User struct {
	ID          int64
	DisplayName string
	Email       string
	Role        string
	RoleLabel   string
}

// Layout captures shared chrome metadata (titles, navigation state, auth flags).
type Layout struct {
	Title           string
	PageTitle       string
	CurrentPage     string
	CSRFToken       string
	IsAuthenticated bool
	IsAdmin         bool
	User            *User
	// Badge is nil when the notification feed is not running for this user.
	Badge *Badge
}

// LayoutProvider exposes layout metadata for renderer utilities.
type LayoutProvider interface {
	LayoutData() *Layout
}

// LayoutData implements LayoutProvider so a bare Layout can be rendered.
func (l *Layout) LayoutData() *Layout { return l }
