//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
)

const maxNameLen = 100

// UserStatus is the approval state of an account.
type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusApproved UserStatus = "approved"
)

// ManagedUser is a user record as seen from the user-management screens.
type ManagedUser struct {
	ID        int64           `json:"id"`
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Email     string          `json:"email"`
	Role      domainauth.Role `json:"role"`
	Status    UserStatus      `json:"status"`
	Barcode   string          `json:"barcode,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Pending reports whether the account awaits approval.
func (u ManagedUser) Pending() bool { return u.Status == UserStatusPending }

// FullName returns "First Last".
func (u ManagedUser) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserListOptions controls paging for the user list.
type UserListOptions struct {
	Limit  int
	Offset int
}

// UserPage is one page of users plus the server-side total.
type UserPage struct {
	Users []ManagedUser
	Total int
}

// NewUser is the create-user form.
type NewUser struct {
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Email     string          `json:"email"`
	Password  string          `json:"password"`
	Role      domainauth.Role `json:"role"`
}

// Normalize trims fields and canonicalizes the role and email case.
func (n *NewUser) Normalize() {
	n.FirstName = strings.TrimSpace(n.FirstName)
	n.LastName = strings.TrimSpace(n.LastName)
	n.Email = strings.ToLower(strings.TrimSpace(n.Email))
	if r, ok := domainauth.ParseRole(string(n.Role)); ok {
		n.Role = r
	}
}

// Validate returns a field-scoped validation error for the first bad input.
// Password strength is left to the API.
func (n NewUser) Validate() error {
	if n.FirstName == "" {
		return apperrors.ValidationField("firstName", "First name is required")
	}
	if utf8.RuneCountInString(n.FirstName) > maxNameLen {
		return apperrors.ValidationField("firstName", "First name is too long")
	}
	if n.LastName == "" {
		return apperrors.ValidationField("lastName", "Last name is required")
	}
	if utf8.RuneCountInString(n.LastName) > maxNameLen {
		return apperrors.ValidationField("lastName", "Last name is too long")
	}
	addr, err := mail.ParseAddress(n.Email)
	if err != nil || addr.Address != n.Email {
		return apperrors.ValidationField("email", "Enter a valid email address")
	}
	if n.Password == "" {
		return apperrors.ValidationField("password", "Password is required")
	}
	if _, ok := domainauth.ParseRole(string(n.Role)); !ok {
		return apperrors.ValidationField("role", "Choose a role")
	}
	return nil
}

// RoleInfo describes a role as published by the API.
type RoleInfo struct {
	Name        domainauth.Role `json:"name"`
	Description string          `json:"description"`
	Permissions []string        `json:"permissions"`
}

// BarcodeCard is the login card issued to a user.
type BarcodeCard struct {
	UserID   int64     `json:"userId"`
	Barcode  string    `json:"barcode"`
	IssuedAt time.Time `json:"issuedAt"`
}
