package ticketapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string   `json:"token"`
	User  wireUser `json:"user"`
}

// Authenticate exchanges email and password for an access token and the
// signed-in user's profile.
func (c *Client) Authenticate(ctx context.Context, email, password string) (domainauth.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domainauth.Identity{}, apperrors.Validation("Email and password are required")
	}
	body, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   loginRequest{Email: email, Password: password},
	})
	if err != nil {
		if apperrors.IsUnauthorized(err) {
			return domainauth.Identity{}, apperrors.Unauthorized("Invalid email or password")
		}
		return domainauth.Identity{}, err
	}

	var out loginResponse
	if err := decodeData(body, &out); err != nil {
		return domainauth.Identity{}, err
	}
	if out.Token == "" {
		return domainauth.Identity{}, apperrors.Internal("ticketing service returned no token")
	}
	user, err := out.User.toUser()
	if err != nil {
		return domainauth.Identity{}, err
	}
	return domainauth.Identity{
		Subject:     user.Email,
		Email:       user.Email,
		AccessToken: out.Token,
		User:        &user,
		ExpiresAt:   c.tokenExpiry(out.Token),
	}, nil
}

// Profile returns the user the access token belongs to.
func (c *Client) Profile(ctx context.Context, accessToken string) (domainauth.User, error) {
	body, err := c.do(WithAccessToken(ctx, accessToken), request{method: http.MethodGet, path: "/auth/me"})
	if err != nil {
		return domainauth.User{}, err
	}
	var w wireUser
	if err := decodeData(body, &w); err != nil {
		return domainauth.User{}, err
	}
	return w.toUser()
}

// TokenExpiry reports when token expires, from its exp claim when present.
func (c *Client) TokenExpiry(token string) time.Time { return c.tokenExpiry(token) }

// tokenExpiry reads exp without verifying the signature; the API verifies
// tokens, the console only needs to know when to stop using one.
func (c *Client) tokenExpiry(token string) time.Time {
	fallbackExp := c.now().Add(c.sessionTTL)
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return fallbackExp
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return fallbackExp
	}
	return exp.Time
}
