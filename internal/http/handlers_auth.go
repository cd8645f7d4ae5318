package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
	"github.com/ticketdesk/admin-console/internal/guard"
	"github.com/ticketdesk/admin-console/internal/service"
)

const oauthCookieTTL = 600

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	PasswordEnabled() bool
	RedirectEnabled() bool
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	LoginWithPassword(ctx context.Context, email, password string) (*service.CompleteLoginResult, error)
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// FeedReleaser stops a user's notification feed.
type FeedReleaser interface {
	Release(userID int64)
}

// AuthHandlers provides HTTP handlers for authentication operations.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	Feeds        FeedReleaser
	T            *TemplateRenderer
	CookieDomain string
	Logger       *slog.Logger
	Now          func() time.Time
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// loginView is the data behind the login page.
type loginView struct {
	PasswordEnabled bool
	RedirectEnabled bool
	Email           string
}

// LoginPage renders the sign-in form. Signed-in users go straight to the dashboard.
// GET /login.
func (h *AuthHandlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	if SessionFromContext(r.Context()).IsAuthenticated() {
		http.Redirect(w, r, guard.DashboardPath, http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, loginPageData{})
}

type loginPageData struct {
	email string
	err   error
}

func (h *AuthHandlers) renderLogin(w http.ResponseWriter, r *http.Request, status int, in loginPageData) {
	page := NewPage(r, PageMeta{Title: "Sign in", PageTitle: "Sign in", CurrentPage: PageLogin})
	page.Data = loginView{
		PasswordEnabled: h.Svc.PasswordEnabled(),
		RedirectEnabled: h.Svc.RedirectEnabled(),
		Email:           in.email,
	}
	if in.err != nil {
		page.SetError(in.err)
	}
	if r.URL.Query().Get("expired") == "1" && in.err == nil {
		page.Error = "Your session has ended. Please sign in again."
	}
	renderPage(w, r, h.T, status, page, h.logger())
}

// PasswordLogin signs in with the submitted credentials.
// POST /login.
func (h *AuthHandlers) PasswordLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, r, http.StatusBadRequest, loginPageData{err: apperrors.Validation("Invalid form submission")})
		return
	}
	email := r.PostFormValue("email")
	result, err := h.Svc.LoginWithPassword(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		status, _ := StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger().ErrorContext(r.Context(), "password login failed", "error", err)
		}
		if apperrors.IsUnauthorized(err) {
			err = apperrors.Unauthorized("Invalid email or password")
		}
		if IsHTMX(r) {
			status = http.StatusOK
		}
		h.renderLogin(w, r, status, loginPageData{email: email, err: err})
		return
	}
	h.finishLogin(w, r, result.Session)
}

// Login starts the identity-provider flow.
// GET /auth/login?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))
	if redirectURI == "/" {
		redirectURI = guard.DashboardPath
	}

	result, err := h.Svc.BeginLogin(r.Context(), redirectURI)
	if err != nil {
		if apperrors.IsValidation(err) {
			http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
			return
		}
		h.logger().ErrorContext(r.Context(), "begin login failed", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "login_failed", Err: err})
		return
	}

	h.setCookie(w, r, "oauth_state", result.State, oauthCookieTTL)
	h.setCookie(w, r, "oauth_nonce", result.Nonce, oauthCookieTTL)
	if _, err := r.Cookie(postLoginCookie); err != nil {
		h.setCookie(w, r, postLoginCookie, redirectURI, oauthCookieTTL)
	}
	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback completes the identity-provider flow.
// GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_code", Err: errors.New("authorization code is required")})
		return
	}
	stateCookie, err := r.Cookie("oauth_state")
	if state == "" || err != nil || stateCookie.Value != state {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_state", Err: errors.New("invalid or missing state parameter")})
		return
	}
	nonceCookie, err := r.Cookie("oauth_nonce")
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_nonce", Err: errors.New("missing nonce parameter")})
		return
	}

	result, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{
		Code:  code,
		State: state,
		Nonce: nonceCookie.Value,
	})
	if err != nil {
		h.logger().WarnContext(r.Context(), "login completion failed", "error", err)
		status, errCode := StatusFor(err)
		if status >= http.StatusInternalServerError {
			errCode = "login_completion_failed"
		}
		WriteError(w, ErrorParams{Code: status, ErrCode: errCode, Err: err})
		return
	}

	clearCookie(w, r, h.CookieDomain, "oauth_state")
	clearCookie(w, r, h.CookieDomain, "oauth_nonce")
	h.finishLogin(w, r, result.Session)
}

// finishLogin sets the session cookie and sends the user where they were
// headed, or to the dashboard.
func (h *AuthHandlers) finishLogin(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	maxAge := int(s.ExpiresAt.Sub(h.now()).Seconds())
	if s.ExpiresAt.IsZero() || maxAge <= 0 {
		maxAge = 0
	}
	h.setCookie(w, r, sessionCookieName, s.ID, maxAge)

	dest := guard.DashboardPath
	if c, err := r.Cookie(postLoginCookie); err == nil {
		if p := safeRedirectPath(c.Value); p != "/" && p != guard.LoginPath {
			dest = p
		}
		clearCookie(w, r, h.CookieDomain, postLoginCookie)
	}
	if IsHTMX(r) {
		HTMX(w).Redirect(dest)
		return
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

// Logout ends the session and stops the user's feed.
// POST /logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.endSession(w, r)
	if IsHTMX(r) {
		HTMX(w).Redirect(guard.LoginPath)
		return
	}
	if !IsBrowserRequest(r) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "redirect_to": guard.LoginPath})
		return
	}
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}

// endSession deletes the server-side session, releases the feed and clears the cookie.
func (h *AuthHandlers) endSession(w http.ResponseWriter, r *http.Request) {
	if user, ok := signedInUser(r.Context()); ok && h.Feeds != nil {
		h.Feeds.Release(user.ID)
	}
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if err := h.Svc.Logout(r.Context(), c.Value); err != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", err)
		}
	}
	clearCookie(w, r, h.CookieDomain, sessionCookieName)
}

// Status returns the current authentication status.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	if !sess.IsAuthenticated() {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": map[string]any{
			"id":         sess.User.ID,
			"first_name": sess.User.FirstName,
			"last_name":  sess.User.LastName,
			"email":      sess.User.Email,
			"role":       sess.User.Role,
		},
		"expires_at": sess.ExpiresAt,
	})
}

func (h *AuthHandlers) setCookie(w http.ResponseWriter, r *http.Request, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}
