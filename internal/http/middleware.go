package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	"github.com/ticketdesk/admin-console/internal/guard"
)

const (
	sessionCookieName  = "session_id"
	postLoginCookie    = "post_login_redirect"
	requestIDHeader    = "X-Request-Id"
	defaultHTTPStatus  = http.StatusOK
	postLoginCookieTTL = 600
)

// Logging returns a middleware that logs each request with its status and
// duration, tagging it with a request ID.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.LogAttrs(r.Context(), slog.LevelInfo, "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", reqID),
				slog.Bool("htmx", IsHTMX(r)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *respWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity in net/http
						panic(err)
					}
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// SessionLookup resolves a session cookie value.
type SessionLookup interface {
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
}

// LoadSession attaches the cookie's session to the request context. A cookie
// that no longer resolves is cleared; the request continues signed out.
func LoadSession(svc SessionLookup, cookieDomain string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(sessionCookieName)
			if err != nil || c.Value == "" || svc == nil {
				next.ServeHTTP(w, r)
				return
			}
			sess, err := svc.GetSession(r.Context(), c.Value)
			if err != nil {
				logger.DebugContext(r.Context(), "session cookie did not resolve", "error", err)
				clearCookie(w, r, cookieDomain, sessionCookieName)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// RequireAuth lets any signed-in user through.
func RequireAuth(cookieDomain string) func(http.Handler) http.Handler {
	return RequireRole(cookieDomain, "")
}

// RequireRole gates a handler on guard.Decide. Denied requests are sent to the
// decision's target without adding a history entry:
//   - API requests get 401 or 403 JSON;
//   - htmx requests get a guard-redirect trigger and no swap;
//   - full page loads get 303 See Other.
//
// When the target is the login page the requested path is remembered so the
// user returns to it after signing in.
func RequireRole(cookieDomain string, required domainauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromContext(r.Context())
			decision := guard.Decide(sess, required)
			if decision.Allowed() {
				next.ServeHTTP(w, r)
				return
			}
			denyAccess(w, r, cookieDomain, decision.Target)
		})
	}
}

func denyAccess(w http.ResponseWriter, r *http.Request, cookieDomain, target string) {
	if !IsBrowserRequest(r) {
		if target == guard.LoginPath {
			WriteError(w, ErrorParams{
				Code:    http.StatusUnauthorized,
				ErrCode: "authentication_required",
				Err:     errors.New("authentication required"),
			})
			return
		}
		WriteError(w, ErrorParams{
			Code:    http.StatusForbidden,
			ErrCode: "insufficient_permissions",
			Err:     errors.New("insufficient permissions"),
		})
		return
	}

	if target == guard.LoginPath {
		if dest := redirectPathForRequest(r); dest != "" && dest != guard.LoginPath {
			http.SetCookie(w, &http.Cookie{
				Name:     postLoginCookie,
				Value:    dest,
				Path:     "/",
				Domain:   cookieDomain,
				HttpOnly: true,
				Secure:   isSecureRequest(r),
				SameSite: http.SameSiteLaxMode,
				MaxAge:   postLoginCookieTTL,
			})
		}
	}
	if IsHTMX(r) {
		HTMX(w).ReplaceLocation(target)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// redirectPathForRequest is the page the user was trying to see. For htmx
// fragments that is the page hosting them, not the fragment URL.
func redirectPathForRequest(r *http.Request) string {
	if IsHTMX(r) {
		if cur := r.Header.Get("Hx-Current-Url"); cur != "" {
			if u, err := url.Parse(cur); err == nil {
				return safeRedirectPath(u.RequestURI())
			}
		}
		return ""
	}
	if r.Method != http.MethodGet {
		return ""
	}
	return safeRedirectPath(r.URL.RequestURI())
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(candidate, "//") {
		return "/"
	}
	return candidate
}

// browserRequestKey is an unexported context key type for browser request detection.
type browserRequestKey struct{}

// BrowserDetection records whether the request expects HTML or JSON.
func BrowserDetection() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), browserRequestKey{}, isBrowserRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IsBrowserRequest returns true if the current request is from a browser.
func IsBrowserRequest(r *http.Request) bool {
	if isBrowser, ok := r.Context().Value(browserRequestKey{}).(bool); ok {
		return isBrowser
	}
	return isBrowserRequest(r)
}

// isBrowserRequest treats /api/, /auth/status and /static/ as machine
// routes, htmx as browser, and otherwise follows the Accept header.
func isBrowserRequest(r *http.Request) bool {
	p := r.URL.Path
	if strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, "/static/") || p == "/auth/status" {
		return false
	}
	if IsHTMX(r) {
		return true
	}
	accept := r.Header.Get("Accept")
	if accept == "" {
		return true
	}
	return strings.Contains(accept, "text/html")
}

// clearCookie mirrors the attributes used when setting cookies so browsers
// match and delete them.
func clearCookie(w http.ResponseWriter, r *http.Request, domain, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}
