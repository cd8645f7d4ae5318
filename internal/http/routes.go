package httpx

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth          AuthServiceInterface // required
	Notifications NotificationsService // required
	Users         UsersService         // required
	// Authorize attaches a session's access token to API calls made on its behalf.
	Authorize func(ctx context.Context, accessToken string) context.Context

	TemplateFS fs.FS // required
	StaticFS   fs.FS
	Health     map[string]HealthChecker

	CookieDomain string
	Logger       *slog.Logger
	Now          func() time.Time
}

// NewRouter wires handlers and middleware. The chain, outermost first, is
// Recover, Logging, CSRF, BrowserDetection and LoadSession.
func NewRouter(services RouterServices) (http.Handler, error) {
	switch {
	case services.Auth == nil:
		return nil, errors.New("httpx: auth service is required")
	case services.Notifications == nil:
		return nil, errors.New("httpx: notification service is required")
	case services.Users == nil:
		return nil, errors.New("httpx: user service is required")
	}
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "http")

	renderer, err := NewTemplateRenderer(TemplateRendererConfig{
		TemplateFS: services.TemplateFS,
		Logger:     logger,
		Now:        services.Now,
	})
	if err != nil {
		return nil, err
	}

	authHandlers := &AuthHandlers{
		Svc:          services.Auth,
		Feeds:        services.Notifications,
		T:            renderer,
		CookieDomain: services.CookieDomain,
		Logger:       logger,
		Now:          services.Now,
	}
	ui := &UIHandlers{
		T:             renderer,
		Auth:          authHandlers,
		Notifications: services.Notifications,
		Users:         services.Users,
		Authorize:     services.Authorize,
		Logger:        logger,
	}

	mux := http.NewServeMux()
	registerAuthRoutes(mux, authHandlers)
	registerUIRoutes(mux, ui, services.CookieDomain)

	health := &HealthHandler{Checks: services.Health}
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)
	if services.StaticFS != nil {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(services.StaticFS)))
	}

	var h http.Handler = mux
	h = LoadSession(services.Auth, services.CookieDomain, logger)(h)
	h = BrowserDetection()(h)
	h = CSRFProtection(CSRFConfig{CookieDomain: services.CookieDomain})(h)
	h = Logging(logger)(h)
	h = Recover(logger)(h)
	return h, nil
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /login", h.LoginPage)
	mux.HandleFunc("POST /login", h.PasswordLogin)
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
}

func registerUIRoutes(mux *http.ServeMux, h *UIHandlers, cookieDomain string) {
	signedIn := RequireAuth(cookieDomain)
	admin := RequireRole(cookieDomain, domainauth.RoleAdmin)
	route := func(pattern string, mw func(http.Handler) http.Handler, fn http.HandlerFunc) {
		mux.Handle(pattern, mw(fn))
	}

	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("/", h.NotFound)

	route("GET /dashboard", signedIn, h.Dashboard)
	route("GET /approvals", signedIn, h.Approvals)
	route("GET /notifications/badge", signedIn, h.NotificationBadge)
	route("GET /notifications/panel", signedIn, h.NotificationPanel)
	route("POST /notifications/refresh", signedIn, h.RefreshNotifications)
	route("GET /api/notifications", signedIn, h.NotificationsAPI)
	route("POST /api/notifications/refresh", signedIn, h.RefreshNotificationsAPI)

	route("GET /users", admin, h.UsersPage)
	route("GET /users/new", admin, h.NewUserForm)
	route("POST /users", admin, h.CreateUser)
	route("POST /users/{id}/approve", admin, h.ApproveUser)
	route("POST /users/{id}/barcode-card", admin, h.BarcodeCard)
	route("GET /roles", admin, h.Roles)
}
