package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	"github.com/ticketdesk/admin-console/internal/domain/model"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
	"github.com/ticketdesk/admin-console/internal/guard"
	"github.com/ticketdesk/admin-console/internal/http/ui/viewmodel"
	"github.com/ticketdesk/admin-console/internal/service"
)

// NotificationsService is the feed registry the pages read from.
type NotificationsService interface {
	Snapshot(ctx context.Context, sess domainauth.Session) service.FeedSnapshot
	Refresh(ctx context.Context, sess domainauth.Session) (service.FeedSnapshot, error)
	Release(userID int64)
}

// UsersService is the user management surface.
type UsersService interface {
	Overview(ctx context.Context, opts model.UserListOptions) (service.UsersOverview, error)
	Roles(ctx context.Context) ([]model.RoleInfo, error)
	Create(ctx context.Context, in model.NewUser) (model.ManagedUser, error)
	Approve(ctx context.Context, id int64) (model.ManagedUser, error)
	IssueBarcodeCard(ctx context.Context, userID int64) (model.BarcodeCard, error)
}

// Compile-time interface assertions.
var (
	_ AuthServiceInterface = (*service.AuthService)(nil)
	_ NotificationsService = (*service.NotificationService)(nil)
	_ UsersService         = (*service.UserService)(nil)
)

// UIHandlers serves browser-facing routes.
type UIHandlers struct {
	T             *TemplateRenderer
	Auth          *AuthHandlers
	Notifications NotificationsService
	Users         UsersService
	// Authorize attaches the session's access token to outgoing API calls.
	Authorize func(ctx context.Context, accessToken string) context.Context
	Logger    *slog.Logger
}

// logger returns the configured logger or falls back to slog.Default().
func (h *UIHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// apiContext is the request context carrying the caller's bearer token.
func (h *UIHandlers) apiContext(r *http.Request) context.Context {
	sess := SessionFromContext(r.Context())
	if h.Authorize == nil || sess.AccessToken == "" {
		return r.Context()
	}
	return h.Authorize(r.Context(), sess.AccessToken)
}

// signedOutByAPI handles an unauthorized answer from the ticketing API: the
// token is no longer valid, so the session ends and the client is sent to
// the login page. It reports whether it wrote the response.
func (h *UIHandlers) signedOutByAPI(w http.ResponseWriter, r *http.Request, err error) bool {
	if !apperrors.IsUnauthorized(err) {
		return false
	}
	h.logger().InfoContext(r.Context(), "ticketing API rejected the session; signing out", "path", r.URL.Path)
	if h.Auth != nil {
		h.Auth.endSession(w, r)
	}
	cookieDomain := ""
	if h.Auth != nil {
		cookieDomain = h.Auth.CookieDomain
	}
	denyAccess(w, r, cookieDomain, guard.LoginPath)
	return true
}

func (h *UIHandlers) render(w http.ResponseWriter, r *http.Request, status int, p *Page) {
	renderPage(w, r, h.T, status, p, h.logger())
}

// Root sends visitors to the dashboard; the guard takes it from there.
// GET /{$}.
func (h *UIHandlers) Root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, guard.DashboardPath, http.StatusSeeOther)
}

// NotFound answers unmatched routes: browsers get the error page, API
// callers get JSON.
func (h *UIHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	if !IsBrowserRequest(r) || h.T == nil {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: apperrors.NotFound("no such page")})
		return
	}
	data := errorView{Title: "Page not found", Error: "The page you asked for does not exist."}
	if err := h.T.RenderError(w, http.StatusNotFound, data); err != nil {
		logRenderError(w, r, err, h.logger())
	}
}

type errorView struct {
	Title string
	Error string
}

// dashboardView is what the dashboard shows about pending work.
type dashboardView struct {
	Feed   notificationView
	Recent []model.PendingApprovalItem
}

const dashboardRecent = 5

// Dashboard greets the user and summarises pending approvals.
// GET /dashboard.
func (h *UIHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	snap := h.Notifications.Snapshot(r.Context(), sess)
	if !snap.Running && h.signedOutByAPI(w, r, snap.Err) {
		return
	}

	view := dashboardView{Feed: newNotificationView(snap)}
	view.Recent = snap.Items
	if len(view.Recent) > dashboardRecent {
		view.Recent = view.Recent[:dashboardRecent]
	}
	p := NewPage(r, PageMeta{Title: "Dashboard", PageTitle: "Dashboard", CurrentPage: PageDashboard})
	p.Badge = view.Feed.badgePtr()
	p.Data = view
	h.render(w, r, http.StatusOK, p)
}

// Approvals lists every pending approval in the feed.
// GET /approvals.
func (h *UIHandlers) Approvals(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	snap := h.Notifications.Snapshot(r.Context(), sess)
	if !snap.Running && h.signedOutByAPI(w, r, snap.Err) {
		return
	}
	view := newNotificationView(snap)
	p := NewPage(r, PageMeta{Title: "Pending approvals", PageTitle: "Pending approvals", CurrentPage: PageApprovals})
	p.Badge = view.badgePtr()
	p.Data = view
	h.render(w, r, http.StatusOK, p)
}

// usersView backs the user management page.
type usersView struct {
	Users      []model.ManagedUser
	Roles      []model.RoleInfo
	Pagination viewmodel.Pagination
}

// UsersPage lists accounts with paging.
// GET /users?limit=&offset=.
func (h *UIHandlers) UsersPage(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, 25, 100)
	overview, err := h.Users.Overview(h.apiContext(r), model.UserListOptions{Limit: limit, Offset: offset})
	if h.signedOutByAPI(w, r, err) {
		return
	}
	p := NewPage(r, PageMeta{Title: "Users", PageTitle: "Users", CurrentPage: PageUsers})
	p.Badge = h.badgeFor(r)
	status := http.StatusOK
	if err != nil {
		h.logger().ErrorContext(r.Context(), "list users failed", "error", err)
		p.SetError(err)
		status, _ = StatusFor(err)
		if IsHTMX(r) {
			status = http.StatusOK
		}
	}
	p.Data = usersView{
		Users: overview.Page.Users,
		Roles: overview.Roles,
		Pagination: viewmodel.Paginate("/users", overview.Opts.Limit, overview.Opts.Offset,
			len(overview.Page.Users), overview.Page.Total),
	}
	h.render(w, r, status, p)
}

// userFormView backs the create-user form.
type userFormView struct {
	Form  model.NewUser
	Roles []model.RoleInfo
}

// NewUserForm renders an empty create-user form.
// GET /users/new.
func (h *UIHandlers) NewUserForm(w http.ResponseWriter, r *http.Request) {
	h.renderUserForm(w, r, model.NewUser{Role: domainauth.RoleUser}, nil)
}

func (h *UIHandlers) renderUserForm(w http.ResponseWriter, r *http.Request, form model.NewUser, formErr error) {
	roles, err := h.Users.Roles(h.apiContext(r))
	if h.signedOutByAPI(w, r, err) {
		return
	}
	if err != nil {
		h.logger().WarnContext(r.Context(), "load roles failed; falling back to built-in roles", "error", err)
		roles = builtinRoles()
	}

	p := NewPage(r, PageMeta{Title: "New user", PageTitle: "Create user", CurrentPage: PageUserForm})
	p.Badge = h.badgeFor(r)
	form.Password = ""
	p.Data = userFormView{Form: form, Roles: roles}
	status := http.StatusOK
	if formErr != nil {
		p.SetError(formErr)
		if !IsHTMX(r) {
			status, _ = StatusFor(formErr)
			if apperrors.IsValidation(formErr) {
				status = http.StatusUnprocessableEntity
			}
		}
	}
	h.render(w, r, status, p)
}

// CreateUser validates and submits the create-user form.
// POST /users.
func (h *UIHandlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderUserForm(w, r, model.NewUser{}, apperrors.Validation("Invalid form submission"))
		return
	}
	form := model.NewUser{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Email:     r.PostFormValue("email"),
		Password:  r.PostFormValue("password"),
		Role:      domainauth.Role(r.PostFormValue("role")),
	}
	created, err := h.Users.Create(h.apiContext(r), form)
	if err != nil {
		if h.signedOutByAPI(w, r, err) {
			return
		}
		if !apperrors.IsValidation(err) && !apperrors.IsConflict(err) {
			h.logger().ErrorContext(r.Context(), "create user failed", "error", err)
		}
		if apperrors.IsConflict(err) {
			err = apperrors.ValidationField("email", "A user with this email already exists")
		}
		h.renderUserForm(w, r, form, err)
		return
	}

	h.logger().InfoContext(r.Context(), "user created", "user_id", created.ID, "role", created.Role)
	if IsHTMX(r) {
		HTMX(w).Trigger("showToast", map[string]string{
			"message": "Created " + created.FullName(),
			"type":    "success",
		}).Redirect("/users")
		return
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// ApproveUser approves a pending account. htmx callers get the updated row.
// POST /users/{id}/approve.
func (h *UIHandlers) ApproveUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_id", Err: apperrors.Validation("invalid user id")})
		return
	}
	user, err := h.Users.Approve(h.apiContext(r), id)
	if err != nil {
		if h.signedOutByAPI(w, r, err) {
			return
		}
		h.logger().WarnContext(r.Context(), "approve user failed", "user_id", id, "error", err)
		if IsHTMX(r) {
			HTMX(w).Trigger("showToast", map[string]string{"message": userMessage(err), "type": "error"})
			w.Header().Set("Hx-Reswap", "none")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		WriteAppError(w, err)
		return
	}

	if IsHTMX(r) {
		SetHXTrigger(w, "showToast", map[string]string{"message": "Approved " + user.FullName(), "type": "success"})
		if err := h.T.RenderFragment(w, http.StatusOK, FragmentUser, user); err != nil {
			logRenderError(w, r, err, h.logger())
		}
		return
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// BarcodeCard issues a login barcode and renders it as a printable card.
// POST /users/{id}/barcode-card.
func (h *UIHandlers) BarcodeCard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_id", Err: apperrors.Validation("invalid user id")})
		return
	}
	card, err := h.Users.IssueBarcodeCard(h.apiContext(r), id)
	if h.signedOutByAPI(w, r, err) {
		return
	}
	p := NewPage(r, PageMeta{Title: "Barcode card", PageTitle: "Barcode card", CurrentPage: PageBarcodeCard})
	status := http.StatusOK
	if err != nil {
		h.logger().WarnContext(r.Context(), "issue barcode card failed", "user_id", id, "error", err)
		p.SetError(err)
		if !IsHTMX(r) {
			status, _ = StatusFor(err)
		}
	} else {
		h.logger().InfoContext(r.Context(), "barcode card issued", "user_id", id)
	}
	p.Data = card
	h.render(w, r, status, p)
}

// Roles lists the roles the API publishes.
// GET /roles.
func (h *UIHandlers) Roles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Users.Roles(h.apiContext(r))
	if h.signedOutByAPI(w, r, err) {
		return
	}
	p := NewPage(r, PageMeta{Title: "Roles", PageTitle: "Roles", CurrentPage: PageRoles})
	p.Badge = h.badgeFor(r)
	status := http.StatusOK
	if err != nil {
		h.logger().ErrorContext(r.Context(), "list roles failed", "error", err)
		p.SetError(err)
		if !IsHTMX(r) {
			status, _ = StatusFor(err)
		}
	}
	p.Data = roles
	h.render(w, r, status, p)
}

// badgeFor reads the feed without forcing a fetch, for pages that only show
// the header badge.
func (h *UIHandlers) badgeFor(r *http.Request) *viewmodel.Badge {
	if h.Notifications == nil {
		return nil
	}
	return newNotificationView(h.Notifications.Snapshot(r.Context(), SessionFromContext(r.Context()))).badgePtr()
}

func builtinRoles() []model.RoleInfo {
	out := make([]model.RoleInfo, 0, len(domainauth.Roles))
	for _, r := range domainauth.Roles {
		out = append(out, model.RoleInfo{Name: r})
	}
	return out
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	return id, err == nil && id > 0
}

// ParseLimitOffset parses common pagination params and clamps to sane bounds.
func ParseLimitOffset(r *http.Request, defLimit, maxLimit int) (int, int) {
	if maxLimit < 1 {
		maxLimit = 1
	}
	lim := parseIntQuery(r, "limit", defLimit)
	off := parseIntQuery(r, "offset", 0)
	lim = max(1, min(lim, maxLimit))
	off = max(0, off)
	return lim, off
}

// parseIntQuery returns the integer value of a query param or a default.
func parseIntQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func pollSeconds(d time.Duration) int {
	s := int(d / time.Second)
	if s < 1 {
		return 1
	}
	return s
}
