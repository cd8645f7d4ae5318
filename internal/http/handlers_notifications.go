package httpx

import (
	"net/http"
	"net/url"
	"time"

	"github.com/ticketdesk/admin-console/internal/domain/model"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
	"github.com/ticketdesk/admin-console/internal/http/ui/viewmodel"
	"github.com/ticketdesk/admin-console/internal/service"
)

// notificationView is a feed snapshot shaped for templates.
type notificationView struct {
	Running   bool
	Loading   bool
	Items     []model.PendingApprovalItem
	Badge     viewmodel.Badge
	Error     string
	UpdatedAt time.Time
}

func newNotificationView(snap service.FeedSnapshot) notificationView {
	v := notificationView{
		Running:   snap.Running,
		Loading:   snap.Loading,
		Items:     snap.Items,
		Badge:     viewmodel.NewBadge(snap.Count()),
		UpdatedAt: snap.UpdatedAt,
	}
	v.Badge.Loading = snap.Loading
	v.Badge.PollSeconds = pollSeconds(snap.PollInterval)
	if snap.Err != nil {
		v.Error = userMessage(snap.Err)
		v.Badge.Stale = true
		v.Badge.Error = v.Error
	}
	return v
}

// badgePtr is nil for a feed that is not running so the header omits the
// badge and its polling.
func (v notificationView) badgePtr() *viewmodel.Badge {
	if !v.Running {
		return nil
	}
	b := v.Badge
	return &b
}

// NotificationBadge renders the header badge. htmx polls it on the feed interval.
// GET /notifications/badge.
func (h *UIHandlers) NotificationBadge(w http.ResponseWriter, r *http.Request) {
	snap := h.Notifications.Snapshot(r.Context(), SessionFromContext(r.Context()))
	if !snap.Running && h.signedOutByAPI(w, r, snap.Err) {
		return
	}
	h.fragment(w, r, FragmentBadge, newNotificationView(snap).badgePtr())
}

// NotificationPanel renders the dropdown list of pending approvals.
// GET /notifications/panel.
func (h *UIHandlers) NotificationPanel(w http.ResponseWriter, r *http.Request) {
	snap := h.Notifications.Snapshot(r.Context(), SessionFromContext(r.Context()))
	if !snap.Running && h.signedOutByAPI(w, r, snap.Err) {
		return
	}
	h.fragment(w, r, FragmentPanel, newNotificationView(snap))
}

// RefreshNotifications fetches now and re-renders the panel. The badge
// listens for the notifications:refreshed event.
// POST /notifications/refresh.
func (h *UIHandlers) RefreshNotifications(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Notifications.Refresh(r.Context(), SessionFromContext(r.Context()))
	if h.signedOutByAPI(w, r, err) {
		return
	}
	if err != nil {
		h.logger().WarnContext(r.Context(), "manual refresh failed", "error", err)
	}
	SetHXTrigger(w, "notifications:refreshed", map[string]int{"count": snap.Count()})
	if !IsHTMX(r) {
		http.Redirect(w, r, refererPath(r), http.StatusSeeOther)
		return
	}
	h.fragment(w, r, FragmentPanel, newNotificationView(snap))
}

// refererPath is the same-origin path of the Referer, or /approvals.
func refererPath(r *http.Request) string {
	u, err := url.Parse(r.Referer())
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return "/approvals"
	}
	if p := safeRedirectPath(u.RequestURI()); p != "/" {
		return p
	}
	return "/approvals"
}

func (h *UIHandlers) fragment(w http.ResponseWriter, r *http.Request, name string, data any) {
	if err := h.T.RenderFragment(w, http.StatusOK, name, data); err != nil {
		logRenderError(w, r, err, h.logger())
	}
}

// notificationsJSON is the machine form of a feed snapshot.
type notificationsJSON struct {
	Running             bool                        `json:"running"`
	Loading             bool                        `json:"loading"`
	Count               int                         `json:"count"`
	Label               string                      `json:"label"`
	Items               []model.PendingApprovalItem `json:"items"`
	Error               string                      `json:"error,omitempty"`
	ErrorCode           string                      `json:"error_code,omitempty"`
	ConsecutiveFailures int                         `json:"consecutive_failures"`
	UpdatedAt           *time.Time                  `json:"updated_at,omitempty"`
	PollIntervalSeconds int                         `json:"poll_interval_seconds"`
}

func toNotificationsJSON(snap service.FeedSnapshot) notificationsJSON {
	out := notificationsJSON{
		Running:             snap.Running,
		Loading:             snap.Loading,
		Count:               snap.Count(),
		Label:               viewmodel.BadgeLabel(snap.Count()),
		Items:               snap.Items,
		ConsecutiveFailures: snap.ConsecutiveFailures,
		PollIntervalSeconds: int(snap.PollInterval / time.Second),
	}
	if out.Items == nil {
		out.Items = []model.PendingApprovalItem{}
	}
	if !snap.UpdatedAt.IsZero() {
		t := snap.UpdatedAt
		out.UpdatedAt = &t
	}
	if snap.Err != nil {
		out.Error = userMessage(snap.Err)
		_, out.ErrorCode = StatusFor(snap.Err)
	}
	return out
}

// NotificationsAPI returns the feed state as JSON.
// GET /api/notifications.
func (h *UIHandlers) NotificationsAPI(w http.ResponseWriter, r *http.Request) {
	snap := h.Notifications.Snapshot(r.Context(), SessionFromContext(r.Context()))
	if !snap.Running && apperrors.IsUnauthorized(snap.Err) {
		h.signedOutByAPI(w, r, snap.Err)
		return
	}
	WriteJSON(w, http.StatusOK, toNotificationsJSON(snap))
}

// RefreshNotificationsAPI fetches now and returns the resulting state. A
// failed fetch still answers 200 with the stale items and the error.
// POST /api/notifications/refresh.
func (h *UIHandlers) RefreshNotificationsAPI(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Notifications.Refresh(r.Context(), SessionFromContext(r.Context()))
	if h.signedOutByAPI(w, r, err) {
		return
	}
	WriteJSON(w, http.StatusOK, toNotificationsJSON(snap))
}
