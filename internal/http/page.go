package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/ticketdesk/admin-console/internal/domain/auth"
	apperrors "github.com/ticketdesk/admin-console/internal/errors"
	"github.com/ticketdesk/admin-console/internal/http/ui/viewmodel"
)

const errMsgGeneric = "Something went wrong talking to the ticketing service. Please try again."

// PageMeta contains metadata for page rendering.
type PageMeta struct {
	Title       string
	PageTitle   string
	CurrentPage string
}

// Page is the data every page template receives: the shared layout plus
// page-specific Data and form feedback.
type Page struct {
	viewmodel.Layout
	Data        any
	Error       string
	Flash       string
	FieldErrors map[string]string
}

// LayoutData implements viewmodel.LayoutProvider.
func (p *Page) LayoutData() *viewmodel.Layout { return &p.Layout }

// NewPage builds the layout from the request's session and CSRF token.
func NewPage(r *http.Request, meta PageMeta) *Page {
	p := &Page{
		Layout: viewmodel.Layout{
			Title:       meta.Title,
			PageTitle:   meta.PageTitle,
			CurrentPage: meta.CurrentPage,
			CSRFToken:   GetCSRFToken(r),
		},
		FieldErrors: map[string]string{},
	}
	if u, ok := signedInUser(r.Context()); ok {
		p.IsAuthenticated = true
		p.IsAdmin = u.Role.Matches(domainauth.RoleAdmin)
		p.User = &viewmodel.User{
			ID:          u.ID,
			DisplayName: u.DisplayName(),
			Email:       u.Email,
			Role:        string(u.Role),
			RoleLabel:   u.Role.Label(),
		}
	}
	return p
}

// SetError records err for display. Validation errors tied to a field go
// next to that field; internal errors are replaced by a generic message.
func (p *Page) SetError(err error) {
	if err == nil {
		return
	}
	if field := apperrors.GetField(err); field != "" {
		p.FieldErrors[field] = userMessage(err)
		if p.Error == "" {
			p.Error = "Please fix the errors below."
		}
		return
	}
	p.Error = userMessage(err)
}

// userMessage is the AppError message for client-facing codes, otherwise a
// generic line that leaks nothing about the backend.
func userMessage(err error) string {
	status, _ := StatusFor(err)
	if status >= http.StatusInternalServerError {
		return errMsgGeneric
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// renderPage renders the whole document for normal loads and only the
// content section (plus the document title) for htmx swaps.
func renderPage(w http.ResponseWriter, r *http.Request, t *TemplateRenderer, status int, p *Page, logger *slog.Logger) {
	if t == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	if !WantsPartial(r) {
		if err := t.RenderFull(w, status, p); err != nil {
			logRenderError(w, r, err, logger)
		}
		return
	}
	SetHXTrigger(w, "nav:activate", map[string]string{"page": p.CurrentPage})
	if err := t.RenderPartial(w, status, p.CurrentPage, p); err != nil {
		logRenderError(w, r, err, logger)
	}
}

func logRenderError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	logger.ErrorContext(r.Context(), "template rendering failed",
		"error", err,
		"path", r.URL.Path,
		"method", r.Method,
	)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
