package httpx

import (
	"bytes"
	"errors"
	"html"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	corefuncs "github.com/ticketdesk/admin-console/internal/http/templates/core"
	"github.com/ticketdesk/admin-console/internal/http/ui/viewmodel"
)

const appTitle = "Ticketdesk"

// TemplateRenderer renders HTML templates for UI responses.
type TemplateRenderer struct {
	t      *template.Template
	logger *slog.Logger
}

// TemplateRendererConfig holds configuration for creating a TemplateRenderer.
type TemplateRendererConfig struct {
	TemplateFS fs.FS // required
	Logger     *slog.Logger
	Now        func() time.Time
}

// NewTemplateRenderer parses the layout, page and partial templates from cfg.TemplateFS.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	if cfg.TemplateFS == nil {
		return nil, errors.New("TemplateFS is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &TemplateRenderer{logger: logger.With("component", "renderer")}

	var t *template.Template
	funcs := corefuncs.Funcs(corefuncs.Deps{
		Template:           &t,
		ContentTemplateFor: ContentTemplateFor,
		Now:                cfg.Now,
	})
	t, err := template.New("root").Funcs(funcs).ParseFS(cfg.TemplateFS,
		"*.tmpl",
		"pages/*.tmpl",
		"partials/*.tmpl",
	)
	if err != nil {
		r.logger.Error("template parsing failed", slog.Any("error", err))
		return nil, err
	}
	r.t = t
	return r, nil
}

// RenderFull renders the full page (layout + page content).
func (r *TemplateRenderer) RenderFull(w http.ResponseWriter, status int, data any) error {
	return r.render(w, status, "layout", data)
}

// RenderPartial renders only the main content area of page, preceded by a
// <title> so htmx updates document.title on swap.
func (r *TemplateRenderer) RenderPartial(w http.ResponseWriter, status int, page string, data any) error {
	var prefix string
	if lp, ok := data.(viewmodel.LayoutProvider); ok && lp.LayoutData().Title != "" {
		prefix = "<title>" + html.EscapeString(lp.LayoutData().Title) + " · " + appTitle + "</title>"
	}
	return r.renderWith(w, status, ContentTemplateFor(page), data, prefix)
}

// RenderFragment renders a named partial on its own.
func (r *TemplateRenderer) RenderFragment(w http.ResponseWriter, status int, name string, data any) error {
	return r.render(w, status, name, data)
}

// RenderError renders the standalone error page.
func (r *TemplateRenderer) RenderError(w http.ResponseWriter, status int, data any) error {
	return r.render(w, status, "error-layout", data)
}

// render buffers the output so a failed execution never leaves a half-written page.
func (r *TemplateRenderer) render(w http.ResponseWriter, status int, name string, data any) error {
	return r.renderWith(w, status, name, data, "")
}

func (r *TemplateRenderer) renderWith(w http.ResponseWriter, status int, name string, data any, prefix string) error {
	var buf bytes.Buffer
	buf.WriteString(prefix)
	if err := r.t.ExecuteTemplate(&buf, name, data); err != nil {
		r.logger.Error("template execution failed", slog.String("template", name), slog.Any("error", err))
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		r.logger.Debug("failed to write rendered template", slog.String("template", name), slog.Any("error", err))
		return err
	}
	return nil
}
