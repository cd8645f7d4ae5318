// Package core provides the template helper functions shared by every page.
package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/ticketdesk/admin-console/internal/http/ui/viewmodel"
	"github.com/ticketdesk/admin-console/internal/http/uiutil"
)

// Deps holds optional dependencies for constructing the core template func map.
type Deps struct {
	Template           **template.Template
	ContentTemplateFor func(string) string
	Now                func() time.Time
}

// Funcs returns the helper func map.
func Funcs(deps Deps) template.FuncMap {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return template.FuncMap{
		"sectionTmpl":   deps.ContentTemplateFor,
		"renderSection": renderSection(deps),
		"badgeLabel":    viewmodel.BadgeLabel,
		"friendlyTime":  uiutil.FormatFriendlyDateTime,
		"relativeTime":  func(t time.Time) string { return uiutil.FriendlyRelativeTime(t, now()) },
		"timeTag":       timeTag,
		"truncateText":  uiutil.TruncateWithEllipsis,
		"initials":      uiutil.Initials,
		"add":           func(a, b int) int { return a + b },
		"toJSON":        toJSON,
	}
}

func renderSection(deps Deps) func(string, any) (template.HTML, error) {
	return func(page string, data any) (template.HTML, error) {
		if deps.Template == nil || *deps.Template == nil {
			return "", errors.New("template not initialized")
		}
		var buf bytes.Buffer
		if err := (*deps.Template).ExecuteTemplate(&buf, deps.ContentTemplateFor(page), data); err != nil {
			return "", err
		}
		// #nosec G203 - output of our own html/template execution, already escaped.
		return template.HTML(buf.String()), nil
	}
}

func timeTag(t time.Time) template.HTML {
	if t.IsZero() {
		return ""
	}
	// #nosec G203 - constructed from escaped values only
	return template.HTML(fmt.Sprintf(
		"<time datetime=\"%s\" title=\"%s\">%s</time>",
		t.UTC().Format(time.RFC3339),
		template.HTMLEscapeString(t.Local().Format(time.RFC1123)),
		template.HTMLEscapeString(uiutil.FormatFriendlyDateTime(t)),
	))
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
