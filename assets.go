// Package console embeds the web frontend.
package console

import (
	"embed"
	"io/fs"
)

//go:embed all:frontend/static
var staticFS embed.FS

//go:embed all:frontend/templates
var templateFS embed.FS

// TemplateFS returns the HTML templates rooted at frontend/templates.
func TemplateFS() fs.FS { return mustSub(templateFS, "frontend/templates") }

// StaticFS returns the static assets rooted at frontend/static.
func StaticFS() fs.FS { return mustSub(staticFS, "frontend/static") }

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
