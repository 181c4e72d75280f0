// Package view renders the site's HTML pages from embedded templates.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
)

//go:embed templates
var templateFS embed.FS

const (
	layoutFile   = "templates/base.html"
	includesGlob = "templates/includes/*.html"
)

// PageRenderer renders pages through a set of templates. Each page is
// parsed together with the layout and the shared includes.
type PageRenderer struct {
	templates map[string]*template.Template
}

// NewPageRenderer parses every page under templates/. Page names are paths
// relative to that directory, e.g. "posts/index.html".
func NewPageRenderer() (*PageRenderer, error) {
	templates := make(map[string]*template.Template)

	err := fs.WalkDir(templateFS, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || p == layoutFile || path.Dir(p) == "templates/includes" || !strings.HasSuffix(p, ".html") {
			return nil
		}

		name := strings.TrimPrefix(p, "templates/")
		t, err := template.New(path.Base(layoutFile)).Funcs(Funcs()).ParseFS(templateFS, layoutFile, includesGlob, p)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		templates[name] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &PageRenderer{templates: templates}, nil
}

// RenderTemplate renders the page called name.
// It returns an error if the page is not present.
func (pr *PageRenderer) RenderTemplate(wr io.Writer, name string, data any) error {
	if t, ok := pr.templates[name]; ok {
		return t.ExecuteTemplate(wr, "base", data)
	}
	return fmt.Errorf("template is missing {%s}", name)
}

// Has reports whether a page called name exists.
func (pr *PageRenderer) Has(name string) bool {
	_, ok := pr.templates[name]
	return ok
}
