package api

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer holds one parsed template set per page, each combined with base.html.
type Renderer struct {
	templates map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	return newRenderer(templateFS)
}

func newRenderer(fsys fs.FS) (*Renderer, error) {
	pages, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{templates: make(map[string]*template.Template)}
	for _, page := range pages {
		name := page[len("templates/"):]
		if name == "base.html" {
			continue
		}
		tmpl, err := template.New(name).Funcs(funcMap).ParseFS(fsys, "templates/base.html", page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}
	return r, nil
}

// Render writes the named page with status.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data any) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		return fmt.Errorf("execute template %s: %w", name, err)
	}
	return nil
}

var funcMap = template.FuncMap{
	"markdown":   renderMarkdown,
	"formatTime": formatTime,
}

var sanitizer = bluemonday.UGCPolicy()

// renderMarkdown converts note text to sanitized HTML.
func renderMarkdown(s string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(s))

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank,
	})
	out := markdown.Render(doc, renderer)

	return template.HTML(sanitizer.SanitizeBytes(out))
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}
