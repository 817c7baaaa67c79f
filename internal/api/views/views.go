// Package views holds the embedded HTML pages and static assets.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/lewas-lab/chatbot/internal/chat"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pages = []string{"home", "chat"}

// Engine renders the embedded pages and satisfies fiber.Views.
type Engine struct {
	templates map[string]*template.Template
}

func New() *Engine {
	return &Engine{templates: make(map[string]*template.Template)}
}

func (e *Engine) Load() error {
	funcs := template.FuncMap{
		"details": chat.FormatDetail,
	}

	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+page+".html",
		)
		if err != nil {
			return fmt.Errorf("failed to parse %s page: %w", page, err)
		}
		e.templates[page] = tmpl
	}
	return nil
}

// Render executes page inside the shared layout. Layout names are ignored.
func (e *Engine) Render(w io.Writer, page string, binding interface{}, _ ...string) error {
	tmpl, ok := e.templates[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	return tmpl.ExecuteTemplate(w, "layout", binding)
}

// Static serves the stylesheet and script under /static.
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
