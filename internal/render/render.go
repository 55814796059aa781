// Package render holds the server-side HTML templates for the event
// detail page and implements echo's Renderer on top of them.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templateFS embed.FS

type Renderer struct {
	templates *template.Template
}

func New() (*Renderer, error) {
	t := template.New("").Funcs(template.FuncMap{
		"datetime": func(ts time.Time) string {
			if ts.IsZero() {
				return ""
			}
			return ts.UTC().Format("2006-01-02 15:04:05")
		},
		"join": joinComma,
	})

	t, err := t.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Renderer{templates: t}, nil
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

func joinComma(items []string) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ", "
		}
		out += item
	}
	return out
}
