package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templatesFS embed.FS

type HTMLRenderer struct {
	tmpl *template.Template
}

func NewHTMLRenderer() (*HTMLRenderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &HTMLRenderer{
		tmpl: tmpl,
	}, nil
}

func (r *HTMLRenderer) Render(w io.Writer, page Page) error {
	if err := r.tmpl.ExecuteTemplate(w, "layout", page); err != nil {
		return fmt.Errorf("execute template [%s]: %w", page.State, err)
	}
	return nil
}
