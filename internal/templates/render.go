// Package templates handles HTML fragment rendering for markers, panels and
// Datastar SSE responses.
package templates

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"strconv"
)

//go:embed fragments/*.html
var fragments embed.FS

// FragmentsFS exposes the embedded fragment files.
func FragmentsFS() fs.FS {
	sub, err := fs.Sub(fragments, "fragments")
	if err != nil {
		panic(err)
	}
	return sub
}

// funcMap provides the fragment template functions.
var funcMap = template.FuncMap{
	// coord formats a latitude or longitude for display
	"coord": func(v float64) string {
		return strconv.FormatFloat(v, 'f', 5, 64)
	},
}

// Renderer manages HTML fragment templates.
type Renderer struct {
	templates *template.Template
}

// New parses every *.html file in fsys.
func New(fsys fs.FS) (*Renderer, error) {
	tmpl, err := parse(fsys)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

// Default returns a renderer over the embedded fragments.
func Default() (*Renderer, error) {
	return New(FragmentsFS())
}

// MustDefault is Default that panics on a parse error. The embedded
// fragments are compiled in, so an error here is a build defect.
func MustDefault() *Renderer {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	return r.templates.ExecuteTemplate(buf, name, data)
}

func parse(fsys fs.FS) (*template.Template, error) {
	return template.New("").Funcs(funcMap).ParseFS(fsys, "*.html")
}
