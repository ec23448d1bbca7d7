package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"invoice-studio/internal/invoice"
)

//go:embed templates/*.gohtml
var layouts embed.FS

// ContentTypeHTML is the content type of every Document produced here.
const ContentTypeHTML = "text/html; charset=utf-8"

// Document is a self-contained rendered invoice: inline styles, images
// embedded as data URLs, nothing fetched at display time.
type Document struct {
	Template    string
	ContentType string
	HTML        string
	View        *View
}

// Template renders a finalized invoice into a Document. Implementations are
// stateless and safe for concurrent use.
type Template interface {
	Name() string
	Render(rec invoice.Record, items []invoice.LineItem) (*Document, error)
}

// Clock supplies the "date signed" stamp.
type Clock func() time.Time

// Registry maps template names to renderers.
type Registry struct {
	templates map[string]Template
	order     []string
}

// NewRegistry registers ts in order. Names must be unique.
func NewRegistry(ts ...Template) (*Registry, error) {
	r := &Registry{templates: make(map[string]Template, len(ts))}
	for _, t := range ts {
		name := t.Name()
		if _, dup := r.templates[name]; dup {
			return nil, fmt.Errorf("template %q registered twice", name)
		}
		r.templates[name] = t
		r.order = append(r.order, name)
	}
	return r, nil
}

// DefaultRegistry returns the four built-in layouts. A nil clock uses time.Now.
func DefaultRegistry(clock Clock) *Registry {
	r, err := NewRegistry(
		NewClassic(clock),
		NewSharp(clock),
		NewClean(clock),
		NewDefault(clock),
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the named template. An unknown name is an
// invoice.ErrTemplateNotFound error; there is no fallback.
func (r *Registry) Lookup(name string) (Template, error) {
	t, ok := r.templates[name]
	if !ok {
		return nil, &invoice.ValidationError{Field: "template", Err: invoice.ErrTemplateNotFound, Details: fmt.Sprintf("%q", name)}
	}
	return t, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// Names lists the registered templates in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Render renders rec with the template it names.
func (r *Registry) Render(rec invoice.Record) (*Document, error) {
	t, err := r.Lookup(rec.Template)
	if err != nil {
		return nil, err
	}
	return t.Render(rec, rec.Items)
}

func parseLayout(file string) *template.Template {
	return template.Must(template.New(file).ParseFS(layouts, "templates/"+file))
}

// execute builds the view and runs a parsed layout over it.
func execute(tmpl *template.Template, name string, rec invoice.Record, items []invoice.LineItem, signedAt time.Time) (*Document, error) {
	view, err := BuildView(rec, items, signedAt)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("failed to render %s template: %w", name, err)
	}
	return &Document{
		Template:    name,
		ContentType: ContentTypeHTML,
		HTML:        buf.String(),
		View:        view,
	}, nil
}
