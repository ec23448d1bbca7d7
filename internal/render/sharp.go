package render

import (
	"html/template"
	"time"

	"invoice-studio/internal/invoice"
)

// Sharp leads the header with the logo, followed by the sender block, and
// uses a dark table header.
type Sharp struct {
	tmpl  *template.Template
	clock Clock
}

func NewSharp(clock Clock) *Sharp {
	if clock == nil {
		clock = time.Now
	}
	return &Sharp{tmpl: parseLayout("sharp.gohtml"), clock: clock}
}

func (s *Sharp) Name() string { return "Sharp" }

func (s *Sharp) Render(rec invoice.Record, items []invoice.LineItem) (*Document, error) {
	return execute(s.tmpl, s.Name(), rec, items, s.clock())
}
