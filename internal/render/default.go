package render

import (
	"html/template"
	"time"

	"invoice-studio/internal/invoice"
)

// Default shares Clean's header but sets the invoice number beside the
// client block instead of below it.
type Default struct {
	tmpl  *template.Template
	clock Clock
}

func NewDefault(clock Clock) *Default {
	if clock == nil {
		clock = time.Now
	}
	return &Default{tmpl: parseLayout("default.gohtml"), clock: clock}
}

func (d *Default) Name() string { return "Default" }

func (d *Default) Render(rec invoice.Record, items []invoice.LineItem) (*Document, error) {
	return execute(d.tmpl, d.Name(), rec, items, d.clock())
}
