package render

import (
	"html/template"
	"time"

	"invoice-studio/internal/invoice"
)

// Classic puts the sender block left with the logo on the right, the
// date/terms/balance block beside the client, and the invoice number below.
type Classic struct {
	tmpl  *template.Template
	clock Clock
}

func NewClassic(clock Clock) *Classic {
	if clock == nil {
		clock = time.Now
	}
	return &Classic{tmpl: parseLayout("classic.gohtml"), clock: clock}
}

func (c *Classic) Name() string { return "Classic" }

func (c *Classic) Render(rec invoice.Record, items []invoice.LineItem) (*Document, error) {
	return execute(c.tmpl, c.Name(), rec, items, c.clock())
}
