package render

import (
	"html/template"
	"time"

	"invoice-studio/internal/invoice"
)

// Clean keeps logo, sender and the date/terms/balance block together in the
// header; the client block stands alone beneath it.
type Clean struct {
	tmpl  *template.Template
	clock Clock
}

func NewClean(clock Clock) *Clean {
	if clock == nil {
		clock = time.Now
	}
	return &Clean{tmpl: parseLayout("clean.gohtml"), clock: clock}
}

func (c *Clean) Name() string { return "Clean" }

func (c *Clean) Render(rec invoice.Record, items []invoice.LineItem) (*Document, error) {
	return execute(c.tmpl, c.Name(), rec, items, c.clock())
}
