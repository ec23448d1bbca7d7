package render

import (
	"html/template"
	"strings"
	"time"

	"invoice-studio/internal/invoice"
)

// Placeholders shown when a name is blank.
const (
	fallbackSender      = "Company Name"
	fallbackClient      = "Client Name"
	fallbackDescription = "Item"
	fallbackAccent      = "#dddddd"
)

// Field is a labelled contact line such as "Email: a@b.c".
type Field struct {
	Label string
	Value string
}

// PartyView is a contact block with only its non-empty lines.
type PartyView struct {
	Name  string
	Lines []Field
}

// ItemView is one table row with every money value already formatted.
type ItemView struct {
	Description string
	Details     string
	Rate        string
	Quantity    string
	Amount      string
	Taxable     bool
}

// TotalRow is an optional line in the totals block.
type TotalRow struct {
	Label  string
	Amount string
}

// View is the logical content of a rendered invoice. Every template renders
// the same View; only arrangement and styling differ. Non-HTML backends lay
// out the View directly.
type View struct {
	Title         string
	InvoiceNumber string
	Date          string
	Terms         string
	Currency      string
	Accent        template.CSS
	Logo          template.URL
	From          PartyView
	BillTo        PartyView
	Items         []ItemView
	Subtotal      string
	Discount      *TotalRow // nil unless discount amount > 0
	Tax           *TotalRow // nil unless tax amount > 0
	Total         string
	BalanceDue    string
	Notes         string
	Signature     template.URL
	SignedOn      string
}

// BuildView formats rec and items for display. Totals are read from
// rec.Totals as computed by the totals engine; nothing is recomputed here.
func BuildView(rec invoice.Record, items []invoice.LineItem, signedAt time.Time) (*View, error) {
	cur, err := invoice.LookupCurrency(rec.Currency)
	if err != nil {
		return nil, err
	}
	date, err := invoice.FormatDate(rec.Date)
	if err != nil {
		return nil, err
	}

	v := &View{
		Title:         rec.Title,
		InvoiceNumber: rec.InvoiceNumber,
		Date:          date,
		Terms:         rec.Terms,
		Currency:      cur.Code,
		Accent:        accent(rec.Color),
		Logo:          embedded(rec.Logo),
		From: party(rec.From.Name, fallbackSender,
			Field{"Address", rec.From.Address},
			Field{"Email", rec.From.Email},
			Field{"Phone", rec.From.Phone},
			Field{"Business No", rec.BusinessNumber},
		),
		BillTo: party(rec.BillTo.Name, fallbackClient,
			Field{"Address", rec.BillTo.Address},
			Field{"Email", rec.BillTo.Email},
			Field{"Phone", rec.BillTo.Phone},
			Field{"Mobile", rec.BillTo.Mobile},
			Field{"Fax", rec.BillTo.Fax},
		),
		Subtotal:   cur.Format(rec.Totals.Subtotal),
		Total:      cur.Format(rec.Totals.Total),
		BalanceDue: cur.Format(rec.Totals.BalanceDue),
		Notes:      strings.TrimSpace(rec.Notes),
		Signature:  embedded(rec.Signature),
	}

	v.Items = make([]ItemView, 0, len(items))
	for _, it := range items {
		desc := strings.TrimSpace(it.Description)
		if desc == "" {
			desc = fallbackDescription
		}
		v.Items = append(v.Items, ItemView{
			Description: desc,
			Details:     strings.TrimSpace(it.AdditionalDetails),
			Rate:        cur.Format(it.Rate),
			Quantity:    it.Quantity.String(),
			Amount:      cur.Format(it.Amount),
			Taxable:     it.Taxable,
		})
	}

	if rec.Totals.DiscountAmount.IsPositive() {
		label := "Discount"
		if rec.Discount.Type == invoice.DiscountPercentage {
			label += " (" + rec.Discount.Value.String() + "%)"
		}
		v.Discount = &TotalRow{Label: label, Amount: "-" + cur.Format(rec.Totals.DiscountAmount)}
	}
	if rec.Totals.TaxAmount.IsPositive() {
		v.Tax = &TotalRow{
			Label:  rec.Tax.Type + " (" + rec.Tax.Rate.String() + "%)",
			Amount: cur.Format(rec.Totals.TaxAmount),
		}
	}
	if v.Signature != "" {
		v.SignedOn = invoice.FormatSignedDate(signedAt)
	}
	return v, nil
}

func party(name, fallback string, fields ...Field) PartyView {
	p := PartyView{Name: strings.TrimSpace(name)}
	if p.Name == "" {
		p.Name = fallback
	}
	for _, f := range fields {
		if f.Value = strings.TrimSpace(f.Value); f.Value != "" {
			p.Lines = append(p.Lines, f)
		}
	}
	return p
}

// accent returns a CSS-safe color. Anything that is not a hex color falls
// back to the neutral border gray.
func accent(color string) template.CSS {
	if !invoice.ValidColor(color) {
		return fallbackAccent
	}
	return template.CSS(color)
}

// embedded marks data:image payloads as safe for src attributes and drops
// anything else, so a document never references external resources.
func embedded(src string) template.URL {
	if !strings.HasPrefix(src, "data:image/") {
		return ""
	}
	return template.URL(src)
}
