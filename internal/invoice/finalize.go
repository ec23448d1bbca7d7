package invoice

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Defaults applied by Finalize when a field is left blank.
const (
	DefaultTitle    = "Invoice"
	DefaultTerms    = "On Receipt"
	DefaultTemplate = "Classic"
	DefaultCurrency = "USD"
	DefaultColor    = "#ffffffff"

	MaxDescriptionLength = 500
)

var hexColor = regexp.MustCompile(`^#([0-9A-Fa-f]{3}|[0-9A-Fa-f]{4}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{8})$`)

// TemplateSet answers whether a template name is registered.
type TemplateSet interface {
	Has(name string) bool
}

// ValidColor reports whether s is a CSS hex color (#rgb, #rgba, #rrggbb, #rrggbbaa).
func ValidColor(s string) bool {
	return hexColor.MatchString(s)
}

// Finalize validates a draft and recomputes every derived field from scratch:
// item amounts, clamped discount and tax values, and totals. Only finalized
// records may be persisted or rendered. The input record is not modified.
func Finalize(rec Record, templates TemplateSet) (Record, error) {
	out := rec
	out.Items = make([]LineItem, len(rec.Items))
	copy(out.Items, rec.Items)

	normalize(&out)

	if err := validate(&out, templates); err != nil {
		return Record{}, err
	}

	discountType, err := ParseDiscountType(string(out.Discount.Type))
	if err != nil {
		return Record{}, err
	}
	out.Discount.Type = discountType

	for i := range out.Items {
		out.Items[i].Amount = out.Items[i].Rate.Mul(out.Items[i].Quantity)
	}

	totals, err := ComputeTotals(out.Items, out.Discount, out.Tax)
	if err != nil {
		return Record{}, err
	}

	// Store the clamped discount and tax inputs so the record is a fixed
	// point: finalizing it again yields the same values.
	switch discountType {
	case DiscountPercentage:
		out.Discount.Value = clamp(out.Discount.Value, decimal.Zero, hundred)
	case DiscountFixed:
		out.Discount.Value = clamp(out.Discount.Value, decimal.Zero, totals.Subtotal)
	default:
		out.Discount.Value = decimal.Zero
	}
	out.Tax.Rate = clamp(out.Tax.Rate, decimal.Zero, hundred)

	out.Totals = totals
	return out, nil
}

func normalize(r *Record) {
	r.Template = strings.TrimSpace(r.Template)
	r.Title = strings.TrimSpace(r.Title)
	r.Terms = strings.TrimSpace(r.Terms)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.Color = strings.TrimSpace(r.Color)
	r.Date = strings.TrimSpace(r.Date)
	r.InvoiceNumber = strings.TrimSpace(r.InvoiceNumber)
	r.From.Name = strings.TrimSpace(r.From.Name)
	r.BillTo.Name = strings.TrimSpace(r.BillTo.Name)
	r.Tax.Type = strings.TrimSpace(r.Tax.Type)

	if r.Template == "" {
		r.Template = DefaultTemplate
	}
	if r.Title == "" {
		r.Title = DefaultTitle
	}
	if r.Terms == "" {
		r.Terms = DefaultTerms
	}
	if r.Currency == "" {
		r.Currency = DefaultCurrency
	}
	if r.Color == "" {
		r.Color = DefaultColor
	}
	if r.Tax.Type == "" {
		r.Tax.Type = TaxNone
	}
	for i := range r.Items {
		r.Items[i].Description = strings.TrimSpace(r.Items[i].Description)
		r.Items[i].AdditionalDetails = strings.TrimSpace(r.Items[i].AdditionalDetails)
	}
}

func validate(r *Record, templates TemplateSet) error {
	if len(r.Items) == 0 {
		return invalid("items", ErrNoItems, "")
	}
	if err := CheckAmounts(r.Items, r.Discount, r.Tax); err != nil {
		return err
	}
	for i, it := range r.Items {
		field := fmt.Sprintf("items[%d]", i)
		switch {
		case it.Description == "":
			return invalid(field+".description", ErrInvalidItem, "description is required")
		case utf8.RuneCountInString(it.Description) > MaxDescriptionLength:
			return invalid(field+".description", ErrInvalidItem, "longer than %d characters", MaxDescriptionLength)
		case it.Rate.IsNegative():
			return invalid(field+".rate", ErrInvalidItem, "rate must not be negative")
		case !it.Quantity.IsPositive():
			return invalid(field+".quantity", ErrInvalidItem, "quantity must be positive")
		}
	}

	if r.From.Name == "" {
		return invalid("from.name", ErrMissingField, "business name is required")
	}
	if r.BillTo.Name == "" {
		return invalid("bill_to.name", ErrMissingField, "client name is required")
	}
	if _, err := ParseDate(r.Date); err != nil {
		return err
	}
	if _, err := LookupCurrency(r.Currency); err != nil {
		return err
	}
	if !ValidColor(r.Color) {
		return invalid("color", ErrInvalidColor, "%q is not a hex color", r.Color)
	}
	if templates == nil || !templates.Has(r.Template) {
		return invalid("template", ErrTemplateNotFound, "%q", r.Template)
	}
	if !ValidImage(r.Logo) {
		return invalid("logo", ErrInvalidImage, "")
	}
	if !ValidImage(r.Signature) {
		return invalid("signature", ErrInvalidImage, "")
	}
	return nil
}

// ValidImage accepts an empty value or a data:image/... URL.
func ValidImage(s string) bool {
	return s == "" || strings.HasPrefix(s, "data:image/")
}
