package invoice

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType is the closed set of discount modes.
type DiscountType string

const (
	DiscountNone       DiscountType = "None"
	DiscountPercentage DiscountType = "Percentage"
	DiscountFixed      DiscountType = "Fixed Amount"
)

// ParseDiscountType accepts the canonical labels case-insensitively, plus the
// "FixedAmount" spelling. An empty string means no discount.
func ParseDiscountType(s string) (DiscountType, error) {
	switch strings.ToLower(strings.Join(strings.Fields(s), " ")) {
	case "", "none":
		return DiscountNone, nil
	case "percentage", "percent":
		return DiscountPercentage, nil
	case "fixed amount", "fixedamount", "fixed":
		return DiscountFixed, nil
	}
	return "", invalid("discount.type", ErrInvalidDiscount, "unknown discount type %q", s)
}

// TaxNone is the label that disables tax.
const TaxNone = "None"

// TaxTypes lists the labels offered by the invoice form. Any other non-empty
// label is accepted as a custom tax name.
var TaxTypes = []string{TaxNone, "VAT", "GST", "Sales Tax", "Custom"}

// DiscountConfig describes how a discount applies to the subtotal.
type DiscountConfig struct {
	Type  DiscountType    `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// TaxConfig carries a free-form tax label and a percentage rate.
// Only the presence of tax changes the arithmetic; the label is for display.
type TaxConfig struct {
	Type string          `json:"type"`
	Rate decimal.Decimal `json:"rate"`
}

// Active reports whether tax applies at all.
func (t TaxConfig) Active() bool {
	label := strings.TrimSpace(t.Type)
	return label != "" && !strings.EqualFold(label, TaxNone)
}

// LineItem is a single billed row. Amount is always Rate × Quantity and is
// rewritten by Finalize; any client-supplied value is ignored.
type LineItem struct {
	Description       string          `json:"description"`
	AdditionalDetails string          `json:"additional_details,omitempty"`
	Rate              decimal.Decimal `json:"rate"`
	Quantity          decimal.Decimal `json:"quantity"`
	Amount            decimal.Decimal `json:"amount"`
	Taxable           bool            `json:"taxable"`
}

// UnmarshalJSON applies the input defaults: quantity 1 and taxable true when
// the keys are absent.
func (li *LineItem) UnmarshalJSON(data []byte) error {
	type alias LineItem
	aux := struct {
		*alias
		Quantity *decimal.Decimal `json:"quantity"`
		Taxable  *bool            `json:"taxable"`
	}{alias: (*alias)(li)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	li.Quantity = decimal.NewFromInt(1)
	if aux.Quantity != nil {
		li.Quantity = *aux.Quantity
	}
	li.Taxable = true
	if aux.Taxable != nil {
		li.Taxable = *aux.Taxable
	}
	return nil
}

// Party holds the contact block for the sender or the client.
type Party struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Mobile  string `json:"mobile,omitempty"`
	Fax     string `json:"fax,omitempty"`
}

// Totals is the derived money block. It is a cache of ComputeTotals over the
// record's items, discount and tax, never independent state.
type Totals struct {
	Subtotal             decimal.Decimal `json:"subtotal"`
	DiscountAmount       decimal.Decimal `json:"discount_amount"`
	TaxableSubtotal      decimal.Decimal `json:"taxable_subtotal"`
	TaxableDiscountShare decimal.Decimal `json:"taxable_discount_share"`
	TaxableBase          decimal.Decimal `json:"taxable_base"`
	TaxAmount            decimal.Decimal `json:"tax_amount"`
	Total                decimal.Decimal `json:"total"`
	BalanceDue           decimal.Decimal `json:"balance_due"`
}

// Record is a complete invoice. Logo and Signature are data: URLs or empty.
type Record struct {
	ID             int            `json:"id,omitempty"`
	OwnerID        int            `json:"owner_id,omitempty"`
	Template       string         `json:"template"`
	Title          string         `json:"title"`
	Logo           string         `json:"logo,omitempty"`
	From           Party          `json:"from"`
	BusinessNumber string         `json:"business_number,omitempty"`
	BillTo         Party          `json:"bill_to"`
	InvoiceNumber  string         `json:"invoice_number"`
	Date           string         `json:"date"` // YYYY-MM-DD
	Terms          string         `json:"terms"`
	Items          []LineItem     `json:"items"`
	Discount       DiscountConfig `json:"discount"`
	Tax            TaxConfig      `json:"tax"`
	Notes          string         `json:"notes,omitempty"`
	Signature      string         `json:"signature,omitempty"`
	Color          string         `json:"color"`
	Currency       string         `json:"currency"`
	Totals         Totals         `json:"totals"`
	CreatedAt      time.Time      `json:"created_at,omitzero"`
	UpdatedAt      time.Time      `json:"updated_at,omitzero"`
}

// Amount bounds. Rates, quantities, discount values and tax rates must not
// exceed MaxAmount in magnitude or carry more than MaxFractionDigits decimals.
const (
	MaxFractionDigits = 6
	maxIntegerDigits  = 15
	// maxExponent rejects absurd exponents before any arithmetic rescales them.
	maxExponent = 30
)

// MaxAmount is the largest accepted input magnitude.
var MaxAmount = decimal.New(1, maxIntegerDigits)

// CheckAmount rejects values outside the supported magnitude and precision.
// It never formats d, so it is safe on hostile input.
func CheckAmount(field string, d decimal.Decimal) error {
	return checkAmount(field, d, MaxFractionDigits)
}

func checkAmount(field string, d decimal.Decimal, fractionDigits int32) error {
	if d.IsZero() {
		return nil
	}
	if exp := d.Exponent(); exp > maxIntegerDigits || exp < -maxExponent {
		return invalid(field, ErrOutOfRange, "exponent %d is outside the supported range", exp)
	}
	if d.Abs().GreaterThan(MaxAmount) {
		return invalid(field, ErrOutOfRange, "magnitude above %s", MaxAmount)
	}
	if !d.Equal(d.Truncate(fractionDigits)) {
		return invalid(field, ErrOutOfRange, "more than %d decimal places", fractionDigits)
	}
	return nil
}

// FromFloat converts a float from an untyped boundary (the assistant's
// quantities) into a decimal, rejecting NaN, ±Inf and out-of-range values.
func FromFloat(field string, f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, invalid(field, ErrNonFinite, "got %v", f)
	}
	d := decimal.NewFromFloat(f)
	if err := CheckAmount(field, d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ParseAmount parses a decimal string, rejecting NaN and Infinity spellings
// and values CheckAmount refuses.
func ParseAmount(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, invalid(field, ErrNonFinite, "not a finite number")
	}
	if err := CheckAmount(field, d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}
