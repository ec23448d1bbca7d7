package invoice

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeTotals derives the money block from items, discount and tax.
//
// The order of operations is fixed:
//
//	subtotal       = Σ rate × quantity
//	discount       = none | subtotal × pct/100 | min(value, subtotal)
//	taxableBefore  = Σ amount over taxable items
//	share          = discount × taxableBefore / subtotal
//	taxableBase    = taxableBefore − share
//	tax            = taxableBase × rate/100 (when active and positive)
//	total          = max(subtotal − discount + tax, 0)
//
// Out-of-range inputs (negative rate or quantity, percentages outside
// [0,100], negative fixed discounts) are clamped rather than rejected; an
// empty item list, an unknown discount type or an amount CheckAmount refuses
// is an error.
func ComputeTotals(items []LineItem, discount DiscountConfig, tax TaxConfig) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, invalid("items", ErrNoItems, "")
	}
	if err := CheckAmounts(items, discount, tax); err != nil {
		return Totals{}, err
	}
	discountType, err := ParseDiscountType(string(discount.Type))
	if err != nil {
		return Totals{}, err
	}

	subtotal := decimal.Zero
	taxableBefore := decimal.Zero
	for _, it := range items {
		amount := lineAmount(it)
		subtotal = subtotal.Add(amount)
		if it.Taxable {
			taxableBefore = taxableBefore.Add(amount)
		}
	}

	if subtotal.GreaterThan(MaxAmount) {
		return Totals{}, invalid("items", ErrOutOfRange, "subtotal above %s", MaxAmount)
	}

	var discountAmount decimal.Decimal
	switch discountType {
	case DiscountPercentage:
		discountAmount = subtotal.Mul(clamp(discount.Value, decimal.Zero, hundred)).Div(hundred)
	case DiscountFixed:
		discountAmount = clamp(discount.Value, decimal.Zero, subtotal)
	default:
		discountAmount = decimal.Zero
	}

	share := decimal.Zero
	if subtotal.IsPositive() && taxableBefore.IsPositive() {
		share = discountAmount.Mul(taxableBefore).Div(subtotal)
	}
	taxableBase := taxableBefore.Sub(share)

	taxAmount := decimal.Zero
	rate := clamp(tax.Rate, decimal.Zero, hundred)
	if tax.Active() && rate.IsPositive() && taxableBase.IsPositive() {
		taxAmount = taxableBase.Mul(rate).Div(hundred)
	}

	total := decimal.Max(subtotal.Sub(discountAmount).Add(taxAmount), decimal.Zero)

	return Totals{
		Subtotal:             subtotal,
		DiscountAmount:       discountAmount,
		TaxableSubtotal:      taxableBefore,
		TaxableDiscountShare: share,
		TaxableBase:          taxableBase,
		TaxAmount:            taxAmount,
		Total:                total,
		BalanceDue:           total,
	}, nil
}

// CheckAmounts applies CheckAmount to every numeric input of a draft. It must
// run before any comparison or arithmetic on those values.
func CheckAmounts(items []LineItem, discount DiscountConfig, tax TaxConfig) error {
	for i, it := range items {
		if err := CheckAmount(fmt.Sprintf("items[%d].rate", i), it.Rate); err != nil {
			return err
		}
		if err := CheckAmount(fmt.Sprintf("items[%d].quantity", i), it.Quantity); err != nil {
			return err
		}
	}
	// A fixed discount is stored clamped to the subtotal, which carries the
	// precision of rate × quantity.
	if err := checkAmount("discount.value", discount.Value, 2*MaxFractionDigits); err != nil {
		return err
	}
	return CheckAmount("tax.rate", tax.Rate)
}

// lineAmount is rate × quantity with both factors floored at zero.
func lineAmount(it LineItem) decimal.Decimal {
	return decimal.Max(it.Rate, decimal.Zero).Mul(decimal.Max(it.Quantity, decimal.Zero))
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
