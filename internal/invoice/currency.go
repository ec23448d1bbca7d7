package invoice

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// HomeCurrency is formatted in its local convention (grouped with dots, no
// decimals, trailing mark); everything else uses en-US symbol style.
const HomeCurrency = "VND"

// Currency describes how a supported code is displayed.
type Currency struct {
	Code     string `json:"code"`
	Label    string `json:"label"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`

	suffix bool
	tag    language.Tag
}

// SupportedCurrencies is the fixed set the invoice form offers, in menu order.
var SupportedCurrencies = []Currency{
	{Code: "VND", Label: "Vietnamese Dong", Symbol: "₫", Decimals: 0, suffix: true, tag: language.Vietnamese},
	{Code: "USD", Label: "US Dollar", Symbol: "$", Decimals: 2, tag: language.AmericanEnglish},
	{Code: "EUR", Label: "Euro", Symbol: "€", Decimals: 2, tag: language.AmericanEnglish},
	{Code: "GBP", Label: "British Pound", Symbol: "£", Decimals: 2, tag: language.AmericanEnglish},
	{Code: "JPY", Label: "Japanese Yen", Symbol: "¥", Decimals: 0, tag: language.AmericanEnglish},
	{Code: "AUD", Label: "Australian Dollar", Symbol: "A$", Decimals: 2, tag: language.AmericanEnglish},
	{Code: "CAD", Label: "Canadian Dollar", Symbol: "CA$", Decimals: 2, tag: language.AmericanEnglish},
	{Code: "CHF", Label: "Swiss Franc", Symbol: "CHF ", Decimals: 2, tag: language.AmericanEnglish},
	{Code: "CNY", Label: "Chinese Yuan", Symbol: "CN¥", Decimals: 2, tag: language.AmericanEnglish},
	{Code: "INR", Label: "Indian Rupee", Symbol: "₹", Decimals: 2, tag: language.AmericanEnglish},
	{Code: "SGD", Label: "Singapore Dollar", Symbol: "SGD ", Decimals: 2, tag: language.AmericanEnglish},
	{Code: "THB", Label: "Thai Baht", Symbol: "THB ", Decimals: 2, tag: language.AmericanEnglish},
	{Code: "RUB", Label: "Russian Ruble", Symbol: "RUB ", Decimals: 2, tag: language.AmericanEnglish},
}

var currencyByCode = func() map[string]Currency {
	m := make(map[string]Currency, len(SupportedCurrencies))
	for _, c := range SupportedCurrencies {
		m[c.Code] = c
	}
	return m
}()

// LookupCurrency returns the display rules for code (case-insensitive).
func LookupCurrency(code string) (Currency, error) {
	c, ok := currencyByCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Currency{}, invalid("currency", ErrUnsupportedCurrency, "%q", code)
	}
	return c, nil
}

// FormatMoney renders amount in the display convention of code. Rounding is
// half away from zero at the currency's number of decimals; this is the only
// place amounts are rounded.
func FormatMoney(amount decimal.Decimal, code string) (string, error) {
	c, err := LookupCurrency(code)
	if err != nil {
		return "", err
	}
	return c.Format(amount), nil
}

// Format renders amount using c's rules.
func (c Currency) Format(amount decimal.Decimal) string {
	rounded := amount.Round(c.Decimals)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}

	fixed := rounded.StringFixed(c.Decimals)
	intPart, frac, _ := strings.Cut(fixed, ".")
	grouped := c.group(rounded.Truncate(0), intPart)

	number := grouped
	if frac != "" {
		number += c.decimalSeparator() + frac
	}

	if c.suffix {
		return sign + number + " " + c.Symbol
	}
	return sign + c.Symbol + number
}

func (c Currency) group(whole decimal.Decimal, digits string) string {
	bi := whole.BigInt()
	if !bi.IsInt64() {
		return digits
	}
	return message.NewPrinter(c.tag).Sprintf("%d", bi.Int64())
}

func (c Currency) decimalSeparator() string {
	if c.tag == language.Vietnamese {
		return ","
	}
	return "."
}
