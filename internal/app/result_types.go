package app

import "invoice-studio/internal/invoice"

// DraftResult is returned by NewDraft.
type DraftResult struct {
	Draft invoice.Record `json:"draft"`
}

// FormattedTotals are the display strings for a Totals block.
type FormattedTotals struct {
	Subtotal   string `json:"subtotal"`
	Discount   string `json:"discount"`
	Tax        string `json:"tax"`
	Total      string `json:"total"`
	BalanceDue string `json:"balance_due"`
}

// TotalsResult is returned by PreviewTotals.
type TotalsResult struct {
	Items     []invoice.LineItem `json:"items"`
	Totals    invoice.Totals     `json:"totals"`
	Currency  string             `json:"currency"`
	Formatted FormattedTotals    `json:"formatted"`
}

// InvoiceResult is returned by invoice read and write operations.
type InvoiceResult struct {
	Invoice invoice.Record `json:"invoice"`
}

// PDFResult is a generated PDF.
type PDFResult struct {
	Filename   string `json:"filename"`
	Backend    string `json:"backend"`
	Content    []byte `json:"-"`
	ArchiveURL string `json:"archive_url,omitempty"`
}

// TemplateListResult is returned by ListTemplates.
type TemplateListResult struct {
	Templates []string `json:"templates"`
	Default   string   `json:"default"`
}

// CurrencyInfo is one entry of ListCurrencies, with a formatted sample.
type CurrencyInfo struct {
	invoice.Currency
	Example string `json:"example"`
}

// CurrencyListResult is returned by ListCurrencies.
type CurrencyListResult struct {
	Currencies []CurrencyInfo `json:"currencies"`
	Default    string         `json:"default"`
}

// SuggestResult is returned by SuggestDraft.
type SuggestResult struct {
	Draft      invoice.Record `json:"draft"`
	Preview    *TotalsResult  `json:"preview"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning"`
}
