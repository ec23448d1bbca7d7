package app

import (
	"invoice-studio/internal/invoice"

	"github.com/shopspring/decimal"
)

// SaveSettingsRequest is the input for SaveSettings. The owner comes from
// the viewer, never from the request.
type SaveSettingsRequest struct {
	Title          string          `json:"title"`
	Template       string          `json:"template"`
	Logo           string          `json:"logo"`
	From           invoice.Party   `json:"from"`
	BusinessNumber string          `json:"business_number"`
	TaxType        string          `json:"tax_type"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	Color          string          `json:"color"`
	Signature      string          `json:"signature"`
	Currency       string          `json:"currency"`
}

// SuggestRequest is the input for SuggestDraft.
type SuggestRequest struct {
	Description string `json:"description"`
	// Base, when set, is the draft being edited; the suggestion replaces its
	// client, items, terms and notes.
	Base *invoice.Record `json:"base,omitempty"`
}
