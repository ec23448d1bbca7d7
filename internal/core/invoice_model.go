package core

import (
	"errors"
	"time"

	"invoice-studio/internal/invoice"

	"github.com/shopspring/decimal"
)

var (
	ErrInvoiceNotFound        = errors.New("invoice not found")
	ErrDuplicateInvoiceNumber = errors.New("invoice number already exists")
	ErrForbidden              = errors.New("not allowed to access this invoice")
)

// RoleAdmin may read and modify every owner's invoices.
const RoleAdmin = "admin"

// PageSize is the number of invoices per list page.
const PageSize = 10

// Viewer is the authenticated caller on whose behalf a query runs.
type Viewer struct {
	UserID int
	Role   string
}

// CanAccess reports whether v may read or modify records of ownerID.
func (v Viewer) CanAccess(ownerID int) bool {
	return v.Role == RoleAdmin || v.UserID == ownerID
}

// ListQuery filters and orders the invoice list. Zero values mean
// "no filter", first page, newest first.
type ListQuery struct {
	Search   string
	Currency string
	Sort     string
	Order    string
	Page     int
}

// sortColumns maps the accepted sort keys to columns. Anything else falls
// back to created_at.
var sortColumns = map[string]string{
	"created_at":     "created_at",
	"updated_at":     "updated_at",
	"invoice_number": "invoice_number",
	"date":           "invoice_date",
	"title":          "title",
	"client":         "bill_to_name",
	"total":          "total",
}

// Pagination describes where a page sits in the full result.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	Total       int  `json:"total"`
	HasNext     bool `json:"has_next"`
	HasPrev     bool `json:"has_prev"`
}

func paginate(page, total int) Pagination {
	pages := (total + PageSize - 1) / PageSize
	if pages == 0 {
		pages = 1
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  pages,
		Total:       total,
		HasNext:     page < pages,
		HasPrev:     page > 1,
	}
}

// InvoiceSummary is one row of the invoice list.
type InvoiceSummary struct {
	ID            int             `json:"id"`
	OwnerID       int             `json:"owner_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Title         string          `json:"title"`
	Template      string          `json:"template"`
	FromName      string          `json:"from_name"`
	BillToName    string          `json:"bill_to_name"`
	Date          string          `json:"date"`
	Currency      string          `json:"currency"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
}

// InvoiceList is a page of summaries plus its pagination metadata.
type InvoiceList struct {
	Invoices   []InvoiceSummary `json:"invoices"`
	Pagination Pagination       `json:"pagination"`
}

// Settings are an owner's defaults for new drafts.
type Settings struct {
	OwnerID        int             `json:"owner_id"`
	Title          string          `json:"title"`
	Template       string          `json:"template"`
	Logo           string          `json:"logo,omitempty"`
	From           invoice.Party   `json:"from"`
	BusinessNumber string          `json:"business_number,omitempty"`
	TaxType        string          `json:"tax_type"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	Color          string          `json:"color"`
	Signature      string          `json:"signature,omitempty"`
	Currency       string          `json:"currency"`
	UpdatedAt      time.Time       `json:"updated_at,omitzero"`
}

// DefaultSettings is what an owner without stored settings gets.
func DefaultSettings(ownerID int) Settings {
	return Settings{
		OwnerID:  ownerID,
		Title:    invoice.DefaultTitle,
		Template: invoice.DefaultTemplate,
		TaxType:  invoice.TaxNone,
		TaxRate:  decimal.Zero,
		Color:    invoice.DefaultColor,
		Currency: invoice.DefaultCurrency,
	}
}
