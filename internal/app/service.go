package app

import (
	"context"
	"errors"

	"invoice-studio/internal/core"
	"invoice-studio/internal/invoice"
	"invoice-studio/internal/render"
)

// ErrNotConfigured is returned when an operation needs a component the
// process was started without (database, converter, assistant).
var ErrNotConfigured = errors.New("feature not configured")

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no display logic of any kind.
type ApplicationService interface {
	// NewDraft returns an unsaved invoice prefilled from the viewer's settings,
	// today's date and the next free invoice number.
	NewDraft(ctx context.Context, viewer core.Viewer) (*DraftResult, error)

	// PreviewTotals recomputes item amounts and totals for a draft without
	// validating the rest of it. Used for live recalculation while editing.
	PreviewTotals(ctx context.Context, draft invoice.Record) (*TotalsResult, error)

	// SaveInvoice finalizes and stores a new invoice owned by the viewer.
	SaveInvoice(ctx context.Context, viewer core.Viewer, draft invoice.Record) (*InvoiceResult, error)

	// UpdateInvoice finalizes draft and replaces the stored invoice id.
	UpdateInvoice(ctx context.Context, viewer core.Viewer, id int, draft invoice.Record) (*InvoiceResult, error)

	GetInvoice(ctx context.Context, viewer core.Viewer, id int) (*InvoiceResult, error)
	ListInvoices(ctx context.Context, viewer core.Viewer, q core.ListQuery) (*core.InvoiceList, error)
	DeleteInvoice(ctx context.Context, viewer core.Viewer, id int) error

	// RenderInvoice renders a stored invoice with its own template.
	RenderInvoice(ctx context.Context, viewer core.Viewer, id int) (*render.Document, error)

	// RenderDraft finalizes and renders an unsaved draft.
	RenderDraft(ctx context.Context, draft invoice.Record) (*render.Document, error)

	// GenerateInvoicePDF renders a stored invoice and converts it to PDF,
	// archiving the result when an archive is configured.
	GenerateInvoicePDF(ctx context.Context, viewer core.Viewer, id int) (*PDFResult, error)

	// GenerateDraftPDF renders and converts an unsaved draft. Drafts are
	// never archived.
	GenerateDraftPDF(ctx context.Context, draft invoice.Record) (*PDFResult, error)

	ListTemplates(ctx context.Context) *TemplateListResult
	ListCurrencies(ctx context.Context) *CurrencyListResult

	GetSettings(ctx context.Context, viewer core.Viewer) (*core.Settings, error)
	SaveSettings(ctx context.Context, viewer core.Viewer, req SaveSettingsRequest) (*core.Settings, error)

	// SuggestDraft asks the assistant for draft content and previews its
	// totals. Nothing is persisted.
	SuggestDraft(ctx context.Context, viewer core.Viewer, req SuggestRequest) (*SuggestResult, error)
}
