package app

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"invoice-studio/internal/ai"
	"invoice-studio/internal/core"
	"invoice-studio/internal/invoice"
	"invoice-studio/internal/logger"
	"invoice-studio/internal/metrics"
	"invoice-studio/internal/pdf"
	"invoice-studio/internal/render"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Archiver stores generated PDFs and returns where they went.
type Archiver interface {
	Store(ctx context.Context, ownerID int, invoiceNumber string, pdf []byte) (string, error)
}

// Deps are the collaborators of the application service. Only Registry is
// required; operations whose collaborator is nil fail with ErrNotConfigured.
type Deps struct {
	Invoices   core.InvoiceService
	Numbering  core.NumberingService
	Settings   core.SettingsService
	Registry   *render.Registry
	Converter  pdf.Converter
	Archive    Archiver
	Assistant  ai.DraftAssistant
	Metrics    *metrics.Metrics
	PDFTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type appService struct {
	Deps
	log zerolog.Logger
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(deps Deps) ApplicationService {
	if deps.Registry == nil {
		deps.Registry = render.DefaultRegistry(nil)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.PDFTimeout <= 0 {
		deps.PDFTimeout = 30 * time.Second
	}
	return &appService{Deps: deps, log: logger.WithComponent("app")}
}

func notConfigured(what string) error {
	return fmt.Errorf("%w: %s", ErrNotConfigured, what)
}

func (s *appService) NewDraft(ctx context.Context, viewer core.Viewer) (*DraftResult, error) {
	settings := core.DefaultSettings(viewer.UserID)
	if s.Settings != nil {
		stored, err := s.Settings.Get(ctx, viewer.UserID)
		if err != nil {
			return nil, err
		}
		settings = stored
	}

	draft := invoice.Record{
		OwnerID:        viewer.UserID,
		Template:       settings.Template,
		Title:          settings.Title,
		Logo:           settings.Logo,
		From:           settings.From,
		BusinessNumber: settings.BusinessNumber,
		Date:           s.Now().Format(invoice.DateLayout),
		Terms:          invoice.DefaultTerms,
		Items:          []invoice.LineItem{{Quantity: decimal.NewFromInt(1), Taxable: true}},
		Discount:       invoice.DiscountConfig{Type: invoice.DiscountNone},
		Tax:            invoice.TaxConfig{Type: settings.TaxType, Rate: settings.TaxRate},
		Color:          settings.Color,
		Signature:      settings.Signature,
		Currency:       settings.Currency,
	}
	if s.Numbering != nil {
		number, err := s.Numbering.Peek(ctx, viewer.UserID)
		if err != nil {
			return nil, err
		}
		draft.InvoiceNumber = number
	}
	return &DraftResult{Draft: draft}, nil
}

func (s *appService) PreviewTotals(ctx context.Context, draft invoice.Record) (*TotalsResult, error) {
	code := strings.TrimSpace(draft.Currency)
	if code == "" {
		code = invoice.DefaultCurrency
	}
	currency, err := invoice.LookupCurrency(code)
	if err != nil {
		return nil, err
	}

	if err := invoice.CheckAmounts(draft.Items, draft.Discount, draft.Tax); err != nil {
		return nil, err
	}

	items := make([]invoice.LineItem, len(draft.Items))
	for i, it := range draft.Items {
		it.Amount = decimal.Max(it.Rate, decimal.Zero).Mul(decimal.Max(it.Quantity, decimal.Zero))
		items[i] = it
	}
	totals, err := invoice.ComputeTotals(items, draft.Discount, draft.Tax)
	if err != nil {
		return nil, err
	}

	return &TotalsResult{
		Items:    items,
		Totals:   totals,
		Currency: currency.Code,
		Formatted: FormattedTotals{
			Subtotal:   currency.Format(totals.Subtotal),
			Discount:   currency.Format(totals.DiscountAmount),
			Tax:        currency.Format(totals.TaxAmount),
			Total:      currency.Format(totals.Total),
			BalanceDue: currency.Format(totals.BalanceDue),
		},
	}, nil
}

func (s *appService) SaveInvoice(ctx context.Context, viewer core.Viewer, draft invoice.Record) (*InvoiceResult, error) {
	if s.Invoices == nil {
		return nil, notConfigured("invoice store")
	}
	draft.OwnerID = viewer.UserID
	rec, err := invoice.Finalize(draft, s.Registry)
	if err != nil {
		return nil, err
	}
	saved, err := s.Invoices.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int("invoice_id", saved.ID).Str("number", saved.InvoiceNumber).Int("owner_id", saved.OwnerID).Msg("invoice saved")
	return &InvoiceResult{Invoice: saved}, nil
}

func (s *appService) UpdateInvoice(ctx context.Context, viewer core.Viewer, id int, draft invoice.Record) (*InvoiceResult, error) {
	if s.Invoices == nil {
		return nil, notConfigured("invoice store")
	}
	rec, err := invoice.Finalize(draft, s.Registry)
	if err != nil {
		return nil, err
	}
	updated, err := s.Invoices.Update(ctx, viewer, id, rec)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int("invoice_id", id).Str("number", updated.InvoiceNumber).Msg("invoice updated")
	return &InvoiceResult{Invoice: updated}, nil
}

func (s *appService) GetInvoice(ctx context.Context, viewer core.Viewer, id int) (*InvoiceResult, error) {
	if s.Invoices == nil {
		return nil, notConfigured("invoice store")
	}
	rec, err := s.Invoices.Get(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{Invoice: rec}, nil
}

func (s *appService) ListInvoices(ctx context.Context, viewer core.Viewer, q core.ListQuery) (*core.InvoiceList, error) {
	if s.Invoices == nil {
		return nil, notConfigured("invoice store")
	}
	return s.Invoices.List(ctx, viewer, q)
}

func (s *appService) DeleteInvoice(ctx context.Context, viewer core.Viewer, id int) error {
	if s.Invoices == nil {
		return notConfigured("invoice store")
	}
	if err := s.Invoices.Delete(ctx, viewer, id); err != nil {
		return err
	}
	s.log.Info().Int("invoice_id", id).Int("user_id", viewer.UserID).Msg("invoice deleted")
	return nil
}

func (s *appService) RenderInvoice(ctx context.Context, viewer core.Viewer, id int) (*render.Document, error) {
	res, err := s.GetInvoice(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	return s.render(res.Invoice)
}

func (s *appService) RenderDraft(ctx context.Context, draft invoice.Record) (*render.Document, error) {
	return s.render(draft)
}

// render finalizes rec before rendering, so stored and draft invoices go
// through the same validation.
func (s *appService) render(rec invoice.Record) (*render.Document, error) {
	final, err := invoice.Finalize(rec, s.Registry)
	if err != nil {
		s.Metrics.ObserveRender(s.templateLabel(rec.Template), err)
		return nil, err
	}
	doc, err := s.Registry.Render(final)
	s.Metrics.ObserveRender(final.Template, err)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// templateLabel keeps metric labels to registered names. Client input
// never becomes a label value.
func (s *appService) templateLabel(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = invoice.DefaultTemplate
	}
	if !s.Registry.Has(name) {
		return "unknown"
	}
	return name
}

func (s *appService) GenerateInvoicePDF(ctx context.Context, viewer core.Viewer, id int) (*PDFResult, error) {
	res, err := s.GetInvoice(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	out, err := s.generatePDF(ctx, res.Invoice)
	if err != nil {
		return nil, err
	}

	if s.Archive != nil {
		url, err := s.Archive.Store(ctx, res.Invoice.OwnerID, res.Invoice.InvoiceNumber, out.Content)
		if err != nil {
			// The PDF itself is fine; archiving is best effort.
			s.log.Warn().Err(err).Int("invoice_id", id).Msg("pdf archive failed")
		} else {
			out.ArchiveURL = url
		}
	}
	return out, nil
}

func (s *appService) GenerateDraftPDF(ctx context.Context, draft invoice.Record) (*PDFResult, error) {
	return s.generatePDF(ctx, draft)
}

func (s *appService) generatePDF(ctx context.Context, rec invoice.Record) (*PDFResult, error) {
	if s.Converter == nil {
		return nil, notConfigured("pdf converter")
	}
	doc, err := s.render(rec)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.PDFTimeout)
	defer cancel()

	start := time.Now()
	content, err := s.Converter.Convert(ctx, doc)
	elapsed := time.Since(start)
	s.Metrics.ObservePDF(s.Converter.Backend(), elapsed, err)
	if err != nil {
		s.log.Error().Err(err).
			Str("backend", s.Converter.Backend()).
			Str("template", doc.Template).
			Bool("transient", pdf.IsTransient(err)).
			Msg("pdf conversion failed")
		return nil, err
	}

	s.log.Info().
		Str("backend", s.Converter.Backend()).
		Str("template", doc.Template).
		Int("bytes", len(content)).
		Dur("elapsed", elapsed).
		Msg("pdf generated")
	return &PDFResult{
		Filename: PDFFilename(rec.InvoiceNumber),
		Backend:  s.Converter.Backend(),
		Content:  content,
	}, nil
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// PDFFilename is the download name for an invoice number.
func PDFFilename(invoiceNumber string) string {
	name := strings.Trim(unsafeFilename.ReplaceAllString(invoiceNumber, "_"), "_.")
	if name == "" {
		name = "invoice"
	}
	return name + ".pdf"
}

func (s *appService) ListTemplates(ctx context.Context) *TemplateListResult {
	return &TemplateListResult{Templates: s.Registry.Names(), Default: invoice.DefaultTemplate}
}

func (s *appService) ListCurrencies(ctx context.Context) *CurrencyListResult {
	sample := decimal.RequireFromString("1234567.891")
	out := make([]CurrencyInfo, 0, len(invoice.SupportedCurrencies))
	for _, c := range invoice.SupportedCurrencies {
		out = append(out, CurrencyInfo{Currency: c, Example: c.Format(sample)})
	}
	return &CurrencyListResult{Currencies: out, Default: invoice.DefaultCurrency}
}

func (s *appService) GetSettings(ctx context.Context, viewer core.Viewer) (*core.Settings, error) {
	if s.Settings == nil {
		return nil, notConfigured("settings store")
	}
	settings, err := s.Settings.Get(ctx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (s *appService) SaveSettings(ctx context.Context, viewer core.Viewer, req SaveSettingsRequest) (*core.Settings, error) {
	if s.Settings == nil {
		return nil, notConfigured("settings store")
	}
	settings, err := s.validateSettings(viewer.UserID, req)
	if err != nil {
		return nil, err
	}
	saved, err := s.Settings.Save(ctx, settings)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// validateSettings applies the same defaults and checks Finalize applies to
// the corresponding invoice fields.
func (s *appService) validateSettings(ownerID int, req SaveSettingsRequest) (core.Settings, error) {
	out := core.DefaultSettings(ownerID)
	if v := strings.TrimSpace(req.Title); v != "" {
		out.Title = v
	}
	if v := strings.TrimSpace(req.Template); v != "" {
		out.Template = v
	}
	if v := strings.TrimSpace(req.Color); v != "" {
		out.Color = v
	}
	if v := strings.TrimSpace(req.Currency); v != "" {
		out.Currency = strings.ToUpper(v)
	}
	if v := strings.TrimSpace(req.TaxType); v != "" {
		out.TaxType = v
	}
	if err := invoice.CheckAmount("tax_rate", req.TaxRate); err != nil {
		return core.Settings{}, err
	}
	out.TaxRate = decimal.Min(decimal.Max(req.TaxRate, decimal.Zero), decimal.NewFromInt(100))
	out.Logo = req.Logo
	out.Signature = req.Signature
	out.From = req.From
	out.From.Name = strings.TrimSpace(out.From.Name)
	out.BusinessNumber = strings.TrimSpace(req.BusinessNumber)

	if !s.Registry.Has(out.Template) {
		return core.Settings{}, &invoice.ValidationError{Field: "template", Err: invoice.ErrTemplateNotFound, Details: fmt.Sprintf("%q", out.Template)}
	}
	if _, err := invoice.LookupCurrency(out.Currency); err != nil {
		return core.Settings{}, err
	}
	if !invoice.ValidColor(out.Color) {
		return core.Settings{}, &invoice.ValidationError{Field: "color", Err: invoice.ErrInvalidColor, Details: fmt.Sprintf("%q is not a hex color", out.Color)}
	}
	if !invoice.ValidImage(out.Logo) {
		return core.Settings{}, &invoice.ValidationError{Field: "logo", Err: invoice.ErrInvalidImage}
	}
	if !invoice.ValidImage(out.Signature) {
		return core.Settings{}, &invoice.ValidationError{Field: "signature", Err: invoice.ErrInvalidImage}
	}
	return out, nil
}

func (s *appService) SuggestDraft(ctx context.Context, viewer core.Viewer, req SuggestRequest) (*SuggestResult, error) {
	if s.Assistant == nil {
		return nil, notConfigured("draft assistant")
	}

	var base invoice.Record
	if req.Base != nil {
		base = *req.Base
	} else {
		draft, err := s.NewDraft(ctx, viewer)
		if err != nil {
			return nil, err
		}
		base = draft.Draft
	}

	currency := base.Currency
	if currency == "" {
		currency = invoice.DefaultCurrency
	}
	suggestion, err := s.Assistant.SuggestDraft(ctx, req.Description, ai.Hints{
		Currency: currency,
		Today:    s.Now().Format(invoice.DateLayout),
	})
	if err != nil {
		return nil, err
	}

	draft, err := suggestion.Draft(base)
	if err != nil {
		return nil, err
	}
	preview, err := s.PreviewTotals(ctx, draft)
	if err != nil {
		return nil, err
	}
	draft.Items = preview.Items
	draft.Totals = preview.Totals

	s.log.Info().
		Int("user_id", viewer.UserID).
		Int("items", len(draft.Items)).
		Float64("confidence", suggestion.Confidence).
		Msg("draft suggested")
	return &SuggestResult{
		Draft:      draft,
		Preview:    preview,
		Confidence: suggestion.Confidence,
		Reasoning:  suggestion.Reasoning,
	}, nil
}
