package app_test

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"invoice-studio/internal/ai"
	"invoice-studio/internal/app"
	"invoice-studio/internal/core"
	"invoice-studio/internal/invoice"
	"invoice-studio/internal/metrics"
	"invoice-studio/internal/pdf"
	"invoice-studio/internal/render"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var now = time.Date(2026, time.October, 16, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return now }

// memInvoices is an in-memory core.InvoiceService.
type memInvoices struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]invoice.Record
}

func newMemInvoices() *memInvoices { return &memInvoices{byID: map[int]invoice.Record{}} }

func (m *memInvoices) Create(_ context.Context, rec invoice.Record) (invoice.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec.ID = m.nextID
	if rec.InvoiceNumber == "" {
		rec.InvoiceNumber = "INV-00001"
	}
	m.byID[rec.ID] = rec
	return rec, nil
}

func (m *memInvoices) Update(_ context.Context, v core.Viewer, id int, rec invoice.Record) (invoice.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.byID[id]
	if !ok {
		return invoice.Record{}, core.ErrInvoiceNotFound
	}
	if !v.CanAccess(old.OwnerID) {
		return invoice.Record{}, core.ErrForbidden
	}
	rec.ID, rec.OwnerID = id, old.OwnerID
	m.byID[id] = rec
	return rec, nil
}

func (m *memInvoices) Get(_ context.Context, v core.Viewer, id int) (invoice.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[id]
	if !ok {
		return invoice.Record{}, core.ErrInvoiceNotFound
	}
	if !v.CanAccess(rec.OwnerID) {
		return invoice.Record{}, core.ErrForbidden
	}
	return rec, nil
}

func (m *memInvoices) List(_ context.Context, v core.Viewer, _ core.ListQuery) (*core.InvoiceList, error) {
	return &core.InvoiceList{}, nil
}

func (m *memInvoices) Delete(_ context.Context, v core.Viewer, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

type fixedNumbering struct{ next string }

func (f fixedNumbering) Next(context.Context, int) (string, error) { return f.next, nil }
func (f fixedNumbering) Peek(context.Context, int) (string, error) { return f.next, nil }
func (f fixedNumbering) NextTx(context.Context, pgx.Tx, int) (string, error) {
	return f.next, nil
}

type memSettings struct{ stored map[int]core.Settings }

func (m *memSettings) Get(_ context.Context, owner int) (core.Settings, error) {
	if s, ok := m.stored[owner]; ok {
		return s, nil
	}
	return core.DefaultSettings(owner), nil
}

func (m *memSettings) Save(_ context.Context, s core.Settings) (core.Settings, error) {
	m.stored[s.OwnerID] = s
	return s, nil
}

type fakeConverter struct {
	err      error
	deadline bool
}

func (f *fakeConverter) Backend() string { return "fake" }

func (f *fakeConverter) Convert(ctx context.Context, doc *render.Document) ([]byte, error) {
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4 " + doc.Template), nil
}

type fakeArchive struct {
	key string
	err error
}

func (f *fakeArchive) Store(_ context.Context, owner int, number string, _ []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.key = number
	return "https://archive.test/" + number + ".pdf", nil
}

type fakeAssistant struct{ suggestion *ai.DraftSuggestion }

func (f fakeAssistant) SuggestDraft(context.Context, string, ai.Hints) (*ai.DraftSuggestion, error) {
	return f.suggestion, nil
}

func draft() invoice.Record {
	return invoice.Record{
		From:     invoice.Party{Name: "Acme Studio"},
		BillTo:   invoice.Party{Name: "Globex"},
		Date:     "2026-10-16",
		Currency: "USD",
		Items: []invoice.LineItem{
			{Description: "Design", Rate: decimal.NewFromInt(100), Quantity: decimal.NewFromInt(1), Taxable: true},
			{Description: "Hosting", Rate: decimal.NewFromInt(50), Quantity: decimal.NewFromInt(1)},
		},
		Discount: invoice.DiscountConfig{Type: invoice.DiscountPercentage, Value: decimal.NewFromInt(10)},
		Tax:      invoice.TaxConfig{Type: "VAT", Rate: decimal.NewFromInt(10)},
	}
}

func newService(t *testing.T, mutate func(*app.Deps)) (app.ApplicationService, *memInvoices) {
	t.Helper()
	store := newMemInvoices()
	deps := app.Deps{
		Invoices:  store,
		Numbering: fixedNumbering{next: "INV-00042"},
		Settings:  &memSettings{stored: map[int]core.Settings{}},
		Registry:  render.DefaultRegistry(clock),
		Converter: &fakeConverter{},
		Now:       clock,
	}
	if mutate != nil {
		mutate(&deps)
	}
	return app.NewAppService(deps), store
}

func TestNewDraft_UsesSettingsAndNumbering(t *testing.T) {
	settings := &memSettings{stored: map[int]core.Settings{}}
	s := core.DefaultSettings(5)
	s.Template = "Sharp"
	s.Currency = "VND"
	s.TaxType = "GST"
	s.TaxRate = decimal.NewFromInt(8)
	s.From = invoice.Party{Name: "Acme"}
	settings.stored[5] = s

	svc, _ := newService(t, func(d *app.Deps) { d.Settings = settings })
	res, err := svc.NewDraft(context.Background(), core.Viewer{UserID: 5})
	if err != nil {
		t.Fatalf("new draft: %v", err)
	}
	d := res.Draft
	if d.Template != "Sharp" || d.Currency != "VND" || d.Tax.Type != "GST" || d.From.Name != "Acme" {
		t.Errorf("draft does not reflect settings: %+v", d)
	}
	if d.InvoiceNumber != "INV-00042" || d.Date != "2026-10-16" || d.Terms != invoice.DefaultTerms {
		t.Errorf("number/date/terms = %q %q %q", d.InvoiceNumber, d.Date, d.Terms)
	}
	if len(d.Items) != 1 || !d.Items[0].Quantity.Equal(decimal.NewFromInt(1)) || !d.Items[0].Taxable {
		t.Errorf("starter item = %+v", d.Items)
	}
}

func TestNewDraft_WithoutStores(t *testing.T) {
	svc := app.NewAppService(app.Deps{Now: clock})
	res, err := svc.NewDraft(context.Background(), core.Viewer{UserID: 1})
	if err != nil {
		t.Fatalf("new draft: %v", err)
	}
	if res.Draft.Template != invoice.DefaultTemplate || res.Draft.InvoiceNumber != "" {
		t.Errorf("draft = %+v", res.Draft)
	}
}

func TestPreviewTotals(t *testing.T) {
	svc, _ := newService(t, nil)

	res, err := svc.PreviewTotals(context.Background(), draft())
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	want := app.FormattedTotals{Subtotal: "$150.00", Discount: "$15.00", Tax: "$9.00", Total: "$144.00", BalanceDue: "$144.00"}
	if res.Formatted != want {
		t.Errorf("formatted = %+v, want %+v", res.Formatted, want)
	}
	if !res.Items[0].Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("item amount = %s", res.Items[0].Amount)
	}

	// Incomplete drafts still preview: no names, no date.
	partial := draft()
	partial.From, partial.BillTo, partial.Date = invoice.Party{}, invoice.Party{}, ""
	if _, err := svc.PreviewTotals(context.Background(), partial); err != nil {
		t.Errorf("partial preview: %v", err)
	}
}

func TestPreviewTotals_Errors(t *testing.T) {
	svc, _ := newService(t, nil)
	tests := []struct {
		name   string
		mutate func(*invoice.Record)
		want   error
	}{
		{"no items", func(r *invoice.Record) { r.Items = nil }, invoice.ErrNoItems},
		{"unknown discount", func(r *invoice.Record) { r.Discount.Type = "Coupon" }, invoice.ErrInvalidDiscount},
		{"unsupported currency", func(r *invoice.Record) { r.Currency = "XYZ" }, invoice.ErrUnsupportedCurrency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := draft()
			tt.mutate(&d)
			_, err := svc.PreviewTotals(context.Background(), d)
			if !errors.Is(err, tt.want) || !errors.Is(err, invoice.ErrInvalidInput) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSaveInvoice_FinalizesAndOwns(t *testing.T) {
	svc, store := newService(t, nil)
	in := draft()
	in.OwnerID = 999 // ignored
	in.Items[0].Amount = decimal.NewFromInt(1_000_000)

	res, err := svc.SaveInvoice(context.Background(), core.Viewer{UserID: 3}, in)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if res.Invoice.OwnerID != 3 {
		t.Errorf("owner = %d, want 3", res.Invoice.OwnerID)
	}
	if !res.Invoice.Items[0].Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("client-supplied amount survived: %s", res.Invoice.Items[0].Amount)
	}
	if !res.Invoice.Totals.Total.Equal(decimal.NewFromInt(144)) {
		t.Errorf("total = %s", res.Invoice.Totals.Total)
	}
	if len(store.byID) != 1 {
		t.Errorf("stored %d invoices", len(store.byID))
	}
}

func TestSaveInvoice_UnknownTemplateRejected(t *testing.T) {
	svc, store := newService(t, nil)
	in := draft()
	in.Template = "Fancy"

	_, err := svc.SaveInvoice(context.Background(), core.Viewer{UserID: 1}, in)
	if !errors.Is(err, invoice.ErrTemplateNotFound) {
		t.Errorf("err = %v, want ErrTemplateNotFound", err)
	}
	if len(store.byID) != 0 {
		t.Error("invalid invoice must not be stored")
	}
}

func TestUpdateInvoice_Forbidden(t *testing.T) {
	svc, _ := newService(t, nil)
	saved, err := svc.SaveInvoice(context.Background(), core.Viewer{UserID: 1}, draft())
	if err != nil {
		t.Fatal(err)
	}
	_, err = svc.UpdateInvoice(context.Background(), core.Viewer{UserID: 2}, saved.Invoice.ID, draft())
	if !errors.Is(err, core.ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
	_, err = svc.UpdateInvoice(context.Background(), core.Viewer{UserID: 2, Role: core.RoleAdmin}, saved.Invoice.ID, draft())
	if err != nil {
		t.Errorf("admin update: %v", err)
	}
}

func TestRenderInvoice(t *testing.T) {
	svc, _ := newService(t, nil)
	in := draft()
	in.Template = "Clean"
	saved, err := svc.SaveInvoice(context.Background(), core.Viewer{UserID: 1}, in)
	if err != nil {
		t.Fatal(err)
	}

	doc, err := svc.RenderInvoice(context.Background(), core.Viewer{UserID: 1}, saved.Invoice.ID)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if doc.Template != "Clean" || !strings.Contains(doc.HTML, "$144.00") {
		t.Errorf("unexpected document for %s", doc.Template)
	}

	if _, err := svc.RenderInvoice(context.Background(), core.Viewer{UserID: 1}, 404); !errors.Is(err, core.ErrInvoiceNotFound) {
		t.Errorf("err = %v, want ErrInvoiceNotFound", err)
	}
}

func TestRenderDraft_InvalidInput(t *testing.T) {
	svc, _ := newService(t, nil)
	in := draft()
	in.Color = "blue"
	if _, err := svc.RenderDraft(context.Background(), in); !errors.Is(err, invoice.ErrInvalidColor) {
		t.Errorf("err = %v, want ErrInvalidColor", err)
	}
}

func TestRenderDraft_MetricLabelsStayBounded(t *testing.T) {
	m := metrics.New()
	svc, _ := newService(t, func(d *app.Deps) { d.Metrics = m })

	for i := 0; i < 50; i++ {
		in := draft()
		in.Template = fmt.Sprintf("made-up-%d", i)
		if _, err := svc.RenderDraft(context.Background(), in); !errors.Is(err, invoice.ErrTemplateNotFound) {
			t.Fatalf("err = %v, want ErrTemplateNotFound", err)
		}
	}
	if _, err := svc.RenderDraft(context.Background(), draft()); err != nil {
		t.Fatalf("render: %v", err)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	series := 0
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if strings.HasPrefix(line, "invoice_renders_total{") {
			series++
			if strings.Contains(line, "made-up") {
				t.Errorf("client template name leaked into labels: %s", line)
			}
		}
	}
	if series != 2 {
		t.Errorf("renders_total series = %d, want 2 (unknown/error and Classic/ok)", series)
	}
}

func TestPreviewTotals_RejectsHugeAmounts(t *testing.T) {
	svc, _ := newService(t, nil)
	in := draft()
	in.Items[0].Rate = decimal.RequireFromString("1e50000000")
	if _, err := svc.PreviewTotals(context.Background(), in); !errors.Is(err, invoice.ErrOutOfRange) {
		t.Errorf("err = %v, want ErrOutOfRange", err)
	}
}

func TestGenerateInvoicePDF_Archives(t *testing.T) {
	conv := &fakeConverter{}
	arch := &fakeArchive{}
	svc, _ := newService(t, func(d *app.Deps) {
		d.Converter = conv
		d.Archive = arch
		d.PDFTimeout = time.Second
	})
	saved, err := svc.SaveInvoice(context.Background(), core.Viewer{UserID: 1}, draft())
	if err != nil {
		t.Fatal(err)
	}

	out, err := svc.GenerateInvoicePDF(context.Background(), core.Viewer{UserID: 1}, saved.Invoice.ID)
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !conv.deadline {
		t.Error("conversion should run under a deadline")
	}
	if out.Filename != "INV-00001.pdf" || out.Backend != "fake" || !strings.HasPrefix(string(out.Content), "%PDF") {
		t.Errorf("result = %+v", out)
	}
	if out.ArchiveURL != "https://archive.test/INV-00001.pdf" {
		t.Errorf("archive url = %q", out.ArchiveURL)
	}
}

func TestGenerateInvoicePDF_ArchiveFailureIsNotFatal(t *testing.T) {
	svc, _ := newService(t, func(d *app.Deps) { d.Archive = &fakeArchive{err: errors.New("s3 down")} })
	saved, err := svc.SaveInvoice(context.Background(), core.Viewer{UserID: 1}, draft())
	if err != nil {
		t.Fatal(err)
	}
	out, err := svc.GenerateInvoicePDF(context.Background(), core.Viewer{UserID: 1}, saved.Invoice.ID)
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if out.ArchiveURL != "" {
		t.Errorf("archive url = %q", out.ArchiveURL)
	}
}

func TestGenerateDraftPDF_Errors(t *testing.T) {
	transient := &pdf.ConversionError{Backend: "fake", Transient: true, Err: context.DeadlineExceeded}
	svc, _ := newService(t, func(d *app.Deps) { d.Converter = &fakeConverter{err: transient} })
	if _, err := svc.GenerateDraftPDF(context.Background(), draft()); !pdf.IsTransient(err) {
		t.Errorf("err = %v, want transient", err)
	}

	noConv := app.NewAppService(app.Deps{Now: clock})
	if _, err := noConv.GenerateDraftPDF(context.Background(), draft()); !errors.Is(err, app.ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestPDFFilename(t *testing.T) {
	tests := map[string]string{
		"INV-00001":  "INV-00001.pdf",
		"2026/10 #4": "2026_10_4.pdf",
		"":           "invoice.pdf",
		"///":        "invoice.pdf",
	}
	for in, want := range tests {
		if got := app.PDFFilename(in); got != want {
			t.Errorf("PDFFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestListTemplatesAndCurrencies(t *testing.T) {
	svc, _ := newService(t, nil)

	tpl := svc.ListTemplates(context.Background())
	if strings.Join(tpl.Templates, ",") != "Classic,Sharp,Clean,Default" || tpl.Default != "Classic" {
		t.Errorf("templates = %+v", tpl)
	}

	cur := svc.ListCurrencies(context.Background())
	if len(cur.Currencies) != len(invoice.SupportedCurrencies) {
		t.Fatalf("currencies = %d", len(cur.Currencies))
	}
	examples := map[string]string{}
	for _, c := range cur.Currencies {
		examples[c.Code] = c.Example
	}
	if examples["USD"] != "$1,234,567.89" || examples["VND"] != "1.234.568 ₫" {
		t.Errorf("examples = %v", examples)
	}
}

func TestSaveSettings_Validates(t *testing.T) {
	svc, _ := newService(t, nil)
	viewer := core.Viewer{UserID: 4}

	saved, err := svc.SaveSettings(context.Background(), viewer, app.SaveSettingsRequest{
		Template: "Default",
		TaxType:  "VAT",
		TaxRate:  decimal.NewFromInt(150),
		Currency: "eur",
		From:     invoice.Party{Name: " Acme "},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.OwnerID != 4 || saved.Currency != "EUR" || saved.From.Name != "Acme" || !saved.TaxRate.Equal(decimal.NewFromInt(100)) {
		t.Errorf("saved = %+v", saved)
	}
	if saved.Color != invoice.DefaultColor || saved.Title != invoice.DefaultTitle {
		t.Errorf("defaults not applied: %+v", saved)
	}

	tests := []struct {
		name string
		req  app.SaveSettingsRequest
		want error
	}{
		{"template", app.SaveSettingsRequest{Template: "Fancy"}, invoice.ErrTemplateNotFound},
		{"currency", app.SaveSettingsRequest{Currency: "XYZ"}, invoice.ErrUnsupportedCurrency},
		{"color", app.SaveSettingsRequest{Color: "red"}, invoice.ErrInvalidColor},
		{"logo", app.SaveSettingsRequest{Logo: "https://cdn.test/logo.png"}, invoice.ErrInvalidImage},
		{"tax rate", app.SaveSettingsRequest{TaxRate: decimal.RequireFromString("1e50000000")}, invoice.ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SaveSettings(context.Background(), viewer, tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSuggestDraft(t *testing.T) {
	suggestion := &ai.DraftSuggestion{
		ClientName: "Globex",
		Items: []ai.SuggestedItem{
			{Description: "Logo", Rate: "400", Quantity: 1, Taxable: true},
			{Description: "Hosting", Rate: "10", Quantity: 12},
		},
		Terms:      "Net 30",
		Confidence: 0.8,
	}
	svc, store := newService(t, func(d *app.Deps) { d.Assistant = fakeAssistant{suggestion: suggestion} })

	res, err := svc.SuggestDraft(context.Background(), core.Viewer{UserID: 1}, app.SuggestRequest{Description: "logo and hosting"})
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if res.Draft.BillTo.Name != "Globex" || res.Draft.InvoiceNumber != "INV-00042" {
		t.Errorf("draft = %+v", res.Draft)
	}
	if res.Preview.Formatted.Total != "$520.00" {
		t.Errorf("total = %q", res.Preview.Formatted.Total)
	}
	if len(store.byID) != 0 {
		t.Error("suggestions must not be persisted")
	}

	noAI, _ := newService(t, nil)
	if _, err := noAI.SuggestDraft(context.Background(), core.Viewer{UserID: 1}, app.SuggestRequest{Description: "x"}); !errors.Is(err, app.ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}
