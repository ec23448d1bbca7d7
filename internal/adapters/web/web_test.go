package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"invoice-studio/internal/adapters/web"
	"invoice-studio/internal/app"
	"invoice-studio/internal/core"
	"invoice-studio/internal/invoice"
	"invoice-studio/internal/metrics"
	"invoice-studio/internal/pdf"
	"invoice-studio/internal/render"

	"github.com/shopspring/decimal"
)

const testSecret = "test-secret-test-secret-test-secret"

// stubService implements the handful of methods the tests call. Anything else
// panics through the embedded nil interface.
type stubService struct {
	app.ApplicationService

	err        error
	lastViewer core.Viewer
	lastQuery  core.ListQuery
	lastID     int
	saved      invoice.Record
}

func (s *stubService) ListTemplates(context.Context) *app.TemplateListResult {
	return &app.TemplateListResult{Templates: []string{"Classic", "Sharp", "Clean", "Default"}, Default: "Classic"}
}

func (s *stubService) ListCurrencies(context.Context) *app.CurrencyListResult {
	return &app.CurrencyListResult{Default: "USD"}
}

func (s *stubService) GetInvoice(_ context.Context, v core.Viewer, id int) (*app.InvoiceResult, error) {
	s.lastViewer, s.lastID = v, id
	if s.err != nil {
		return nil, s.err
	}
	return &app.InvoiceResult{Invoice: invoice.Record{ID: id, OwnerID: v.UserID, InvoiceNumber: "INV-00001"}}, nil
}

func (s *stubService) SaveInvoice(_ context.Context, v core.Viewer, draft invoice.Record) (*app.InvoiceResult, error) {
	s.lastViewer, s.saved = v, draft
	if s.err != nil {
		return nil, s.err
	}
	draft.ID = 42
	draft.OwnerID = v.UserID
	return &app.InvoiceResult{Invoice: draft}, nil
}

func (s *stubService) DeleteInvoice(_ context.Context, v core.Viewer, id int) error {
	s.lastViewer, s.lastID = v, id
	return s.err
}

func (s *stubService) ListInvoices(_ context.Context, v core.Viewer, q core.ListQuery) (*core.InvoiceList, error) {
	s.lastViewer, s.lastQuery = v, q
	return &core.InvoiceList{Invoices: []core.InvoiceSummary{}}, s.err
}

func (s *stubService) RenderDraft(context.Context, invoice.Record) (*render.Document, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &render.Document{Template: "Sharp", ContentType: "text/html; charset=utf-8", HTML: "<html>ok</html>"}, nil
}

func (s *stubService) GenerateInvoicePDF(_ context.Context, _ core.Viewer, id int) (*app.PDFResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &app.PDFResult{
		Filename:   app.PDFFilename(fmt.Sprintf("INV-%05d", id)),
		Backend:    "fpdf",
		Content:    []byte("%PDF-1.4 stub"),
		ArchiveURL: "s3://bucket/invoices/7/INV-00003.pdf",
	}, nil
}

func newServer(t *testing.T, svc app.ApplicationService) http.Handler {
	t.Helper()
	return web.NewHandler(svc, web.Options{JWTSecret: testSecret, Metrics: metrics.New()})
}

func token(t *testing.T, userID int, role string) string {
	t.Helper()
	tok, err := web.IssueToken(testSecret, userID, role, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return tok
}

func do(h http.Handler, method, target, tok, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v (raw %q)", err, rec.Body.String())
	}
	return body
}

func TestPublicRoutes(t *testing.T) {
	h := newServer(t, &stubService{})

	rec := do(h, http.MethodGet, "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health: got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	rec = do(h, http.MethodGet, "/api/templates", "", "")
	var templates app.TemplateListResult
	if err := json.NewDecoder(rec.Body).Decode(&templates); err != nil {
		t.Fatal(err)
	}
	if templates.Default != "Classic" || len(templates.Templates) != 4 {
		t.Errorf("templates: %+v", templates)
	}

	rec = do(h, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "invoice_http_request_duration_seconds") {
		t.Errorf("metrics: %d", rec.Code)
	}
}

func TestRequireAuth(t *testing.T) {
	h := newServer(t, &stubService{})

	expired, err := web.IssueToken(testSecret, 1, "", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	wrongKey, err := web.IssueToken("another-secret-another-secret-xx", 1, "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	noUser, err := web.IssueToken(testSecret, 0, "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		tok  string
	}{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
		{"expired", expired},
		{"wrong key", wrongKey},
		{"no user", noUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodGet, "/api/invoices/1", tt.tok, "")
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("got %d, want 401", rec.Code)
			}
			if body := decodeError(t, rec); body["code"] != "UNAUTHORIZED" {
				t.Errorf("code = %q", body["code"])
			}
		})
	}
}

func TestAuthCookie(t *testing.T) {
	svc := &stubService{}
	h := newServer(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: token(t, 9, core.RoleAdmin)})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	var me struct {
		UserID int    `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&me); err != nil {
		t.Fatal(err)
	}
	if me.UserID != 9 || me.Role != core.RoleAdmin {
		t.Errorf("me = %+v", me)
	}
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		field  string
	}{
		{"not found", core.ErrInvoiceNotFound, http.StatusNotFound, "NOT_FOUND", ""},
		{"forbidden", core.ErrForbidden, http.StatusForbidden, "FORBIDDEN", ""},
		{"duplicate", fmt.Errorf("%w: INV-00001", core.ErrDuplicateInvoiceNumber), http.StatusConflict, "DUPLICATE_INVOICE_NUMBER", "invoice_number"},
		{"validation", &invoice.ValidationError{Field: "items[0].quantity", Err: invoice.ErrInvalidItem}, http.StatusBadRequest, "VALIDATION_FAILED", "items[0].quantity"},
		{"template", &invoice.ValidationError{Field: "template", Err: invoice.ErrTemplateNotFound}, http.StatusUnprocessableEntity, "TEMPLATE_NOT_FOUND", "template"},
		{"not configured", app.ErrNotConfigured, http.StatusServiceUnavailable, "NOT_CONFIGURED", ""},
		{"pdf transient", &pdf.ConversionError{Backend: "chrome", Transient: true, Err: context.DeadlineExceeded}, http.StatusServiceUnavailable, "PDF_UNAVAILABLE", ""},
		{"pdf permanent", &pdf.ConversionError{Backend: "fpdf", Err: errors.New("bad image")}, http.StatusUnprocessableEntity, "PDF_FAILED", ""},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newServer(t, &stubService{err: tt.err})
			rec := do(h, http.MethodGet, "/api/invoices/5", token(t, 1, ""), "")
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			body := decodeError(t, rec)
			if body["code"] != tt.code {
				t.Errorf("code = %q, want %q", body["code"], tt.code)
			}
			if body["field"] != tt.field {
				t.Errorf("field = %q, want %q", body["field"], tt.field)
			}
			if body["request_id"] == "" {
				t.Error("missing request_id")
			}
			if tt.code == "INTERNAL_ERROR" && strings.Contains(rec.Body.String(), "connection reset") {
				t.Error("internal error detail leaked to client")
			}
			if tt.code == "PDF_UNAVAILABLE" && rec.Header().Get("Retry-After") == "" {
				t.Error("missing Retry-After")
			}
		})
	}
}

func TestInvoiceRoutes(t *testing.T) {
	svc := &stubService{}
	h := newServer(t, svc)
	tok := token(t, 7, "")

	t.Run("get passes viewer and id", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/api/invoices/12", tok, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("got %d", rec.Code)
		}
		if svc.lastID != 12 || svc.lastViewer.UserID != 7 {
			t.Errorf("id=%d viewer=%+v", svc.lastID, svc.lastViewer)
		}
	})

	t.Run("bad id", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/api/invoices/abc", tok, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("got %d", rec.Code)
		}
	})

	t.Run("list query", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/api/invoices?q=acme&currency=EUR&sort=total&order=asc&page=3", tok, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("got %d", rec.Code)
		}
		want := core.ListQuery{Search: "acme", Currency: "EUR", Sort: "total", Order: "asc", Page: 3}
		if svc.lastQuery != want {
			t.Errorf("query = %+v, want %+v", svc.lastQuery, want)
		}
	})

	t.Run("save", func(t *testing.T) {
		body := `{"template":"Sharp","bill_to":{"name":"Acme"},"items":[{"description":"Design","rate":"100"}]}`
		rec := do(h, http.MethodPost, "/api/invoices", tok, body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("got %d: %s", rec.Code, rec.Body.String())
		}
		if loc := rec.Header().Get("Location"); loc != "/api/invoices/42" {
			t.Errorf("Location = %q", loc)
		}
		if len(svc.saved.Items) != 1 || !svc.saved.Items[0].Quantity.Equal(decimal.NewFromInt(1)) {
			t.Errorf("saved items = %+v", svc.saved.Items)
		}
		if !svc.saved.Items[0].Taxable {
			t.Error("taxable default not applied")
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := do(h, http.MethodPost, "/api/invoices", tok, `{"items":`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("got %d", rec.Code)
		}
		if body := decodeError(t, rec); body["code"] != "BAD_REQUEST" {
			t.Errorf("code = %q", body["code"])
		}
	})

	t.Run("delete", func(t *testing.T) {
		rec := do(h, http.MethodDelete, "/api/invoices/3", tok, "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("got %d", rec.Code)
		}
		if svc.lastID != 3 {
			t.Errorf("id = %d", svc.lastID)
		}
	})

	t.Run("render draft", func(t *testing.T) {
		rec := do(h, http.MethodPost, "/api/invoices/render", tok, `{"template":"Sharp"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("got %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("Content-Type = %q", ct)
		}
		if rec.Header().Get("X-Invoice-Template") != "Sharp" {
			t.Errorf("template header = %q", rec.Header().Get("X-Invoice-Template"))
		}
	})
}

func TestInvoicePDFHeaders(t *testing.T) {
	h := newServer(t, &stubService{})
	tok := token(t, 7, "")

	tests := []struct {
		target      string
		disposition string
	}{
		{"/api/invoices/3/pdf", `inline; filename="INV-00003.pdf"`},
		{"/api/invoices/3/pdf?download=1", `attachment; filename="INV-00003.pdf"`},
	}
	for _, tt := range tests {
		rec := do(h, http.MethodGet, tt.target, tok, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: got %d", tt.target, rec.Code)
		}
		if got := rec.Header().Get("Content-Disposition"); got != tt.disposition {
			t.Errorf("%s: disposition = %q, want %q", tt.target, got, tt.disposition)
		}
		if rec.Header().Get("Content-Type") != "application/pdf" {
			t.Errorf("%s: content type = %q", tt.target, rec.Header().Get("Content-Type"))
		}
		if rec.Header().Get("X-Archive-URL") == "" {
			t.Errorf("%s: missing X-Archive-URL", tt.target)
		}
	}
}

func TestCORS(t *testing.T) {
	h := web.NewHandler(&stubService{}, web.Options{
		JWTSecret:      testSecret,
		AllowedOrigins: "https://app.example.com, https://admin.example.com",
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/invoices", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight: got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://admin.example.com" {
		t.Errorf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unlisted origin must not be allowed")
	}
}
