package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"invoice-studio/internal/app"
	"invoice-studio/internal/metrics"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes caps JSON bodies. Drafts embed the logo and signature as
// data URLs, so this is well above a plain form post.
const maxBodyBytes = 8 << 20

// Options configures NewHandler.
type Options struct {
	AllowedOrigins string
	JWTSecret      string
	Metrics        *metrics.Metrics
}

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	jwtSecret string
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options) http.Handler {
	h := &Handler{
		svc:       svc,
		jwtSecret: opts.JWTSecret,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(Metrics(opts.Metrics))
	r.Use(CORS(opts.AllowedOrigins))

	// ── Public ────────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	r.Get("/api/templates", h.listTemplates)
	r.Get("/api/currencies", h.listCurrencies)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(maxBodyBytes))

		r.Get("/api/auth/me", h.me)

		r.Route("/api/invoices", func(r chi.Router) {
			r.Get("/", h.listInvoices)
			r.Post("/", h.saveInvoice)

			// Unsaved drafts
			r.Get("/new", h.newDraft)
			r.Post("/totals", h.previewTotals)
			r.Post("/suggest", h.suggestDraft)
			r.Post("/render", h.renderDraft)
			r.Post("/pdf", h.draftPDF)

			r.Get("/{id}", h.getInvoice)
			r.Put("/{id}", h.updateInvoice)
			r.Delete("/{id}", h.deleteInvoice)
			r.Get("/{id}/html", h.invoiceHTML)
			r.Get("/{id}/pdf", h.invoicePDF)
		})

		r.Get("/api/settings", h.getSettings)
		r.Put("/api/settings", h.saveSettings)
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status    string `json:"status"`
		Templates int    `json:"templates"`
	}
	writeJSON(w, response{Status: "ok", Templates: len(h.svc.ListTemplates(r.Context()).Templates)})
}

// idParam parses the {id} URL parameter, writing a 400 on failure.
func idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid invoice id", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
