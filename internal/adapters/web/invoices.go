package web

import (
	"fmt"
	"net/http"
	"strconv"

	"invoice-studio/internal/app"
	"invoice-studio/internal/core"
	"invoice-studio/internal/invoice"
	"invoice-studio/internal/render"
)

// newDraft handles GET /api/invoices/new.
func (h *Handler) newDraft(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.NewDraft(r.Context(), viewer(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// previewTotals handles POST /api/invoices/totals.
func (h *Handler) previewTotals(w http.ResponseWriter, r *http.Request) {
	var draft invoice.Record
	if !decodeJSON(w, r, &draft) {
		return
	}
	res, err := h.svc.PreviewTotals(r.Context(), draft)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// suggestDraft handles POST /api/invoices/suggest.
func (h *Handler) suggestDraft(w http.ResponseWriter, r *http.Request) {
	var req app.SuggestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.SuggestDraft(r.Context(), viewer(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// renderDraft handles POST /api/invoices/render.
func (h *Handler) renderDraft(w http.ResponseWriter, r *http.Request) {
	var draft invoice.Record
	if !decodeJSON(w, r, &draft) {
		return
	}
	doc, err := h.svc.RenderDraft(r.Context(), draft)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeDocument(w, doc)
}

// draftPDF handles POST /api/invoices/pdf.
func (h *Handler) draftPDF(w http.ResponseWriter, r *http.Request) {
	var draft invoice.Record
	if !decodeJSON(w, r, &draft) {
		return
	}
	res, err := h.svc.GenerateDraftPDF(r.Context(), draft)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writePDF(w, r, res)
}

// listInvoices handles GET /api/invoices.
// Query: q, currency, sort, order, page.
func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	page, _ := strconv.Atoi(qs.Get("page"))
	res, err := h.svc.ListInvoices(r.Context(), viewer(r), core.ListQuery{
		Search:   qs.Get("q"),
		Currency: qs.Get("currency"),
		Sort:     qs.Get("sort"),
		Order:    qs.Get("order"),
		Page:     page,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// saveInvoice handles POST /api/invoices.
func (h *Handler) saveInvoice(w http.ResponseWriter, r *http.Request) {
	var draft invoice.Record
	if !decodeJSON(w, r, &draft) {
		return
	}
	res, err := h.svc.SaveInvoice(r.Context(), viewer(r), draft)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/invoices/%d", res.Invoice.ID))
	writeJSONStatus(w, http.StatusCreated, res)
}

// getInvoice handles GET /api/invoices/{id}.
func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	res, err := h.svc.GetInvoice(r.Context(), viewer(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// updateInvoice handles PUT /api/invoices/{id}.
func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var draft invoice.Record
	if !decodeJSON(w, r, &draft) {
		return
	}
	res, err := h.svc.UpdateInvoice(r.Context(), viewer(r), id, draft)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// deleteInvoice handles DELETE /api/invoices/{id}.
func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteInvoice(r.Context(), viewer(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// invoiceHTML handles GET /api/invoices/{id}/html.
func (h *Handler) invoiceHTML(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	doc, err := h.svc.RenderInvoice(r.Context(), viewer(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeDocument(w, doc)
}

// invoicePDF handles GET /api/invoices/{id}/pdf. ?download=1 asks the
// browser to save rather than display.
func (h *Handler) invoicePDF(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	res, err := h.svc.GenerateInvoicePDF(r.Context(), viewer(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writePDF(w, r, res)
}

func writeDocument(w http.ResponseWriter, doc *render.Document) {
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Invoice-Template", doc.Template)
	_, _ = w.Write([]byte(doc.HTML))
}

func writePDF(w http.ResponseWriter, r *http.Request, res *app.PDFResult) {
	disposition := "inline"
	if r.URL.Query().Get("download") != "" {
		disposition = "attachment"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, res.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Content)))
	w.Header().Set("Cache-Control", "no-store")
	if res.ArchiveURL != "" {
		w.Header().Set("X-Archive-URL", res.ArchiveURL)
	}
	_, _ = w.Write(res.Content)
}
