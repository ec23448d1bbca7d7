package web

import (
	"net/http"

	"invoice-studio/internal/app"
)

// listTemplates handles GET /api/templates.
func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.ListTemplates(r.Context()))
}

// listCurrencies handles GET /api/currencies.
func (h *Handler) listCurrencies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.ListCurrencies(r.Context()))
}

// getSettings handles GET /api/settings.
func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetSettings(r.Context(), viewer(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// saveSettings handles PUT /api/settings.
func (h *Handler) saveSettings(w http.ResponseWriter, r *http.Request) {
	var req app.SaveSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.SaveSettings(r.Context(), viewer(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}
