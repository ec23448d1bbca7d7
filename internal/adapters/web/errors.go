package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"invoice-studio/internal/app"
	"invoice-studio/internal/core"
	"invoice-studio/internal/invoice"
	"invoice-studio/internal/logger"
	"invoice-studio/internal/pdf"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeFieldError(w, r, message, code, "", status)
}

func writeFieldError(w http.ResponseWriter, r *http.Request, message, code, field string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		Field:     field,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeServiceError maps an application error onto a status and code.
// Anything unrecognised is logged and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *invoice.ValidationError
	var ce *pdf.ConversionError
	field := ""
	if errors.As(err, &ve) {
		field = ve.Field
	}

	switch {
	case errors.Is(err, invoice.ErrTemplateNotFound):
		writeFieldError(w, r, "template not found", "TEMPLATE_NOT_FOUND", field, http.StatusUnprocessableEntity)
	case errors.Is(err, invoice.ErrInvalidInput):
		writeFieldError(w, r, err.Error(), "VALIDATION_FAILED", field, http.StatusBadRequest)
	case errors.Is(err, core.ErrInvoiceNotFound):
		writeError(w, r, "invoice not found", "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, core.ErrForbidden):
		writeError(w, r, "forbidden", "FORBIDDEN", http.StatusForbidden)
	case errors.Is(err, core.ErrDuplicateInvoiceNumber):
		writeFieldError(w, r, err.Error(), "DUPLICATE_INVOICE_NUMBER", "invoice_number", http.StatusConflict)
	case errors.Is(err, app.ErrNotConfigured):
		writeError(w, r, err.Error(), "NOT_CONFIGURED", http.StatusServiceUnavailable)
	case pdf.IsTransient(err):
		w.Header().Set("Retry-After", "5")
		writeError(w, r, "pdf conversion temporarily unavailable", "PDF_UNAVAILABLE", http.StatusServiceUnavailable)
	case errors.As(err, &ce):
		writeError(w, r, "pdf conversion failed", "PDF_FAILED", http.StatusUnprocessableEntity)
	default:
		l := logger.WithRequestID(requestIDFromContext(r.Context()))
		l.Error().Err(err).
			Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
