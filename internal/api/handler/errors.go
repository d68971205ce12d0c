package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/salesboard/internal/api/response"
	"github.com/kiranshivaraju/salesboard/internal/ingest"
	"github.com/kiranshivaraju/salesboard/internal/sales"
	"github.com/kiranshivaraju/salesboard/internal/store"
	"github.com/kiranshivaraju/salesboard/internal/tenant"
	"github.com/kiranshivaraju/salesboard/pkg/models"
)

// writeError maps service errors onto the error envelope. Anything
// unrecognised is a 500 carrying the underlying message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ingest.ErrEmptyUpload),
		errors.Is(err, ingest.ErrUnreadableUpload),
		errors.Is(err, models.ErrInvalidSelector),
		errors.Is(err, sales.ErrInvalidSale):
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case errors.Is(err, tenant.ErrBuiltInTenant):
		response.Error(w, http.StatusBadRequest, "BUILTIN_TENANT", err.Error(), nil)
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, sales.ErrConflict):
		response.Error(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error(), nil)
	}
}

func badRequest(w http.ResponseWriter, message string) {
	response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", message, nil)
}
