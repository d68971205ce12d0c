package handler

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/salesboard/internal/api/response"
	"github.com/kiranshivaraju/salesboard/pkg/models"
)

// Summarizer defines the analytics interface the handler depends on.
type Summarizer interface {
	Summary(ctx context.Context, sel models.Selector) (*models.Summary, error)
}

// NewSummaryHandler returns an http.HandlerFunc for GET /api/v1/analytics/summary.
func NewSummaryHandler(svc Summarizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sel, err := models.ParseSelector(r.URL.Query().Get("companyId"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		sum, err := svc.Summary(r.Context(), sel)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, sum)
	}
}
