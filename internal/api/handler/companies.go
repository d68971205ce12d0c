package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/salesboard/internal/api/response"
	"github.com/kiranshivaraju/salesboard/pkg/models"
)

// Companies defines the tenant registry interface the handlers depend on.
type Companies interface {
	List(ctx context.Context) ([]*models.Tenant, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// NewListCompaniesHandler returns an http.HandlerFunc for GET /api/v1/companies.
func NewListCompaniesHandler(svc Companies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenants, err := svc.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, tenants)
	}
}

// NewDeleteCompanyHandler returns an http.HandlerFunc for DELETE /api/v1/companies/{id}.
func NewDeleteCompanyHandler(svc Companies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			badRequest(w, "id must be a valid UUID")
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, map[string]string{"message": "Company deleted successfully"})
	}
}
