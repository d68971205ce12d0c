package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/salesboard/internal/api/response"
	"github.com/kiranshivaraju/salesboard/internal/sales"
	"github.com/kiranshivaraju/salesboard/internal/store"
	"github.com/kiranshivaraju/salesboard/pkg/models"
)

// SalesService defines the record operations the sales handlers depend on.
type SalesService interface {
	List(ctx context.Context, sel models.Selector, q store.SaleQuery) (*sales.Page, error)
	Get(ctx context.Context, ref models.TenantRef, id uuid.UUID) (*models.Sale, error)
	Create(ctx context.Context, ref models.TenantRef, sale *models.Sale) (*models.Sale, error)
	Update(ctx context.Context, ref models.TenantRef, id uuid.UUID, patch sales.Patch) (*models.Sale, error)
	Delete(ctx context.Context, ref models.TenantRef, id uuid.UUID) error
}

// NewListSalesHandler returns an http.HandlerFunc for GET /api/v1/sales.
func NewListSalesHandler(svc SalesService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		sel, err := models.ParseSelector(q.Get("companyId"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		page, err := queryInt(q.Get("page"))
		if err != nil || page < 0 {
			badRequest(w, "page must be a positive integer")
			return
		}
		limit, err := queryInt(q.Get("limit"))
		if err != nil || limit < 0 {
			badRequest(w, "limit must be a positive integer")
			return
		}

		result, err := svc.List(r.Context(), sel, store.SaleQuery{
			SaleFilter: models.SaleFilter{
				Branch:          q.Get("branch"),
				City:            q.Get("city"),
				CustomerType:    q.Get("customer_type"),
				ProductCategory: q.Get("product_category"),
			},
			Page:  page,
			Limit: limit,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		response.Collection(w, result.Sales,
			response.NewPaginationMeta(result.Page, result.Limit, result.Total))
	}
}

// NewGetSaleHandler returns an http.HandlerFunc for GET /api/v1/sales/{id}.
func NewGetSaleHandler(svc SalesService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ref, ok := saleTarget(w, r, r.URL.Query().Get("companyId"))
		if !ok {
			return
		}

		sale, err := svc.Get(r.Context(), ref, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, sale)
	}
}

type createSaleRequest struct {
	models.Sale
	Company string `json:"companyId"`
}

// NewCreateSaleHandler returns an http.HandlerFunc for POST /api/v1/sales.
func NewCreateSaleHandler(svc SalesService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSaleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "Invalid JSON body")
			return
		}

		ref, err := models.ParseTenantRef(req.Company)
		if err != nil {
			writeError(w, r, err)
			return
		}

		sale := req.Sale
		sale.ID = uuid.Nil
		sale.CompanyID = nil
		created, err := svc.Create(r.Context(), ref, &sale)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Created(w, created)
	}
}

type updateSaleRequest struct {
	sales.Patch
	Company *string `json:"companyId"`
}

// NewUpdateSaleHandler returns an http.HandlerFunc for PUT /api/v1/sales/{id}.
// The company may be given in the body or the query string.
func NewUpdateSaleHandler(svc SalesService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateSaleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "Invalid JSON body")
			return
		}

		company := r.URL.Query().Get("companyId")
		if req.Company != nil {
			company = *req.Company
		}
		id, ref, ok := saleTarget(w, r, company)
		if !ok {
			return
		}

		updated, err := svc.Update(r.Context(), ref, id, req.Patch)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, updated)
	}
}

// NewDeleteSaleHandler returns an http.HandlerFunc for DELETE /api/v1/sales/{id}.
func NewDeleteSaleHandler(svc SalesService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ref, ok := saleTarget(w, r, r.URL.Query().Get("companyId"))
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), ref, id); err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, map[string]string{"message": "Sale deleted successfully"})
	}
}

// saleTarget parses the {id} path parameter and the company reference,
// writing a 400 on failure.
func saleTarget(w http.ResponseWriter, r *http.Request, company string) (uuid.UUID, models.TenantRef, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "id must be a valid UUID")
		return uuid.Nil, models.TenantRef{}, false
	}
	ref, err := models.ParseTenantRef(company)
	if err != nil {
		writeError(w, r, err)
		return uuid.Nil, models.TenantRef{}, false
	}
	return id, ref, true
}

func queryInt(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
