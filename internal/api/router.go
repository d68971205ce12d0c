package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/salesboard/internal/api/middleware"
	"github.com/kiranshivaraju/salesboard/internal/api/response"
	"github.com/kiranshivaraju/salesboard/internal/metrics"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit
	// Metrics enables request metrics and the /metrics endpoint when set.
	Metrics *metrics.Metrics

	HealthHandler        http.HandlerFunc
	UploadHandler        http.HandlerFunc
	ListCompaniesHandler http.HandlerFunc
	DeleteCompanyHandler http.HandlerFunc
	ListSalesHandler     http.HandlerFunc
	CreateSaleHandler    http.HandlerFunc
	GetSaleHandler       http.HandlerFunc
	UpdateSaleHandler    http.HandlerFunc
	DeleteSaleHandler    http.HandlerFunc
	SummaryHandler       http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	if deps.Metrics != nil {
		r.Use(mw.Metrics(deps.Metrics))
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Post("/api/v1/upload", orNotImplemented(deps.UploadHandler))

		r.Get("/api/v1/companies", orNotImplemented(deps.ListCompaniesHandler))
		r.Delete("/api/v1/companies/{id}", orNotImplemented(deps.DeleteCompanyHandler))

		r.Get("/api/v1/sales", orNotImplemented(deps.ListSalesHandler))
		r.Post("/api/v1/sales", orNotImplemented(deps.CreateSaleHandler))
		r.Get("/api/v1/sales/{id}", orNotImplemented(deps.GetSaleHandler))
		r.Put("/api/v1/sales/{id}", orNotImplemented(deps.UpdateSaleHandler))
		r.Delete("/api/v1/sales/{id}", orNotImplemented(deps.DeleteSaleHandler))

		r.Get("/api/v1/analytics/summary", orNotImplemented(deps.SummaryHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
