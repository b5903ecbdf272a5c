package handlers

import (
	"github.com/capitalx/capitalx/internal/modules/snapshots"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio read routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio/customers", func(r chi.Router) {
		r.Get("/", h.HandleListCustomers)
		r.Get("/by-code/{code}", h.HandleGetCustomerByCode)

		r.Route("/{customerID}", func(r chi.Router) {
			r.Get("/profile", h.HandleGetProfile)
			r.Get("/summary", h.HandleGetLatestSnapshot)

			r.Get("/portfolio/latest", h.HandleGetLatestSnapshot)
			r.Get("/portfolio/history", h.HandleGetHistory)
			r.Get("/portfolio/snapshot/{uploadID}", h.HandleGetSnapshot)
			r.Get("/portfolio/by-period", h.HandleGetByPeriod)
			r.Get("/portfolio/by-year/{year}", h.HandleGetByYear)

			r.Get("/holdings/latest", h.HandleGetLatestHoldings)
			r.Get("/holdings/active", h.holdingsHandler(snapshots.Active))
			r.Get("/holdings/exited", h.holdingsHandler(snapshots.Exited))
			r.Get("/holdings/profitable", h.holdingsHandler(snapshots.Profitable))
			r.Get("/holdings/losses", h.holdingsHandler(snapshots.Losses))
			r.Get("/holdings/by-type/{assetType}", h.HandleGetHoldingsByType)

			r.Get("/annual-performance", h.HandleGetAnnualReports)
			r.Get("/annual-performance/{year}", h.HandleGetAnnualReport)
		})
	})
}
