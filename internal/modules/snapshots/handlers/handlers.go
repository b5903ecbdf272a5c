// Package handlers provides HTTP handlers for portfolio read views.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/capitalx/capitalx/internal/domain"
	"github.com/capitalx/capitalx/internal/modules/snapshots"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles portfolio read requests
type Handler struct {
	service *snapshots.Service
	log     zerolog.Logger
}

// NewHandler creates a new snapshot handler
func NewHandler(service *snapshots.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "snapshots").Logger(),
	}
}

// HandleListCustomers handles GET /api/portfolio/customers
func (h *Handler) HandleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.ListCustomers(r.Context())
	h.respond(w, customers, err)
}

// HandleGetCustomerByCode handles GET /api/portfolio/customers/by-code/{code}
func (h *Handler) HandleGetCustomerByCode(w http.ResponseWriter, r *http.Request) {
	customer, err := h.service.GetCustomerByCode(r.Context(), chi.URLParam(r, "code"))
	h.respond(w, customer, err)
}

// HandleGetProfile handles GET /api/portfolio/customers/{customerID}/profile
func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.int64Param(w, r, "customerID")
	if !ok {
		return
	}
	customer, err := h.service.GetCustomer(r.Context(), id)
	h.respond(w, customer, err)
}

// HandleGetLatestSnapshot handles GET .../{customerID}/portfolio/latest
func (h *Handler) HandleGetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := h.int64Param(w, r, "customerID")
	if !ok {
		return
	}
	snap, err := h.service.GetLatestSnapshot(r.Context(), id)
	h.respond(w, snap, err)
}

// HandleGetHistory handles GET .../{customerID}/portfolio/history
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.int64Param(w, r, "customerID")
	if !ok {
		return
	}
	snaps, err := h.service.ListSnapshots(r.Context(), id)
	h.respond(w, snaps, err)
}

// HandleGetSnapshot handles GET .../{customerID}/portfolio/snapshot/{uploadID}
func (h *Handler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := h.int64Param(w, r, "customerID")
	if !ok {
		return
	}
	uploadID, ok := h.int64Param(w, r, "uploadID")
	if !ok {
		return
	}
	snap, err := h.service.GetSnapshot(r.Context(), id, uploadID)
	h.respond(w, snap, err)
}

// HandleGetByPeriod handles GET .../{customerID}/portfolio/by-period?periodType=
func (h *Handler) HandleGetByPeriod(w http.ResponseWriter, r *http.Request) {
	id, ok := h.int64Param(w, r, "customerID")
	if !ok {
		return
	}
	periodType, err := domain.ParsePeriodType(r.URL.Query().Get("periodType"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snaps, err := h.service.ListSnapshotsByPeriod(r.Context(), id, periodType)
	h.respond(w, snaps, err)
}

// HandleGetByYear handles GET .../{customerID}/portfolio/by-year/{year}
func (h *Handler) HandleGetByYear(w http.ResponseWriter, r *http.Request) {
	id, ok := h.int64Param(w, r, "customerID")
	if !ok {
		return
	}
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}
	snaps, err := h.service.ListSnapshotsByYear(r.Context(), id, year)
	h.respond(w, snaps, err)
}

// HandleGetLatestHoldings handles GET .../{customerID}/holdings/latest
func (h *Handler) HandleGetLatestHoldings(w http.ResponseWriter, r *http.Request) {
	id, ok := h.int64Param(w, r, "customerID")
	if !ok {
		return
	}
	holdings, err := h.service.LatestHoldings(r.Context(), id)
	h.respond(w, holdings, err)
}

// holdingsHandler serves the customer's holdings selected by filter
func (h *Handler) holdingsHandler(filter snapshots.HoldingFilter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.int64Param(w, r, "customerID")
		if !ok {
			return
		}
		holdings, err := h.service.Holdings(r.Context(), id, filter)
		h.respond(w, holdings, err)
	}
}

// HandleGetHoldingsByType handles GET .../{customerID}/holdings/by-type/{assetType}
func (h *Handler) HandleGetHoldingsByType(w http.ResponseWriter, r *http.Request) {
	assetType, valid := domain.ParseAssetType(chi.URLParam(r, "assetType"))
	if !valid {
		h.writeError(w, http.StatusBadRequest, "invalid asset type")
		return
	}
	h.holdingsHandler(snapshots.OfType(assetType))(w, r)
}

// HandleGetAnnualReports handles GET .../{customerID}/annual-performance
func (h *Handler) HandleGetAnnualReports(w http.ResponseWriter, r *http.Request) {
	id, ok := h.int64Param(w, r, "customerID")
	if !ok {
		return
	}
	reports, err := h.service.ListAnnualReports(r.Context(), id)
	h.respond(w, reports, err)
}

// HandleGetAnnualReport handles GET .../{customerID}/annual-performance/{year}
func (h *Handler) HandleGetAnnualReport(w http.ResponseWriter, r *http.Request) {
	id, ok := h.int64Param(w, r, "customerID")
	if !ok {
		return
	}
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}
	report, err := h.service.GetAnnualReport(r.Context(), id, year)
	h.respond(w, report, err)
}

func (h *Handler) int64Param(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		h.writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return v, true
}

func (h *Handler) yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1000 || year > 9999 {
		h.writeError(w, http.StatusBadRequest, "invalid year")
		return 0, false
	}
	return year, true
}

// respond writes data in the standard envelope, or the error mapped to a status
func (h *Handler) respond(w http.ResponseWriter, data interface{}, err error) {
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to load portfolio view")
		h.writeError(w, http.StatusInternalServerError, "failed to load portfolio data")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
