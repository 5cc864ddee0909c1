package handler

import (
	"net/http"

	"github.com/urbannassau/rides/internal/model"
	"github.com/urbannassau/rides/internal/service"
	"github.com/urbannassau/rides/pkg/logger"
)

// PricingHandler handles fare estimates, quote history and fare settings.
type PricingHandler struct {
	fares    *service.FareService
	settings *service.SettingsService
	log      logger.Logger
}

// NewPricingHandler creates a new pricing handler.
func NewPricingHandler(fares *service.FareService, settings *service.SettingsService, log logger.Logger) *PricingHandler {
	return &PricingHandler{fares: fares, settings: settings, log: log}
}

// Estimate handles POST /api/fares/estimate
//
// Request body:
//
//	{"serviceType": "ride-premium", "pickupAddress": "...", "dropoffAddress": "...",
//	 "distance": 8.5, "passengers": 2}
//
// Response: fare breakdown plus a WhatsApp link carrying the quote.
func (h *PricingHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req service.FareRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	est, err := h.fares.Estimate(r.Context(), req)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

// SaveQuote handles POST /api/fares
func (h *PricingHandler) SaveQuote(w http.ResponseWriter, r *http.Request) {
	var q model.FareQuote
	if !decodeJSON(w, r, &q) {
		return
	}

	saved, err := h.fares.SaveQuote(r.Context(), q)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// GetSettings handles GET /api/settings
func (h *PricingHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	fs, err := h.settings.Get(r.Context())
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, fs)
}

// UpdateSettings handles PUT /api/settings (admin only)
func (h *PricingHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var fs model.FareSettings
	if !decodeJSON(w, r, &fs) {
		return
	}

	updated, err := h.settings.Update(r.Context(), fs)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
