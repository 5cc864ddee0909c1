package handler

import (
	"net/http"
	"strings"

	"github.com/urbannassau/rides/internal/model"
	"github.com/urbannassau/rides/internal/service"
	"github.com/urbannassau/rides/pkg/logger"
)

// BookingHandler handles slot availability, booking submission and status
// transitions.
type BookingHandler struct {
	availability *service.AvailabilityService
	bookings     *service.BookingService
	lifecycle    *service.LifecycleService
	log          logger.Logger
}

// NewBookingHandler creates a new booking handler.
func NewBookingHandler(
	availability *service.AvailabilityService,
	bookings *service.BookingService,
	lifecycle *service.LifecycleService,
	log logger.Logger,
) *BookingHandler {
	return &BookingHandler{
		availability: availability,
		bookings:     bookings,
		lifecycle:    lifecycle,
		log:          log,
	}
}

// Availability handles GET /api/bookings?date=YYYY-MM-DD
//
// Response codes:
//
//	200  {date, slots: [{hour, available, display}], maxSlotsPerHour}
//	400  missing or malformed date
func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, "Date is required")
		return
	}

	res, err := h.availability.Availability(r.Context(), date)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type createBookingRequest struct {
	BookingDate    string   `json:"bookingDate"`
	BookingHour    *int     `json:"bookingHour"`
	ServiceType    string   `json:"serviceType"`
	PickupAddress  string   `json:"pickupAddress"`
	DropoffAddress string   `json:"dropoffAddress"`
	Distance       *float64 `json:"distance"`
	Passengers     *int     `json:"passengers"`
	TotalFare      *float64 `json:"totalFare"`
	CustomerPhone  string   `json:"customerPhone"`
}

type bookingSummary struct {
	ID     int64               `json:"id"`
	Date   string              `json:"date"`
	Hour   int                 `json:"hour"`
	Status model.BookingStatus `json:"status"`
}

type createBookingResponse struct {
	Success     bool           `json:"success"`
	Booking     bookingSummary `json:"booking"`
	WhatsAppURL string         `json:"whatsappUrl,omitempty"`
}

// Create handles POST /api/bookings
//
// Response codes:
//
//	201  booking created in pending status
//	400  validation failure, bad date, or less than the advance notice
//	409  hour full; nextAvailable names the next hour with room, if any
//	500  store failure
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.bookings.CreateBooking(r.Context(), service.BookingRequest{
		BookingDate:    req.BookingDate,
		BookingHour:    req.BookingHour,
		ServiceType:    req.ServiceType,
		PickupAddress:  req.PickupAddress,
		DropoffAddress: req.DropoffAddress,
		Distance:       req.Distance,
		Passengers:     req.Passengers,
		TotalFare:      req.TotalFare,
		CustomerPhone:  req.CustomerPhone,
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, createBookingResponse{
		Success: true,
		Booking: bookingSummary{
			ID:     res.Booking.ID,
			Date:   res.Date,
			Hour:   res.Booking.BookingHour,
			Status: res.Booking.Status,
		},
		WhatsAppURL: res.WhatsAppURL,
	})
}

type transitionRequest struct {
	Status string `json:"status"`
}

type transitionResponse struct {
	Success bool           `json:"success"`
	Booking *model.Booking `json:"booking"`
}

// Transition handles PATCH /api/bookings/{id} (admin only)
//
// Response codes:
//
//	200  booking moved to the requested status
//	400  status is not "confirmed" or "cancelled", or id is not a number
//	401  missing or invalid admin token (middleware)
//	404  booking not found
//	409  booking already confirmed or cancelled
func (h *BookingHandler) Transition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	target := model.BookingStatus(strings.TrimSpace(req.Status))
	if target != model.StatusConfirmed && target != model.StatusCancelled {
		respondError(w, r, h.log, service.ErrInvalidTarget)
		return
	}

	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid booking ID")
		return
	}

	b, err := h.lifecycle.Transition(r.Context(), id, target)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, transitionResponse{Success: true, Booking: b})
}
