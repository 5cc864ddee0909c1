package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/urbannassau/rides/internal/calendar"
	"github.com/urbannassau/rides/internal/model"
	"github.com/urbannassau/rides/internal/service"
	"github.com/urbannassau/rides/pkg/logger"
	"github.com/urbannassau/rides/pkg/manifest"
)

// AdminHandler serves the administrator booking views.
type AdminHandler struct {
	lifecycle *service.LifecycleService
	clock     calendar.Clock
	log       logger.Logger
	title     string
}

// NewAdminHandler creates an admin handler. title heads the PDF manifest.
func NewAdminHandler(lifecycle *service.LifecycleService, clock calendar.Clock, log logger.Logger, title string) *AdminHandler {
	return &AdminHandler{lifecycle: lifecycle, clock: clock, log: log, title: title}
}

type listResponse struct {
	Bookings []model.Booking `json:"bookings"`
	Count    int             `json:"count"`
}

// List handles GET /api/admin/bookings?date=&from=&to=&status=&limit=
//
// date is shorthand for from=date&to=date.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := service.ListQuery{
		From:   strings.TrimSpace(q.Get("from")),
		To:     strings.TrimSpace(q.Get("to")),
		Status: strings.TrimSpace(q.Get("status")),
	}
	if date := strings.TrimSpace(q.Get("date")); date != "" {
		query.From, query.To = date, date
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		query.Limit = n
	}

	bookings, err := h.lifecycle.List(r.Context(), query)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, listResponse{Bookings: bookings, Count: len(bookings)})
}

// Manifest handles GET /api/admin/bookings/manifest?date=YYYY-MM-DD
//
// Responds with application/pdf.
func (h *AdminHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, "Date is required")
		return
	}

	m, err := h.lifecycle.Manifest(r.Context(), date)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	sheet := manifest.Sheet{
		Title:       h.title,
		Date:        m.Date,
		GeneratedAt: h.clock.Now().In(m.Day.Location()).Format("2006-01-02 15:04"),
		Entries:     make([]manifest.Entry, 0, len(m.Bookings)),
	}
	for _, b := range m.Bookings {
		sheet.Entries = append(sheet.Entries, manifest.Entry{
			ID:          b.ID,
			Hour:        calendar.FormatHour(b.BookingHour),
			ServiceType: b.ServiceType,
			Pickup:      b.PickupAddress,
			Dropoff:     b.DropoffAddress,
			Passengers:  b.Passengers,
			Phone:       b.CustomerPhone,
			TotalFare:   b.TotalFare,
			Status:      string(b.Status),
		})
	}

	pdf, filename, err := manifest.Render(sheet)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
