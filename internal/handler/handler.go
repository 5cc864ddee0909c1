// Package handler contains HTTP request handlers for the booking API.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/urbannassau/rides/internal/calendar"
	"github.com/urbannassau/rides/internal/middleware"
	"github.com/urbannassau/rides/internal/service"
	"github.com/urbannassau/rides/pkg/logger"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// writeJSON is a helper that writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

type errorBody struct {
	Error         string    `json:"error"`
	Field         string    `json:"field,omitempty"`
	NextAvailable *nextSlot `json:"nextAvailable,omitempty"`
}

type nextSlot struct {
	Hour    int    `json:"hour"`
	Display string `json:"display"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		msg := "Invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "Request body is required"
		}
		writeError(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

// pathID parses the {id} route variable.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ─── Error mapping ──────────────────────────────────────────

// respondError maps service errors to status codes:
//
//	400  validation, invalid date, advance notice, invalid status value
//	401  bad credentials or token
//	404  booking or settings not found
//	409  slot full, booking already transitioned
//	500  anything else (details logged, not returned)
func respondError(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	var (
		bad     *service.ValidationError
		full    *service.SlotUnavailableError
		notice  *service.AdvanceNoticeError
		already *service.AlreadyTransitionedError
	)
	switch {
	case errors.As(err, &full):
		body := errorBody{Error: full.Error()}
		if full.Next != nil {
			body.NextAvailable = &nextSlot{Hour: *full.Next, Display: calendar.FormatHour(*full.Next)}
		}
		writeJSON(w, http.StatusConflict, body)
	case errors.As(err, &already):
		writeError(w, http.StatusConflict, already.Error())
	case errors.As(err, &notice):
		writeError(w, http.StatusBadRequest, notice.Error())
	case errors.As(err, &bad):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: bad.Error(), Field: bad.Field})
	case errors.Is(err, calendar.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "Invalid date format")
	case errors.Is(err, service.ErrInvalidTarget):
		writeError(w, http.StatusBadRequest, `Status must be "confirmed" or "cancelled"`)
	case errors.Is(err, service.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "Booking not found")
	case errors.Is(err, service.ErrSettingsNotFound):
		writeError(w, http.StatusNotFound, "Fare settings not found")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, service.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	default:
		log.Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err,
			"request_id", middleware.GetRequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
