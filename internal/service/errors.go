package service

import (
	"errors"
	"fmt"

	"github.com/urbannassau/rides/internal/calendar"
	"github.com/urbannassau/rides/internal/model"
)

// ─── Sentinels ──────────────────────────────────────────────

var (
	// ErrBookingNotFound is returned when no booking has the given id.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrInvalidTarget is returned when a transition target is not confirmed or cancelled.
	ErrInvalidTarget = errors.New(`status must be "confirmed" or "cancelled"`)

	// ErrOutsideBookingWindow marks dates in the past or beyond the horizon.
	ErrOutsideBookingWindow = errors.New("date outside booking window")

	// ErrSettingsNotFound is returned before fare settings are seeded.
	ErrSettingsNotFound = errors.New("fare settings not found")

	// ErrInvalidCredentials is returned for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned for a missing, malformed or expired admin token.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrInvalidDate re-exports the calendar error for callers of this package.
	ErrInvalidDate = calendar.ErrInvalidDate
)

// ─── Typed errors ───────────────────────────────────────────

// ValidationError reports one bad input field.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s %s", e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Msg: msg}
}

// SlotUnavailableError is returned when the requested hour is full at write
// time. Next is the first later hour with free capacity, or nil when the
// rest of the day is full.
type SlotUnavailableError struct {
	Hour int
	Next *int
}

func (e *SlotUnavailableError) Error() string {
	if e.Next == nil {
		return "No slots available for this day"
	}
	return "Slot not available"
}

// AdvanceNoticeError is returned when the slot starts too soon.
type AdvanceNoticeError struct {
	Hours int
}

func (e *AdvanceNoticeError) Error() string {
	unit := "hours"
	if e.Hours == 1 {
		unit = "hour"
	}
	return fmt.Sprintf("Bookings must be at least %d %s in advance", e.Hours, unit)
}

// AlreadyTransitionedError is returned when a booking has left pending.
type AlreadyTransitionedError struct {
	Status model.BookingStatus
}

func (e *AlreadyTransitionedError) Error() string {
	return fmt.Sprintf("Booking is already %s", e.Status)
}
