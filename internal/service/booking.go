package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/urbannassau/rides/internal/calendar"
	"github.com/urbannassau/rides/internal/model"
	"github.com/urbannassau/rides/internal/repository"
	"github.com/urbannassau/rides/pkg/logger"
	"github.com/urbannassau/rides/pkg/metrics"
	"github.com/urbannassau/rides/pkg/whatsapp"
)

// BookingRequest is a booking submission. Optional numeric fields are
// pointers so "absent" can be told apart from zero.
type BookingRequest struct {
	BookingDate    string
	BookingHour    *int
	ServiceType    string
	PickupAddress  string
	DropoffAddress string
	Distance       *float64
	Passengers     *int
	TotalFare      *float64
	CustomerPhone  string
}

// Admission is the outcome of an admitted booking.
type Admission struct {
	Booking     *model.Booking
	Date        string
	WhatsAppURL string
}

// ─── BookingService ─────────────────────────────────────────

// BookingService is the admission control of the slot allocator.
//
// Capacity is re-counted at submission time inside BookingStore.WithSlot,
// never trusted from an earlier availability read. Two clients that both saw
// "1 slot free" are serialized on the (date, hour) bucket:
//
//	Client A: lock bucket → count=1 → insert → commit   (admitted)
//	Client B: waits       → count=2 → full   → rollback (next available offered)
type BookingService struct {
	store          repository.BookingStore
	cache          repository.SlotCountCache
	policy         calendar.Policy
	clock          calendar.Clock
	metrics        *metrics.Metrics
	log            logger.Logger
	businessNumber string
}

// NewBookingService creates the admission service. cache may be nil.
func NewBookingService(
	store repository.BookingStore,
	cache repository.SlotCountCache,
	policy calendar.Policy,
	clock calendar.Clock,
	m *metrics.Metrics,
	log logger.Logger,
	businessNumber string,
) *BookingService {
	if cache == nil {
		cache = repository.NopSlotCache{}
	}
	return &BookingService{
		store:          store,
		cache:          cache,
		policy:         policy,
		clock:          clock,
		metrics:        m,
		log:            logger.ForComponent(log, "booking"),
		businessNumber: businessNumber,
	}
}

// CreateBooking validates req, re-checks capacity at write time and persists
// a pending booking.
//
// Failure order: missing field → hour outside operating hours → field bounds
// → bad or out-of-window date → slot full (with next available hour) →
// advance notice.
func (s *BookingService) CreateBooking(ctx context.Context, req BookingRequest) (*Admission, error) {
	now := s.clock.Now()

	in, err := s.validate(req, now)
	if err != nil {
		s.reject(err)
		return nil, err
	}

	start, end := s.policy.Bounds(in.day)
	booking := &model.Booking{
		BookingDate:    in.day,
		BookingHour:    in.hour,
		ServiceType:    in.serviceType,
		PickupAddress:  in.pickup,
		DropoffAddress: in.dropoff,
		Distance:       in.distance,
		Passengers:     in.passengers,
		TotalFare:      in.totalFare,
		CustomerPhone:  in.phone,
		Status:         model.StatusPending,
	}

	err = s.store.WithSlot(ctx, in.day, in.hour, func(tx repository.SlotTx) error {
		counts, err := tx.CountByHour(ctx, start, end)
		if err != nil {
			return err
		}

		if counts[in.hour] >= s.policy.CapacityPerHour {
			return &SlotUnavailableError{Hour: in.hour, Next: s.nextOpenHour(counts, in.hour)}
		}

		// Re-validated here even though availability already hides these
		// hours: the client may be submitting from a stale page.
		if !s.policy.MeetsAdvanceNotice(in.day, in.hour, now) {
			return &AdvanceNoticeError{Hours: s.policy.MinAdvanceHours}
		}

		return tx.Insert(ctx, booking)
	})
	if err != nil {
		s.reject(err)
		var full *SlotUnavailableError
		var notice *AdvanceNoticeError
		if errors.As(err, &full) || errors.As(err, &notice) {
			s.log.Info("booking refused",
				"date", s.policy.FormatDate(in.day), "hour", in.hour, "reason", err.Error())
			return nil, err
		}
		s.log.Error("booking admission failed",
			"date", s.policy.FormatDate(in.day), "hour", in.hour, "error", err)
		return nil, fmt.Errorf("booking: %w", err)
	}

	date := s.policy.FormatDate(in.day)
	s.cache.Invalidate(ctx, date)
	s.metrics.BookingsAdmitted.Inc()
	s.log.Info("booking admitted", "id", booking.ID, "date", date, "hour", in.hour)

	return &Admission{
		Booking:     booking,
		Date:        date,
		WhatsAppURL: s.handoffLink(booking, date),
	}, nil
}

// nextOpenHour searches hour+1 .. LastHour for the first bucket with room.
func (s *BookingService) nextOpenHour(counts map[int]int, hour int) *int {
	for h := hour + 1; h <= s.policy.LastHour; h++ {
		if counts[h] < s.policy.CapacityPerHour {
			next := h
			return &next
		}
	}
	return nil
}

func (s *BookingService) handoffLink(b *model.Booking, date string) string {
	if s.businessNumber == "" {
		return ""
	}
	return whatsapp.Link(s.businessNumber, whatsapp.BookingMessage(whatsapp.Booking{
		ID:          b.ID,
		Date:        date,
		HourDisplay: calendar.FormatHour(b.BookingHour),
		ServiceType: b.ServiceType,
		Pickup:      b.PickupAddress,
		Dropoff:     b.DropoffAddress,
		Passengers:  b.Passengers,
		TotalFare:   b.TotalFare,
	}))
}

func (s *BookingService) reject(err error) {
	var (
		full   *SlotUnavailableError
		notice *AdvanceNoticeError
		bad    *ValidationError
	)
	reason := metrics.ReasonStoreError
	switch {
	case errors.As(err, &full) && full.Next != nil:
		reason = metrics.ReasonSlotFull
	case errors.As(err, &full):
		reason = metrics.ReasonDayFull
	case errors.As(err, &notice):
		reason = metrics.ReasonAdvanceNotice
	case errors.Is(err, ErrOutsideBookingWindow):
		reason = metrics.ReasonHorizon
	case errors.As(err, &bad):
		reason = metrics.ReasonValidation
	}
	s.metrics.BookingsRejected.WithLabelValues(reason).Inc()
}

// ─── Validation ─────────────────────────────────────────────

type admissionInput struct {
	day         time.Time
	hour        int
	serviceType string
	pickup      string
	dropoff     string
	distance    float64
	passengers  int
	totalFare   float64
	phone       string
}

func (s *BookingService) validate(req BookingRequest, now time.Time) (*admissionInput, error) {
	in := &admissionInput{
		serviceType: strings.TrimSpace(req.ServiceType),
		pickup:      strings.TrimSpace(req.PickupAddress),
		dropoff:     strings.TrimSpace(req.DropoffAddress),
		phone:       strings.TrimSpace(req.CustomerPhone),
		passengers:  1,
	}
	date := strings.TrimSpace(req.BookingDate)

	// 1. Required fields.
	switch {
	case date == "":
		return nil, invalid("bookingDate", "is required")
	case req.BookingHour == nil:
		return nil, invalid("bookingHour", "is required")
	case in.serviceType == "":
		return nil, invalid("serviceType", "is required")
	case in.pickup == "":
		return nil, invalid("pickupAddress", "is required")
	case in.dropoff == "":
		return nil, invalid("dropoffAddress", "is required")
	}

	// 2. Operating hours.
	in.hour = *req.BookingHour
	if !s.policy.InOperatingHours(in.hour) {
		return nil, invalid("bookingHour", fmt.Sprintf("must be between %d and %d", s.policy.FirstHour, s.policy.LastHour))
	}

	// 3. Field bounds.
	switch {
	case utf8.RuneCountInString(in.serviceType) > model.MaxServiceTypeLength:
		return nil, invalid("serviceType", fmt.Sprintf("must be at most %d characters", model.MaxServiceTypeLength))
	case utf8.RuneCountInString(in.pickup) > model.MaxAddressLength:
		return nil, invalid("pickupAddress", fmt.Sprintf("must be at most %d characters", model.MaxAddressLength))
	case utf8.RuneCountInString(in.dropoff) > model.MaxAddressLength:
		return nil, invalid("dropoffAddress", fmt.Sprintf("must be at most %d characters", model.MaxAddressLength))
	case utf8.RuneCountInString(in.phone) > model.MaxPhoneLength:
		return nil, invalid("customerPhone", fmt.Sprintf("must be at most %d characters", model.MaxPhoneLength))
	}
	if req.Passengers != nil {
		in.passengers = *req.Passengers
		if in.passengers < model.MinPassengers || in.passengers > model.MaxPassengers {
			return nil, invalid("passengers", fmt.Sprintf("must be between %d and %d", model.MinPassengers, model.MaxPassengers))
		}
	}
	if req.Distance != nil {
		in.distance = *req.Distance
		if !inRange(in.distance, model.MaxDistanceMiles) {
			return nil, invalid("distance", fmt.Sprintf("must be between 0 and %g", model.MaxDistanceMiles))
		}
	}
	if req.TotalFare != nil {
		in.totalFare = *req.TotalFare
		if !inRange(in.totalFare, model.MaxTotalFare) {
			return nil, invalid("totalFare", fmt.Sprintf("must be between 0 and %g", model.MaxTotalFare))
		}
	}

	// 4. Calendar date within the booking window.
	day, err := s.policy.ParseDate(date)
	if err != nil {
		return nil, &ValidationError{Field: "bookingDate", Msg: "must be a valid date (YYYY-MM-DD)", Err: err}
	}
	if s.policy.StartOfDay(day).Before(s.policy.StartOfDay(now)) {
		return nil, &ValidationError{Field: "bookingDate", Msg: "cannot be in the past", Err: ErrOutsideBookingWindow}
	}
	if !s.policy.IsWithinBookableRange(day, now) {
		return nil, &ValidationError{
			Field: "bookingDate",
			Msg:   fmt.Sprintf("cannot be more than %d days ahead", s.policy.HorizonDays),
			Err:   ErrOutsideBookingWindow,
		}
	}
	in.day = day

	return in, nil
}

func inRange(v, limit float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0 && v <= limit
}
