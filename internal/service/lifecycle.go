package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/urbannassau/rides/internal/calendar"
	"github.com/urbannassau/rides/internal/model"
	"github.com/urbannassau/rides/internal/repository"
	"github.com/urbannassau/rides/pkg/logger"
	"github.com/urbannassau/rides/pkg/metrics"
)

// ─── LifecycleService ───────────────────────────────────────

// LifecycleService moves bookings out of pending and serves the
// administrator views.
//
// State transitions:
//   - pending → confirmed: keeps its slot.
//   - pending → cancelled: frees its slot (the next availability read
//     simply stops counting it).
//   - anything else: AlreadyTransitionedError.
type LifecycleService struct {
	store   repository.BookingStore
	cache   repository.SlotCountCache
	policy  calendar.Policy
	metrics *metrics.Metrics
	log     logger.Logger
}

// NewLifecycleService creates the status lifecycle service. cache may be nil.
func NewLifecycleService(
	store repository.BookingStore,
	cache repository.SlotCountCache,
	policy calendar.Policy,
	m *metrics.Metrics,
	log logger.Logger,
) *LifecycleService {
	if cache == nil {
		cache = repository.NopSlotCache{}
	}
	return &LifecycleService{
		store:   store,
		cache:   cache,
		policy:  policy,
		metrics: m,
		log:     logger.ForComponent(log, "lifecycle"),
	}
}

// Transition moves booking id from pending to target. The target is checked
// before the booking is looked up. Exactly one of several concurrent
// transitions of the same booking succeeds.
func (s *LifecycleService) Transition(ctx context.Context, id int64, target model.BookingStatus) (*model.Booking, error) {
	if target != model.StatusConfirmed && target != model.StatusCancelled {
		return nil, ErrInvalidTarget
	}
	if id <= 0 {
		return nil, invalid("id", "must be a positive integer")
	}

	b, err := s.store.TransitionStatus(ctx, id, model.StatusPending, target)
	if err != nil {
		var conflict *repository.StatusConflictError
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrBookingNotFound
		case errors.As(err, &conflict):
			return nil, &AlreadyTransitionedError{Status: conflict.Current}
		}
		s.log.Error("status transition failed", "id", id, "target", target, "error", err)
		return nil, fmt.Errorf("transition booking %d: %w", id, err)
	}

	if target == model.StatusCancelled {
		s.cache.Invalidate(ctx, s.policy.FormatDate(b.BookingDate))
	}
	s.metrics.StatusTransitions.WithLabelValues(string(target)).Inc()
	s.log.Info("booking transitioned", "id", id, "status", target)
	return b, nil
}

// Get returns one booking.
func (s *LifecycleService) Get(ctx context.Context, id int64) (*model.Booking, error) {
	b, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// ListQuery is the administrator listing filter as received from a caller.
// Dates are "YYYY-MM-DD" and may be empty.
type ListQuery struct {
	From   string
	To     string
	Status string
	Limit  int
}

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// List returns bookings newest first.
func (s *LifecycleService) List(ctx context.Context, q ListQuery) ([]model.Booking, error) {
	f := model.BookingFilter{Limit: q.Limit}
	if q.From != "" {
		from, _, err := s.policy.DayBounds(q.From)
		if err != nil {
			return nil, &ValidationError{Field: "from", Msg: "must be a valid date (YYYY-MM-DD)", Err: err}
		}
		f.From = from
	}
	if q.To != "" {
		_, to, err := s.policy.DayBounds(q.To)
		if err != nil {
			return nil, &ValidationError{Field: "to", Msg: "must be a valid date (YYYY-MM-DD)", Err: err}
		}
		f.To = to
	}
	if q.Status != "" {
		f.Status = model.BookingStatus(q.Status)
		if !f.Status.Valid() {
			return nil, invalid("status", "is not a known booking status")
		}
	}
	switch {
	case f.Limit <= 0:
		f.Limit = defaultListLimit
	case f.Limit > maxListLimit:
		f.Limit = maxListLimit
	}

	bookings, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// Manifest is the dispatch sheet of one day: every booking still holding
// capacity, in hour order.
type Manifest struct {
	Date     string
	Day      time.Time
	Bookings []model.Booking
}

// Manifest collects the non-cancelled bookings of date.
func (s *LifecycleService) Manifest(ctx context.Context, date string) (*Manifest, error) {
	start, end, err := s.policy.DayBounds(date)
	if err != nil {
		return nil, &ValidationError{Field: "date", Msg: "must be a valid date (YYYY-MM-DD)", Err: err}
	}

	all, err := s.store.List(ctx, model.BookingFilter{From: start, To: end, Limit: maxListLimit})
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", date, err)
	}

	active := make([]model.Booking, 0, len(all))
	for _, b := range all {
		if b.Status.HoldsCapacity() {
			active = append(active, b)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].BookingHour != active[j].BookingHour {
			return active[i].BookingHour < active[j].BookingHour
		}
		return active[i].ID < active[j].ID
	})

	return &Manifest{Date: s.policy.FormatDate(start), Day: start, Bookings: active}, nil
}
