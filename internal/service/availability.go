// Package service contains the slot allocator (availability, admission,
// status lifecycle) and the fare, settings and auth services around it.
package service

import (
	"context"
	"time"

	"github.com/urbannassau/rides/internal/calendar"
	"github.com/urbannassau/rides/internal/repository"
	"github.com/urbannassau/rides/pkg/logger"
)

// Slot is one offerable hour bucket.
type Slot struct {
	Hour      int    `json:"hour"`
	Available int    `json:"available"`
	Display   string `json:"display"`
}

// Availability is the open-slot listing of one day.
type Availability struct {
	Date            string `json:"date"`
	Slots           []Slot `json:"slots"`
	MaxSlotsPerHour int    `json:"maxSlotsPerHour"`
}

// ─── AvailabilityService ────────────────────────────────────

// AvailabilityService answers "which hours can still be booked on this day".
//
// Capacity is never stored: it is derived on every read from the count of
// non-cancelled bookings per hour, so a cancellation frees its slot without
// any bookkeeping.
type AvailabilityService struct {
	store  repository.BookingStore
	cache  repository.SlotCountCache
	policy calendar.Policy
	clock  calendar.Clock
	log    logger.Logger
}

// NewAvailabilityService creates the availability query. cache may be nil.
func NewAvailabilityService(
	store repository.BookingStore,
	cache repository.SlotCountCache,
	policy calendar.Policy,
	clock calendar.Clock,
	log logger.Logger,
) *AvailabilityService {
	if cache == nil {
		cache = repository.NopSlotCache{}
	}
	return &AvailabilityService{
		store:  store,
		cache:  cache,
		policy: policy,
		clock:  clock,
		log:    logger.ForComponent(log, "availability"),
	}
}

// Availability lists the open hours of date ("YYYY-MM-DD").
//
// Days in the past or beyond the horizon yield an empty list, not an error.
// A malformed date fails with ErrInvalidDate.
func (s *AvailabilityService) Availability(ctx context.Context, date string) (*Availability, error) {
	day, err := s.policy.ParseDate(date)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	result := &Availability{
		Date:            s.policy.FormatDate(day),
		Slots:           []Slot{},
		MaxSlotsPerHour: s.policy.CapacityPerHour,
	}
	if !s.policy.IsWithinBookableRange(day, now) {
		return result, nil
	}

	counts, err := s.counts(ctx, day)
	if err != nil {
		return nil, err
	}
	result.Slots = OpenSlots(s.policy, day, now, counts)
	return result, nil
}

func (s *AvailabilityService) counts(ctx context.Context, day time.Time) (map[int]int, error) {
	key := s.policy.FormatDate(day)
	if counts, ok := s.cache.Get(ctx, key); ok {
		return counts, nil
	}

	// The generation is read before counting: a cancellation that commits
	// while the count runs bumps it, and the stale counts are not cached.
	gen, cacheable := s.cache.Generation(ctx, key)

	start, end := s.policy.Bounds(day)
	counts, err := s.store.CountByHour(ctx, start, end)
	if err != nil {
		s.log.Error("count bookings failed", "date", key, "error", err)
		return nil, err
	}
	if cacheable {
		s.cache.Set(ctx, key, gen, counts)
	}
	return counts, nil
}

// OpenSlots applies the advance-notice buffer and capacity to per-hour counts.
// An hour h on the current day is offered only when h > currentHour + buffer.
func OpenSlots(policy calendar.Policy, day, now time.Time, counts map[int]int) []Slot {
	cutoff := policy.BufferCutoff(day, now)
	slots := []Slot{}
	for _, hour := range policy.Hours() {
		if hour <= cutoff {
			continue
		}
		available := policy.CapacityPerHour - counts[hour]
		if available <= 0 {
			continue
		}
		slots = append(slots, Slot{
			Hour:      hour,
			Available: available,
			Display:   calendar.FormatHour(hour),
		})
	}
	return slots
}
