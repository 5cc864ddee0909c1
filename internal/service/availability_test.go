package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/urbannassau/rides/internal/repository"
	"github.com/urbannassau/rides/pkg/logger"
)

// interleavedStore runs afterCount once, right after a day count has been
// read and before the caller sees it.
type interleavedStore struct {
	repository.BookingStore
	afterCount func()
}

func (s *interleavedStore) CountByHour(ctx context.Context, start, end time.Time) (map[int]int, error) {
	counts, err := s.BookingStore.CountByHour(ctx, start, end)
	if hook := s.afterCount; hook != nil {
		s.afterCount = nil
		hook()
	}
	return counts, err
}

func TestAvailability_FutureDayAllOpen(t *testing.T) {
	f := newFixture(t)

	res, err := f.avail.Availability(context.Background(), "2025-03-11")
	if err != nil {
		t.Fatal(err)
	}
	if res.Date != "2025-03-11" || res.MaxSlotsPerHour != 2 {
		t.Errorf("date=%q max=%d", res.Date, res.MaxSlotsPerHour)
	}
	if len(res.Slots) != 17 {
		t.Fatalf("len(slots) = %d, want 17 (07:00–23:00)", len(res.Slots))
	}
	first, last := res.Slots[0], res.Slots[len(res.Slots)-1]
	if first.Hour != 7 || first.Display != "7:00 AM" || first.Available != 2 {
		t.Errorf("first slot = %+v", first)
	}
	if last.Hour != 23 || last.Display != "11:00 PM" {
		t.Errorf("last slot = %+v", last)
	}
}

func TestAvailability_TodayAppliesBuffer(t *testing.T) {
	f := newFixture(t)

	// now is 08:30, buffer 1h: hours <= 9 are withheld.
	res, err := f.avail.Availability(context.Background(), "2025-03-10")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Slots) == 0 || res.Slots[0].Hour != 10 {
		t.Fatalf("first offered hour = %+v, want 10", res.Slots)
	}
}

func TestAvailability_CountsAndFullHours(t *testing.T) {
	f := newFixture(t)
	mustBook(t, f, "2025-03-11", 10)
	mustBook(t, f, "2025-03-11", 10)
	mustBook(t, f, "2025-03-11", 11)

	res, err := f.avail.Availability(context.Background(), "2025-03-11")
	if err != nil {
		t.Fatal(err)
	}
	byHour := make(map[int]int)
	for _, s := range res.Slots {
		byHour[s.Hour] = s.Available
	}
	if _, ok := byHour[10]; ok {
		t.Error("full hour 10 still offered")
	}
	if byHour[11] != 1 {
		t.Errorf("hour 11 available = %d, want 1", byHour[11])
	}
	if byHour[12] != 2 {
		t.Errorf("hour 12 available = %d, want 2", byHour[12])
	}
}

func TestAvailability_CancellationFreesSlot(t *testing.T) {
	f := newFixture(t)
	a := mustBook(t, f, "2025-03-11", 10)
	mustBook(t, f, "2025-03-11", 10)

	if _, err := f.lifecycle.Transition(context.Background(), a.Booking.ID, "cancelled"); err != nil {
		t.Fatal(err)
	}

	res, err := f.avail.Availability(context.Background(), "2025-03-11")
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range res.Slots {
		if s.Hour == 10 {
			if s.Available != 1 {
				t.Errorf("hour 10 available = %d, want 1", s.Available)
			}
			return
		}
	}
	t.Fatal("hour 10 not offered after cancellation")
}

func TestAvailability_OutsideWindowIsEmpty(t *testing.T) {
	f := newFixture(t)
	for _, date := range []string{"2025-03-09", "2025-05-10", "2026-01-01"} {
		res, err := f.avail.Availability(context.Background(), date)
		if err != nil {
			t.Fatalf("%s: %v", date, err)
		}
		if res.Slots == nil || len(res.Slots) != 0 {
			t.Errorf("%s: slots = %v, want empty list", date, res.Slots)
		}
	}
}

func TestAvailability_MalformedDate(t *testing.T) {
	f := newFixture(t)
	for _, date := range []string{"", "tomorrow", "2025-13-01", "2025-02-29"} {
		if _, err := f.avail.Availability(context.Background(), date); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("Availability(%q) err = %v, want ErrInvalidDate", date, err)
		}
	}
}

func TestAvailability_ServesFromCache(t *testing.T) {
	f := newFixture(t)
	f.cache.Set(context.Background(), "2025-03-11", 0, map[int]int{7: 2, 8: 1})

	res, err := f.avail.Availability(context.Background(), "2025-03-11")
	if err != nil {
		t.Fatal(err)
	}
	if res.Slots[0].Hour != 8 || res.Slots[0].Available != 1 {
		t.Errorf("first slot = %+v, want hour 8 with 1 free", res.Slots[0])
	}
}

func TestAvailability_CancellationDuringCountIsNotCached(t *testing.T) {
	f := newFixture(t)
	a := mustBook(t, f, "2025-03-11", 10)
	mustBook(t, f, "2025-03-11", 10)

	store := &interleavedStore{BookingStore: f.store}
	store.afterCount = func() {
		if _, err := f.lifecycle.Transition(context.Background(), a.Booking.ID, "cancelled"); err != nil {
			t.Errorf("cancel: %v", err)
		}
	}
	avail := NewAvailabilityService(store, f.cache, testPolicy(), fixedClock(testNow), logger.Nop())

	// The first read saw {10:2} and may report the hour full.
	if _, err := avail.Availability(context.Background(), "2025-03-11"); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.cache.Get(context.Background(), "2025-03-11"); ok {
		t.Fatal("counts read before the cancellation were cached")
	}

	res, err := avail.Availability(context.Background(), "2025-03-11")
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range res.Slots {
		if s.Hour == 10 {
			if s.Available != 1 {
				t.Errorf("hour 10 available = %d, want 1", s.Available)
			}
			return
		}
	}
	t.Fatal("hour 10 hidden after cancellation")
}

func TestAvailability_CachesWhenUndisturbed(t *testing.T) {
	f := newFixture(t)
	mustBook(t, f, "2025-03-11", 10)

	if _, err := f.avail.Availability(context.Background(), "2025-03-11"); err != nil {
		t.Fatal(err)
	}
	counts, ok := f.cache.Get(context.Background(), "2025-03-11")
	if !ok || counts[10] != 1 {
		t.Errorf("cached counts = %v, %v; want {10:1}", counts, ok)
	}
}
