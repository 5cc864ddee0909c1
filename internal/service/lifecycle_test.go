package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/urbannassau/rides/internal/model"
)

func TestTransition_Confirm(t *testing.T) {
	f := newFixture(t)
	a := mustBook(t, f, "2025-03-11", 10)

	b, err := f.lifecycle.Transition(context.Background(), a.Booking.ID, model.StatusConfirmed)
	if err != nil {
		t.Fatal(err)
	}
	if b.Status != model.StatusConfirmed {
		t.Errorf("status = %q, want confirmed", b.Status)
	}
	if got := testutil.ToFloat64(f.metrics.StatusTransitions.WithLabelValues("confirmed")); got != 1 {
		t.Errorf("confirmed transitions = %v, want 1", got)
	}
	// Confirming keeps the slot, so the cache is not touched.
	if len(f.cache.invalidated) != 1 {
		t.Errorf("invalidated = %v, want only the admission's", f.cache.invalidated)
	}
}

func TestTransition_CancelInvalidatesCache(t *testing.T) {
	f := newFixture(t)
	a := mustBook(t, f, "2025-03-11", 10)
	before := len(f.cache.invalidated)

	if _, err := f.lifecycle.Transition(context.Background(), a.Booking.ID, model.StatusCancelled); err != nil {
		t.Fatal(err)
	}
	if len(f.cache.invalidated) != before+1 || f.cache.invalidated[before] != "2025-03-11" {
		t.Errorf("invalidated = %v", f.cache.invalidated)
	}
}

func TestTransition_Errors(t *testing.T) {
	f := newFixture(t)
	a := mustBook(t, f, "2025-03-11", 10)
	ctx := context.Background()

	if _, err := f.lifecycle.Transition(ctx, a.Booking.ID, "completed"); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("target completed: err = %v, want ErrInvalidTarget", err)
	}
	if _, err := f.lifecycle.Transition(ctx, a.Booking.ID, "pending"); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("target pending: err = %v, want ErrInvalidTarget", err)
	}
	// Target is validated before the id is looked up.
	if _, err := f.lifecycle.Transition(ctx, 9999, "bogus"); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("unknown id, bad target: err = %v, want ErrInvalidTarget", err)
	}
	if _, err := f.lifecycle.Transition(ctx, 9999, model.StatusConfirmed); !errors.Is(err, ErrBookingNotFound) {
		t.Errorf("unknown id: err = %v, want ErrBookingNotFound", err)
	}

	if _, err := f.lifecycle.Transition(ctx, a.Booking.ID, model.StatusCancelled); err != nil {
		t.Fatal(err)
	}
	_, err := f.lifecycle.Transition(ctx, a.Booking.ID, model.StatusConfirmed)
	var already *AlreadyTransitionedError
	if !errors.As(err, &already) {
		t.Fatalf("err = %v, want AlreadyTransitionedError", err)
	}
	if err.Error() != "Booking is already cancelled" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestTransition_ConcurrentExactlyOnce(t *testing.T) {
	f := newFixture(t)
	a := mustBook(t, f, "2025-03-11", 10)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	targets := []model.BookingStatus{model.StatusConfirmed, model.StatusCancelled}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(target model.BookingStatus) {
			defer wg.Done()
			_, err := f.lifecycle.Transition(context.Background(), a.Booking.ID, target)
			var already *AlreadyTransitionedError
			if err != nil && !errors.As(err, &already) {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(targets[i%2])
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("%d transitions succeeded, want exactly 1", succeeded)
	}
}

func TestList_Filters(t *testing.T) {
	f := newFixture(t)
	mustBook(t, f, "2025-03-11", 10)
	b := mustBook(t, f, "2025-03-12", 9)
	mustBook(t, f, "2025-03-13", 8)
	if _, err := f.lifecycle.Transition(context.Background(), b.Booking.ID, model.StatusConfirmed); err != nil {
		t.Fatal(err)
	}

	all, err := f.lifecycle.List(context.Background(), ListQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].BookingHour != 8 {
		t.Errorf("list = %+v, want 3 newest first", all)
	}

	ranged, err := f.lifecycle.List(context.Background(), ListQuery{From: "2025-03-12", To: "2025-03-12"})
	if err != nil {
		t.Fatal(err)
	}
	if len(ranged) != 1 || ranged[0].ID != b.Booking.ID {
		t.Errorf("ranged = %+v", ranged)
	}

	confirmed, err := f.lifecycle.List(context.Background(), ListQuery{Status: "confirmed"})
	if err != nil {
		t.Fatal(err)
	}
	if len(confirmed) != 1 {
		t.Errorf("confirmed = %d, want 1", len(confirmed))
	}

	var bad *ValidationError
	if _, err := f.lifecycle.List(context.Background(), ListQuery{Status: "lost"}); !errors.As(err, &bad) {
		t.Errorf("unknown status: err = %v", err)
	}
	if _, err := f.lifecycle.List(context.Background(), ListQuery{From: "03/12/2025"}); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("bad from: err = %v", err)
	}
}

func TestManifest_SkipsCancelledAndSortsByHour(t *testing.T) {
	f := newFixture(t)
	mustBook(t, f, "2025-03-11", 14)
	c := mustBook(t, f, "2025-03-11", 9)
	mustBook(t, f, "2025-03-11", 7)
	mustBook(t, f, "2025-03-12", 7)
	if _, err := f.lifecycle.Transition(context.Background(), c.Booking.ID, model.StatusCancelled); err != nil {
		t.Fatal(err)
	}

	m, err := f.lifecycle.Manifest(context.Background(), "2025-03-11")
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Bookings) != 2 {
		t.Fatalf("manifest has %d bookings, want 2", len(m.Bookings))
	}
	if m.Bookings[0].BookingHour != 7 || m.Bookings[1].BookingHour != 14 {
		t.Errorf("order = %d, %d", m.Bookings[0].BookingHour, m.Bookings[1].BookingHour)
	}
}
