package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"

	"github.com/urbannassau/rides/internal/model"
)

func TestMemoryWithSlot_DiscardsOnError(t *testing.T) {
	s := NewMemoryBookingStore()
	boom := errors.New("boom")

	err := s.WithSlot(context.Background(), testDay, 10, func(tx SlotTx) error {
		if err := tx.Insert(context.Background(), &model.Booking{BookingDate: testDay, BookingHour: 10, Status: model.StatusPending}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	counts, _ := s.CountByHour(context.Background(), testStart, testEnd)
	if counts[10] != 0 {
		t.Errorf("staged insert leaked: counts = %v", counts)
	}
}

func TestMemoryWithSlot_SerializesBucket(t *testing.T) {
	s := NewMemoryBookingStore()
	const capacity = 3

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithSlot(context.Background(), testDay, 12, func(tx SlotTx) error {
				counts, err := tx.CountByHour(context.Background(), testStart, testEnd)
				if err != nil || counts[12] >= capacity {
					return errors.New("full")
				}
				return tx.Insert(context.Background(), &model.Booking{BookingDate: testDay, BookingHour: 12, Status: model.StatusPending})
			})
		}()
	}
	wg.Wait()

	counts, _ := s.CountByHour(context.Background(), testStart, testEnd)
	if counts[12] != capacity {
		t.Fatalf("count = %d, want %d", counts[12], capacity)
	}
}

func TestMemoryWithSlot_WaitHonoursContext(t *testing.T) {
	s := NewMemoryBookingStore()
	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.WithSlot(context.Background(), testDay, 12, func(SlotTx) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ran := false
	err := s.WithSlot(ctx, testDay, 12, func(SlotTx) error {
		ran = true
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
	if ran {
		t.Error("fn ran without holding the bucket")
	}

	// Other buckets stay free while 12:00 is held.
	if err := s.WithSlot(context.Background(), testDay, 13, func(SlotTx) error { return nil }); err != nil {
		t.Errorf("hour 13: %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("holder: %v", err)
	}
	if err := s.WithSlot(context.Background(), testDay, 12, func(SlotTx) error { return nil }); err != nil {
		t.Errorf("bucket not released: %v", err)
	}
}

func TestMemoryCountByHour_IgnoresCancelled(t *testing.T) {
	s := NewMemoryBookingStore()
	for i := 0; i < 2; i++ {
		_ = s.WithSlot(context.Background(), testDay, 9, func(tx SlotTx) error {
			return tx.Insert(context.Background(), &model.Booking{BookingDate: testDay, BookingHour: 9, Status: model.StatusPending})
		})
	}
	if _, err := s.TransitionStatus(context.Background(), 1, model.StatusPending, model.StatusCancelled); err != nil {
		t.Fatal(err)
	}

	counts, _ := s.CountByHour(context.Background(), testStart, testEnd)
	if counts[9] != 1 {
		t.Errorf("count = %d, want 1", counts[9])
	}

	_, err := s.TransitionStatus(context.Background(), 1, model.StatusPending, model.StatusConfirmed)
	var conflict *StatusConflictError
	if !errors.As(err, &conflict) || conflict.Current != model.StatusCancelled {
		t.Errorf("err = %v, want conflict with cancelled", err)
	}
}

// ─── Settings ───────────────────────────────────────────────

func TestSettingsRepository_GetWithoutCache(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()
	repo := NewSettingsRepository(mock, nil, 0)

	mock.ExpectQuery("FROM fare_settings").
		WillReturnRows(pgxmock.NewRows([]string{
			"ride_standard_base", "ride_premium_base", "free_distance", "per_mile_rate",
			"passenger_fee", "courier_base", "errand_base", "shopping_base", "transport_base", "updated_at",
		}).AddRow(15.0, 20.0, 5.0, 4.0, 5.0, 12.0, 25.0, 50.0, 20.0, testStamp))

	fs, err := repo.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if fs.RidePremiumBase != 20 || fs.PerMileRate != 4 {
		t.Errorf("settings = %+v", fs)
	}

	mock.ExpectQuery("FROM fare_settings").WillReturnError(pgx.ErrNoRows)
	if _, err := repo.Get(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty table: err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
