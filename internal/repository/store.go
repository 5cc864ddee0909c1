// Package repository provides persistence for bookings, fare settings,
// fare quotes and administrator accounts.
//
// The allocator only needs three logical operations from a store: count
// non-cancelled bookings by hour, create-if-available for one (date, hour)
// bucket, and a guarded status update. BookingStore expresses exactly that.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/urbannassau/rides/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// StatusConflictError is returned by TransitionStatus when the row is no
// longer in the expected status.
type StatusConflictError struct {
	ID      int64
	Current model.BookingStatus
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("booking %d is already %s", e.ID, e.Current)
}

// SlotTx is the view of the store inside one serialized (date, hour) unit.
type SlotTx interface {
	// CountByHour returns non-cancelled bookings per hour between start and end inclusive.
	CountByHour(ctx context.Context, start, end time.Time) (map[int]int, error)
	// Insert persists b and fills ID, CreatedAt and UpdatedAt.
	Insert(ctx context.Context, b *model.Booking) error
}

// BookingStore is the persistence contract of the slot allocator.
type BookingStore interface {
	// CountByHour returns non-cancelled bookings per hour between start and end inclusive.
	CountByHour(ctx context.Context, start, end time.Time) (map[int]int, error)

	// WithSlot runs fn as one atomic unit. Every WithSlot call for the same
	// (day, hour) is serialized; different buckets do not contend. If fn
	// returns an error nothing it inserted is kept.
	WithSlot(ctx context.Context, day time.Time, hour int, fn func(tx SlotTx) error) error

	// TransitionStatus moves booking id from `from` to `to` atomically.
	// Returns ErrNotFound or *StatusConflictError.
	TransitionStatus(ctx context.Context, id int64, from, to model.BookingStatus) (*model.Booking, error)

	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
	Ping(ctx context.Context) error
}

// SettingsStore persists the single fare settings row.
type SettingsStore interface {
	Get(ctx context.Context) (*model.FareSettings, error)
	Upsert(ctx context.Context, s model.FareSettings) (*model.FareSettings, error)
}

// QuoteStore persists fare quotes.
type QuoteStore interface {
	Create(ctx context.Context, q *model.FareQuote) error
}

// UserStore persists administrator accounts.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Upsert(ctx context.Context, u *model.User) error
}

// PgxPool is the subset of *pgxpool.Pool used by the PostgreSQL repositories.
type PgxPool interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// slotLockKey names the advisory lock of one hour bucket.
func slotLockKey(day time.Time, hour int) string {
	return fmt.Sprintf("booking-slot:%s:%02d", day.Format("2006-01-02"), hour)
}
