package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/urbannassau/rides/internal/model"
)

const bookingColumns = `
	id, booking_date, booking_hour, service_type, pickup_address, dropoff_address,
	distance, passengers, total_fare, COALESCE(customer_phone, ''), status,
	created_at, updated_at`

// PostgresBookingStore implements BookingStore on PostgreSQL.
type PostgresBookingStore struct {
	pool PgxPool
}

// NewPostgresBookingStore creates a booking store backed by the given pool.
func NewPostgresBookingStore(pool PgxPool) *PostgresBookingStore {
	return &PostgresBookingStore{pool: pool}
}

// ─── Counting ───────────────────────────────────────────────

const countByHourSQL = `
	SELECT booking_hour, COUNT(*)::int
	FROM bookings
	WHERE booking_date BETWEEN $1 AND $2
	  AND status <> 'cancelled'
	GROUP BY booking_hour`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func countByHour(ctx context.Context, q querier, start, end time.Time) (map[int]int, error) {
	rows, err := q.Query(ctx, countByHourSQL, start, end)
	if err != nil {
		return nil, fmt.Errorf("count by hour: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var hour, n int
		if err := rows.Scan(&hour, &n); err != nil {
			return nil, fmt.Errorf("count by hour: scan: %w", err)
		}
		counts[hour] = n
	}
	return counts, rows.Err()
}

// CountByHour returns non-cancelled booking counts per hour for a day range.
func (r *PostgresBookingStore) CountByHour(ctx context.Context, start, end time.Time) (map[int]int, error) {
	return countByHour(ctx, r.pool, start, end)
}

// ─── Serialized admission ───────────────────────────────────

// WithSlot runs fn inside a transaction that holds the advisory lock of the
// (day, hour) bucket.
//
// Row locks cannot serialize admission: the row that would conflict does not
// exist yet. pg_advisory_xact_lock keyed by the bucket makes every concurrent
// "count then insert" on the same bucket queue up, while other buckets
// proceed in parallel.
//
//	T1: BEGIN → lock(2026-10-29:10) → count=1 → INSERT → COMMIT (lock released)
//	T2: BEGIN → lock(2026-10-29:10) (BLOCKS) ... → count=2 → full → ROLLBACK
//
// Under READ COMMITTED each statement takes a fresh snapshot, so T2's count
// observes T1's committed row once it acquires the lock.
func (r *PostgresBookingStore) WithSlot(
	ctx context.Context,
	day time.Time,
	hour int,
	fn func(tx SlotTx) error,
) error {

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("slot: begin tx: %w", err)
	}
	// No-op if tx was already committed.
	defer tx.Rollback(ctx)

	key := slotLockKey(day, hour)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return fmt.Errorf("slot: lock %s: %w", key, err)
	}

	if err := fn(&pgSlotTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("slot: commit: %w", err)
	}
	return nil
}

type pgSlotTx struct {
	tx pgx.Tx
}

func (t *pgSlotTx) CountByHour(ctx context.Context, start, end time.Time) (map[int]int, error) {
	return countByHour(ctx, t.tx, start, end)
}

func (t *pgSlotTx) Insert(ctx context.Context, b *model.Booking) error {
	var phone *string
	if b.CustomerPhone != "" {
		phone = &b.CustomerPhone
	}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO bookings (
			booking_date, booking_hour, service_type, pickup_address, dropoff_address,
			distance, passengers, total_fare, customer_phone, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`,
		b.BookingDate, b.BookingHour, b.ServiceType, b.PickupAddress, b.DropoffAddress,
		b.Distance, b.Passengers, b.TotalFare, phone, string(b.Status),
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// ─── Status lifecycle ───────────────────────────────────────

// TransitionStatus performs read-check-write on one booking under a row lock.
//
// Two administrators acting on the same pending booking:
//
//	A: BEGIN → SELECT ... FOR UPDATE → pending → UPDATE → COMMIT
//	B: BEGIN → SELECT ... FOR UPDATE (BLOCKS) → re-reads confirmed → ROLLBACK
func (r *PostgresBookingStore) TransitionStatus(
	ctx context.Context,
	id int64,
	from, to model.BookingStatus,
) (*model.Booking, error) {

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("transition: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	b, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("transition: lock booking %d: %w", id, err)
	}

	if b.Status != from {
		return nil, &StatusConflictError{ID: id, Current: b.Status}
	}

	err = tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, id, string(to)).Scan(&b.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("transition: update booking %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("transition: commit: %w", err)
	}

	b.Status = to
	return b, nil
}

// ─── Reads ──────────────────────────────────────────────────

// GetByID fetches a single booking.
func (r *PostgresBookingStore) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return b, nil
}

// List returns bookings matching f, newest first.
func (r *PostgresBookingStore) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	if !f.From.IsZero() {
		args = append(args, f.From)
		where = append(where, fmt.Sprintf("booking_date >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		where = append(where, fmt.Sprintf("booking_date <= $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY booking_date DESC, booking_hour DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("list bookings: scan: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Ping checks connectivity.
func (r *PostgresBookingStore) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		b      model.Booking
		status string
	)
	err := row.Scan(
		&b.ID, &b.BookingDate, &b.BookingHour, &b.ServiceType,
		&b.PickupAddress, &b.DropoffAddress,
		&b.Distance, &b.Passengers, &b.TotalFare, &b.CustomerPhone, &status,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	return &b, nil
}
