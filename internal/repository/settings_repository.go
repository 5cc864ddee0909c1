package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/urbannassau/rides/internal/model"
)

const settingsCacheKey = "fare:settings"

// SettingsRepository reads and writes the single fare settings row, with a
// Redis read-through cache in front of PostgreSQL.
type SettingsRepository struct {
	pool  PgxPool
	redis *redis.Client // nil disables caching
	ttl   time.Duration
}

// NewSettingsRepository creates a settings repository. redis may be nil.
func NewSettingsRepository(pool PgxPool, redis *redis.Client, ttl time.Duration) *SettingsRepository {
	return &SettingsRepository{pool: pool, redis: redis, ttl: ttl}
}

// Get returns the fare settings.
//
//  1. Try Redis (fast path).
//  2. On miss, read PostgreSQL and populate the cache.
func (r *SettingsRepository) Get(ctx context.Context) (*model.FareSettings, error) {
	if r.redis != nil {
		raw, err := r.redis.Get(ctx, settingsCacheKey).Bytes()
		if err == nil {
			var s model.FareSettings
			if json.Unmarshal(raw, &s) == nil {
				return &s, nil
			}
		}
	}

	s := &model.FareSettings{}
	err := r.pool.QueryRow(ctx, `
		SELECT ride_standard_base, ride_premium_base, free_distance, per_mile_rate,
		       passenger_fee, courier_base, errand_base, shopping_base, transport_base,
		       updated_at
		FROM fare_settings
		WHERE id = 1
	`).Scan(
		&s.RideStandardBase, &s.RidePremiumBase, &s.FreeDistance, &s.PerMileRate,
		&s.PassengerFee, &s.CourierBase, &s.ErrandBase, &s.ShoppingBase, &s.TransportBase,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get fare settings: %w", err)
	}

	// Fire-and-forget: a cache failure must not fail the read.
	if r.redis != nil {
		if raw, err := json.Marshal(s); err == nil {
			_ = r.redis.Set(ctx, settingsCacheKey, raw, r.ttl).Err()
		}
	}
	return s, nil
}

// Upsert writes the settings row and drops the cached copy.
func (r *SettingsRepository) Upsert(ctx context.Context, s model.FareSettings) (*model.FareSettings, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO fare_settings (
			id, ride_standard_base, ride_premium_base, free_distance, per_mile_rate,
			passenger_fee, courier_base, errand_base, shopping_base, transport_base, updated_at
		)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (id) DO UPDATE SET
			ride_standard_base = EXCLUDED.ride_standard_base,
			ride_premium_base  = EXCLUDED.ride_premium_base,
			free_distance      = EXCLUDED.free_distance,
			per_mile_rate      = EXCLUDED.per_mile_rate,
			passenger_fee      = EXCLUDED.passenger_fee,
			courier_base       = EXCLUDED.courier_base,
			errand_base        = EXCLUDED.errand_base,
			shopping_base      = EXCLUDED.shopping_base,
			transport_base     = EXCLUDED.transport_base,
			updated_at         = now()
		RETURNING updated_at
	`,
		s.RideStandardBase, s.RidePremiumBase, s.FreeDistance, s.PerMileRate,
		s.PassengerFee, s.CourierBase, s.ErrandBase, s.ShoppingBase, s.TransportBase,
	).Scan(&s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert fare settings: %w", err)
	}

	r.InvalidateCache(ctx)
	return &s, nil
}

// InvalidateCache clears the cached settings.
func (r *SettingsRepository) InvalidateCache(ctx context.Context) {
	if r.redis == nil {
		return
	}
	_ = r.redis.Del(ctx, settingsCacheKey).Err()
}

// ─── Fare quotes ────────────────────────────────────────────

// QuoteRepository stores fare quotes in PostgreSQL.
type QuoteRepository struct {
	pool PgxPool
}

// NewQuoteRepository creates a quote repository.
func NewQuoteRepository(pool PgxPool) *QuoteRepository {
	return &QuoteRepository{pool: pool}
}

// Create inserts q and fills ID and CreatedAt.
func (r *QuoteRepository) Create(ctx context.Context, q *model.FareQuote) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO fare_quotes (
			service_type, pickup_address, dropoff_address, distance, passengers,
			base_fare, distance_fare, passenger_fare, total_fare
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`,
		q.ServiceType, q.PickupAddress, q.DropoffAddress, q.Distance, q.Passengers,
		q.BaseFare, q.DistanceFare, q.PassengerFare, q.TotalFare,
	).Scan(&q.ID, &q.CreatedAt)
	if err != nil {
		return fmt.Errorf("create fare quote: %w", err)
	}
	return nil
}

// ─── Users ──────────────────────────────────────────────────

// UserRepository stores administrator accounts in PostgreSQL.
type UserRepository struct {
	pool PgxPool
}

// NewUserRepository creates a user repository.
func NewUserRepository(pool PgxPool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByEmail looks up an account by case-insensitive email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u := &model.User{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM users
		WHERE lower(email) = lower($1)
	`, email).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user %q: %w", email, err)
	}
	return u, nil
}

// Upsert creates the account or replaces its name and password hash.
func (r *UserRepository) Upsert(ctx context.Context, u *model.User) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash)
		VALUES (lower($1), $2, $3)
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			password_hash = EXCLUDED.password_hash
		RETURNING id, created_at
	`, u.Email, u.Name, u.PasswordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert user %q: %w", u.Email, err)
	}
	return nil
}
