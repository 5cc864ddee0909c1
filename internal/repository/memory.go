package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/urbannassau/rides/internal/model"
)

// MemoryBookingStore is a single-process BookingStore for local development
// and tests. Each (day, hour) bucket has its own one-slot semaphore, so
// admissions on different buckets never wait on each other and a waiter
// gives up when its context ends.
type MemoryBookingStore struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]*model.Booking

	slotsMu sync.Mutex
	slots   map[string]chan struct{}

	now func() time.Time
}

// NewMemoryBookingStore creates an empty store.
func NewMemoryBookingStore() *MemoryBookingStore {
	return &MemoryBookingStore{
		rows:  make(map[int64]*model.Booking),
		slots: make(map[string]chan struct{}),
		now:   time.Now,
	}
}

func (s *MemoryBookingStore) slotLock(day time.Time, hour int) chan struct{} {
	key := slotLockKey(day, hour)
	s.slotsMu.Lock()
	defer s.slotsMu.Unlock()
	sem, ok := s.slots[key]
	if !ok {
		sem = make(chan struct{}, 1)
		s.slots[key] = sem
	}
	return sem
}

// CountByHour returns non-cancelled booking counts per hour for a day range.
func (s *MemoryBookingStore) CountByHour(_ context.Context, start, end time.Time) (map[int]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[int]int)
	for _, b := range s.rows {
		if b.BookingDate.Before(start) || b.BookingDate.After(end) || !b.Status.HoldsCapacity() {
			continue
		}
		counts[b.BookingHour]++
	}
	return counts, nil
}

// WithSlot serializes fn on the bucket semaphore. Inserts are staged and
// only become visible when fn succeeds. Waiting for the bucket ends with
// ctx.Err() once ctx is done.
func (s *MemoryBookingStore) WithSlot(ctx context.Context, day time.Time, hour int, fn func(tx SlotTx) error) error {
	sem := s.slotLock(day, hour)
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-sem }()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memSlotTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	for _, b := range tx.staged {
		cp := *b
		s.rows[cp.ID] = &cp
	}
	s.mu.Unlock()
	return nil
}

type memSlotTx struct {
	store  *MemoryBookingStore
	staged []*model.Booking
}

func (t *memSlotTx) CountByHour(ctx context.Context, start, end time.Time) (map[int]int, error) {
	return t.store.CountByHour(ctx, start, end)
}

func (t *memSlotTx) Insert(_ context.Context, b *model.Booking) error {
	t.store.mu.Lock()
	t.store.nextID++
	b.ID = t.store.nextID
	t.store.mu.Unlock()

	now := t.store.now()
	b.CreatedAt = now
	b.UpdatedAt = now
	t.staged = append(t.staged, b)
	return nil
}

// TransitionStatus moves booking id from `from` to `to` under the store lock.
func (s *MemoryBookingStore) TransitionStatus(_ context.Context, id int64, from, to model.BookingStatus) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if b.Status != from {
		return nil, &StatusConflictError{ID: id, Current: b.Status}
	}
	b.Status = to
	b.UpdatedAt = s.now()
	cp := *b
	return &cp, nil
}

// GetByID fetches a single booking.
func (s *MemoryBookingStore) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

// List returns bookings matching f, newest first.
func (s *MemoryBookingStore) List(_ context.Context, f model.BookingFilter) ([]model.Booking, error) {
	s.mu.RLock()
	out := make([]model.Booking, 0, len(s.rows))
	for _, b := range s.rows {
		if !f.From.IsZero() && b.BookingDate.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && b.BookingDate.After(f.To) {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, *b)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.BookingDate.Equal(b.BookingDate) {
			return a.BookingDate.After(b.BookingDate)
		}
		if a.BookingHour != b.BookingHour {
			return a.BookingHour > b.BookingHour
		}
		return a.ID > b.ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Ping always succeeds.
func (s *MemoryBookingStore) Ping(context.Context) error { return nil }

// ─── Settings, quotes, users ────────────────────────────────

// MemorySettingsStore keeps fare settings in process.
type MemorySettingsStore struct {
	mu       sync.RWMutex
	settings *model.FareSettings
}

// NewMemorySettingsStore creates a store, optionally pre-seeded.
func NewMemorySettingsStore(seed *model.FareSettings) *MemorySettingsStore {
	s := &MemorySettingsStore{}
	if seed != nil {
		cp := *seed
		s.settings = &cp
	}
	return s
}

func (s *MemorySettingsStore) Get(context.Context) (*model.FareSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return nil, ErrNotFound
	}
	cp := *s.settings
	return &cp, nil
}

func (s *MemorySettingsStore) Upsert(_ context.Context, fs model.FareSettings) (*model.FareSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fs.UpdatedAt = time.Now()
	s.settings = &fs
	cp := fs
	return &cp, nil
}

// MemoryQuoteStore keeps fare quotes in process.
type MemoryQuoteStore struct {
	mu     sync.Mutex
	quotes []model.FareQuote
}

func NewMemoryQuoteStore() *MemoryQuoteStore { return &MemoryQuoteStore{} }

func (s *MemoryQuoteStore) Create(_ context.Context, q *model.FareQuote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = int64(len(s.quotes) + 1)
	q.CreatedAt = time.Now()
	s.quotes = append(s.quotes, *q)
	return nil
}

// MemoryUserStore keeps administrator accounts in process.
type MemoryUserStore struct {
	mu      sync.RWMutex
	byEmail map[string]model.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{byEmail: make(map[string]model.User)}
}

func (s *MemoryUserStore) GetByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryUserStore) Upsert(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(u.Email))
	if existing, ok := s.byEmail[key]; ok {
		u.ID = existing.ID
		u.CreatedAt = existing.CreatedAt
	} else {
		u.ID = int64(len(s.byEmail) + 1)
		u.CreatedAt = time.Now()
	}
	s.byEmail[key] = *u
	return nil
}
