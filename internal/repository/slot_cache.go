package repository

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// SlotCountCache caches the per-hour booking counts of a day for the
// availability read path. Admission never reads it; the write-time count
// always comes from the store.
//
// Every Invalidate bumps the day's generation. A reader takes the generation
// before counting and hands it back to Set, which drops the write when an
// invalidation happened in between.
type SlotCountCache interface {
	Get(ctx context.Context, day string) (map[int]int, bool)
	// Generation reports the day's invalidation counter. ok is false when it
	// cannot be read, in which case the caller must not Set.
	Generation(ctx context.Context, day string) (gen int64, ok bool)
	Set(ctx context.Context, day string, gen int64, counts map[int]int)
	Invalidate(ctx context.Context, day string)
}

// NopSlotCache disables caching.
type NopSlotCache struct{}

func (NopSlotCache) Get(context.Context, string) (map[int]int, bool) { return nil, false }
func (NopSlotCache) Generation(context.Context, string) (int64, bool) { return 0, false }
func (NopSlotCache) Set(context.Context, string, int64, map[int]int) {}
func (NopSlotCache) Invalidate(context.Context, string) {}

const (
	slotCacheKeyPrefix = "slots:counts:"
	slotGenKeyPrefix   = "slots:gen:"
	// slotCacheMarker distinguishes "cached, no bookings" from a miss.
	slotCacheMarker = "_"
	// slotGenTTL must outlast any count query that started before the bump.
	slotGenTTL = 48 * time.Hour
)

var errStaleGeneration = errors.New("slot cache: generation moved")

// RedisSlotCache stores one hash per day: hour → count, next to a counter
// key holding the day's generation.
type RedisSlotCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisSlotCache creates a cache with the given entry lifetime.
func NewRedisSlotCache(client *redis.Client, ttl time.Duration) *RedisSlotCache {
	return &RedisSlotCache{redis: client, ttl: ttl}
}

// Get returns the cached counts for day. Any Redis error is a miss.
func (c *RedisSlotCache) Get(ctx context.Context, day string) (map[int]int, bool) {
	fields, err := c.redis.HGetAll(ctx, slotCacheKeyPrefix+day).Result()
	if err != nil || len(fields) == 0 {
		return nil, false
	}
	if _, ok := fields[slotCacheMarker]; !ok {
		return nil, false
	}

	counts := make(map[int]int, len(fields)-1)
	for k, v := range fields {
		if k == slotCacheMarker {
			continue
		}
		hour, err1 := strconv.Atoi(k)
		n, err2 := strconv.Atoi(v)
		if err1 != nil || err2 != nil {
			return nil, false
		}
		counts[hour] = n
	}
	return counts, true
}

// Generation reads the day's counter. A missing key is generation 0.
func (c *RedisSlotCache) Generation(ctx context.Context, day string) (int64, bool) {
	gen, err := c.redis.Get(ctx, slotGenKeyPrefix+day).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, true
	case err != nil:
		return 0, false
	}
	return gen, true
}

// Set replaces the cached counts for day, but only while the day's
// generation still equals gen. The check and the write run under WATCH, so
// an Invalidate landing between them aborts the EXEC.
func (c *RedisSlotCache) Set(ctx context.Context, day string, gen int64, counts map[int]int) {
	key := slotCacheKeyPrefix + day
	genKey := slotGenKeyPrefix + day

	hours := make([]int, 0, len(counts))
	for hour := range counts {
		hours = append(hours, hour)
	}
	sort.Ints(hours)
	values := make([]any, 0, 2+2*len(hours))
	values = append(values, slotCacheMarker, "1")
	for _, hour := range hours {
		values = append(values, strconv.Itoa(hour), strconv.Itoa(counts[hour]))
	}

	_ = c.redis.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key, values...)
			pipe.Expire(ctx, key, c.ttl)
			return nil
		})
		return err
	}, genKey)
}

// Invalidate bumps the day's generation and drops its cached counts.
func (c *RedisSlotCache) Invalidate(ctx context.Context, day string) {
	genKey := slotGenKeyPrefix + day
	_, _ = c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, slotGenTTL)
		pipe.Del(ctx, slotCacheKeyPrefix+day)
		return nil
	})
}
