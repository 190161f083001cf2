// Package cache holds the Redis-backed availability snapshot store.
// Only the durable booked layer is cached; advisory holds live in
// process memory and are merged in per request, so a cached snapshot
// never goes stale with respect to holds.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Snapshots caches the booked seat ids of a showtime under a short
// TTL.  A nil Redis client disables the cache entirely; every lookup
// then misses and writes are no-ops, so the availability endpoint
// keeps working against the database alone.
type Snapshots struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshots constructs the store.  rdb may be nil.
func NewSnapshots(rdb *redis.Client, ttl time.Duration) *Snapshots {
	return &Snapshots{rdb: rdb, ttl: ttl}
}

func snapshotKey(showtimeID uint64) string {
	return fmt.Sprintf("availability:booked:%d", showtimeID)
}

// BookedSeats returns the cached booked set for a showtime, or ok=false
// on a miss, a disabled cache, or any Redis error.  Errors are treated
// as misses; the caller falls back to the database.
func (s *Snapshots) BookedSeats(ctx context.Context, showtimeID uint64) (map[uint64]struct{}, bool) {
	if s == nil || s.rdb == nil {
		return nil, false
	}
	bs, err := s.rdb.Get(ctx, snapshotKey(showtimeID)).Bytes()
	if err != nil {
		return nil, false
	}
	var ids []uint64
	if err := json.Unmarshal(bs, &ids); err != nil {
		return nil, false
	}
	booked := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		booked[id] = struct{}{}
	}
	return booked, true
}

// StoreBookedSeats writes the booked set.  The lifetime is the
// configured TTL capped at earliestDeadline (the first moment a
// PENDING owner in the set can lapse), so a seat never reads booked
// from cache past its order's deadline.  Failures are ignored; the
// cache is an optimization, not a source of truth.
func (s *Snapshots) StoreBookedSeats(ctx context.Context, showtimeID uint64, booked map[uint64]struct{}, earliestDeadline *time.Time) {
	if s == nil || s.rdb == nil {
		return
	}
	ttl := snapshotTTL(s.ttl, earliestDeadline, time.Now().UTC())
	if ttl <= 0 {
		return
	}
	ids := make([]uint64, 0, len(booked))
	for id := range booked {
		ids = append(ids, id)
	}
	bs, err := json.Marshal(ids)
	if err != nil {
		return
	}
	_ = s.rdb.SetEx(ctx, snapshotKey(showtimeID), bs, ttl).Err()
}

// snapshotTTL caps the configured lifetime at the time remaining
// until the earliest pending deadline.  A deadline at or before now
// yields zero, disabling the write entirely.
func snapshotTTL(base time.Duration, deadline *time.Time, now time.Time) time.Duration {
	if deadline == nil {
		return base
	}
	if remaining := deadline.Sub(now); remaining < base {
		return remaining
	}
	return base
}

// Invalidate drops the snapshot after any write that changes seat
// ownership (booking, cancellation, expiry), bounding how long a
// just-booked seat can still read as Available.
func (s *Snapshots) Invalidate(ctx context.Context, showtimeID uint64) {
	if s == nil || s.rdb == nil {
		return
	}
	_ = s.rdb.Del(ctx, snapshotKey(showtimeID)).Err()
}
