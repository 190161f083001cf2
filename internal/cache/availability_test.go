package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotTTLCappedAtEarliestDeadline(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	base := 5 * time.Second

	assert.Equal(t, base, snapshotTTL(base, nil, now), "no pending owners, full TTL")

	later := now.Add(time.Minute)
	assert.Equal(t, base, snapshotTTL(base, &later, now), "distant deadline leaves the TTL alone")

	soon := now.Add(2 * time.Second)
	assert.Equal(t, 2*time.Second, snapshotTTL(base, &soon, now),
		"a pending order lapsing mid-TTL caps the snapshot lifetime")

	passed := now.Add(-time.Second)
	assert.LessOrEqual(t, snapshotTTL(base, &passed, now), time.Duration(0),
		"an already-lapsed deadline disables caching")
}

func TestSnapshotsDegradeWithoutRedis(t *testing.T) {
	s := NewSnapshots(nil, 5*time.Second)
	ctx := context.Background()

	_, hit := s.BookedSeats(ctx, 7)
	assert.False(t, hit)

	deadline := time.Now().UTC().Add(time.Minute)
	assert.NotPanics(t, func() {
		s.StoreBookedSeats(ctx, 7, map[uint64]struct{}{1: {}}, &deadline)
		s.Invalidate(ctx, 7)
	})
}
