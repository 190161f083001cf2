package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ts(h int) time.Time {
	return time.Date(2026, 3, 14, h, 0, 0, 0, time.UTC)
}

func TestShowtimeOverlaps(t *testing.T) {
	s := &Showtime{StartsAt: ts(10), EndsAt: ts(12)}

	assert.True(t, s.Overlaps(ts(11), ts(13)), "partial overlap from the right")
	assert.True(t, s.Overlaps(ts(9), ts(11)), "partial overlap from the left")
	assert.True(t, s.Overlaps(ts(9), ts(13)), "candidate contains showtime")
	assert.True(t, s.Overlaps(ts(10), ts(12)), "identical window")

	// Half-open boundaries: back-to-back showtimes do not conflict.
	assert.False(t, s.Overlaps(ts(12), ts(14)))
	assert.False(t, s.Overlaps(ts(8), ts(10)))
}
