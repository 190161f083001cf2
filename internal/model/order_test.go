package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderLive(t *testing.T) {
	now := ts(10)
	future := ts(11)
	past := ts(9)

	confirmed := &Order{Status: OrderConfirmed}
	assert.True(t, confirmed.Live(now))

	pending := &Order{Status: OrderPending, ExpiresAt: &future}
	assert.True(t, pending.Live(now))

	stale := &Order{Status: OrderPending, ExpiresAt: &past}
	assert.False(t, stale.Live(now), "expired pending order is not live even before the sweep")

	noDeadline := &Order{Status: OrderPending}
	assert.False(t, noDeadline.Live(now), "pending order without a deadline is stale")

	cancelled := &Order{Status: OrderCancelled, ExpiresAt: &future}
	assert.False(t, cancelled.Live(now))
}
