package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cineseat/internal/model"
)

func TestSeatPriceCents(t *testing.T) {
	assert.Equal(t, uint32(1200), SeatPriceCents(1200, model.SeatTypeStandard))
	assert.Equal(t, uint32(1800), SeatPriceCents(1200, model.SeatTypeVIP))
	assert.Equal(t, uint32(960), SeatPriceCents(1200, model.SeatTypeAccessible))

	// Odd base prices round half away from zero after the surcharge.
	assert.Equal(t, uint32(1499), SeatPriceCents(999, model.SeatTypeVIP))

	// Unknown types charge the standard rate rather than failing.
	assert.Equal(t, uint32(1200), SeatPriceCents(1200, "RECLINER"))
}
