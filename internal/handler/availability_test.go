package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cineseat/internal/model"
)

func seatFixture(id uint64, code, seatType string) model.Seat {
	return model.Seat{ID: id, SeatCode: code, SeatType: seatType, IsActive: true}
}

func TestBuildSeatMapMergesLayers(t *testing.T) {
	seats := []model.Seat{
		seatFixture(1, "A1", model.SeatTypeStandard),
		seatFixture(2, "A2", model.SeatTypeVIP),
		seatFixture(3, "A3", model.SeatTypeStandard),
		seatFixture(4, "A4", model.SeatTypeAccessible),
	}
	booked := map[uint64]struct{}{2: {}}
	held := map[uint64]string{3: "holder-x"}

	out := buildSeatMap(seats, 1000, booked, held, "")
	require.Len(t, out, 4)

	assert.Equal(t, StatusAvailable, out[0].Status)
	assert.Equal(t, StatusBooked, out[1].Status)
	assert.Equal(t, StatusHeld, out[2].Status)
	assert.Equal(t, StatusAvailable, out[3].Status)

	assert.Equal(t, uint32(1000), out[0].PriceCents)
	assert.Equal(t, uint32(1500), out[1].PriceCents, "VIP surcharge applies")
	assert.Equal(t, uint32(800), out[3].PriceCents, "accessible discount applies")
}

func TestBuildSeatMapBookedWinsOverHeld(t *testing.T) {
	seats := []model.Seat{seatFixture(7, "B1", model.SeatTypeStandard)}
	booked := map[uint64]struct{}{7: {}}
	held := map[uint64]string{7: "holder-x"}

	out := buildSeatMap(seats, 500, booked, held, "")
	require.Len(t, out, 1)
	assert.Equal(t, StatusBooked, out[0].Status)
}

func TestBuildSeatMapOwnHoldsReadAvailable(t *testing.T) {
	seats := []model.Seat{
		seatFixture(1, "A1", model.SeatTypeStandard),
		seatFixture(2, "A2", model.SeatTypeStandard),
	}
	held := map[uint64]string{1: "me", 2: "someone-else"}

	out := buildSeatMap(seats, 500, nil, held, "me")
	require.Len(t, out, 2)
	assert.Equal(t, StatusAvailable, out[0].Status, "a viewer is not blocked by its own hold")
	assert.Equal(t, StatusHeld, out[1].Status)
}
