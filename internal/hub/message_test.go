package hub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeClient(t *testing.T) {
	m, err := DecodeClient([]byte(`{"type":"hold","showtime_id":9,"seat_ids":[4,5]}`))
	require.NoError(t, err)
	assert.Equal(t, TypeHold, m.Type)
	assert.Equal(t, uint64(9), m.ShowtimeID)
	assert.Equal(t, []uint64{4, 5}, m.SeatIDs)
}

func TestDecodeClientRejectsServerTypes(t *testing.T) {
	// A client must not be able to inject a confirmation frame.
	_, err := DecodeClient([]byte(`{"type":"seats_confirmed","showtime_id":9,"seat_ids":[4]}`))
	assert.Error(t, err)
}

func TestDecodeClientRejectsEmptySeats(t *testing.T) {
	_, err := DecodeClient([]byte(`{"type":"release","showtime_id":9}`))
	assert.ErrorIs(t, err, errEmptySeats)
}

func TestDecodeClientRejectsGarbage(t *testing.T) {
	_, err := DecodeClient([]byte(`{`))
	assert.Error(t, err)
}
