package hub

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message types exchanged over a live connection.  Clients send hold
// and release; the server relays them as seats_held / seats_released
// and emits seats_confirmed on its own after a durable booking.
const (
	TypeHold           = "hold"
	TypeRelease        = "release"
	TypeWelcome        = "welcome"
	TypeSeatsHeld      = "seats_held"
	TypeSeatsReleased  = "seats_released"
	TypeSeatsConfirmed = "seats_confirmed"
)

// Message is the JSON envelope for every frame on the live channel.
// HolderID is filled in by the server from the connection identity;
// values sent by clients are ignored.
type Message struct {
	Type       string   `json:"type"`
	ShowtimeID uint64   `json:"showtime_id"`
	SeatIDs    []uint64 `json:"seat_ids,omitempty"`
	HolderID   string   `json:"holder_id,omitempty"`
}

var errEmptySeats = errors.New("seat_ids is required")

// DecodeClient parses an inbound client frame.  Only hold and release
// are accepted from clients; server-originated types are rejected so
// a client cannot spoof a confirmation.
func DecodeClient(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	switch m.Type {
	case TypeHold, TypeRelease:
	default:
		return Message{}, fmt.Errorf("unsupported message type %q", m.Type)
	}
	if len(m.SeatIDs) == 0 {
		return Message{}, errEmptySeats
	}
	return m, nil
}

// Encode serializes a message for the wire.  Marshalling a Message
// cannot fail, so the error is swallowed.
func (m Message) Encode() []byte {
	b, _ := json.Marshal(m)
	return b
}
