package hub

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, c *Conn) Message {
	t.Helper()
	select {
	case b, ok := <-c.Outbox():
		require.True(t, ok, "outbox closed unexpectedly")
		var m Message
		require.NoError(t, json.Unmarshal(b, &m))
		return m
	default:
		t.Fatal("expected a pending frame")
		return Message{}
	}
}

func assertEmpty(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case b := <-c.Outbox():
		t.Fatalf("unexpected frame: %s", b)
	default:
	}
}

func TestHoldRelaysToGroupMinusSender(t *testing.T) {
	h := New()
	alice := h.Join(7, "alice")
	bob := h.Join(7, "bob")
	other := h.Join(8, "carol") // different showtime, must see nothing

	h.Hold(alice, []uint64{1, 2})

	m := recv(t, bob)
	assert.Equal(t, TypeSeatsHeld, m.Type)
	assert.Equal(t, uint64(7), m.ShowtimeID)
	assert.Equal(t, []uint64{1, 2}, m.SeatIDs)
	assert.Equal(t, "alice", m.HolderID)

	assertEmpty(t, alice)
	assertEmpty(t, other)

	assert.Equal(t, map[uint64]string{1: "alice", 2: "alice"}, h.HeldSeats(7))
}

func TestReleaseOnlyDropsOwnHolds(t *testing.T) {
	h := New()
	alice := h.Join(7, "alice")
	bob := h.Join(7, "bob")

	h.Hold(alice, []uint64{1})
	h.Hold(bob, []uint64{1, 2}) // later claim on seat 1 overwrites alice's
	recv(t, bob)
	recv(t, alice)

	// Alice no longer owns seat 1 and never owned seat 2, so nothing
	// is relayed.
	h.Release(alice, []uint64{1, 2})
	assertEmpty(t, bob)
	assert.Equal(t, map[uint64]string{1: "bob", 2: "bob"}, h.HeldSeats(7))
}

func TestConfirmReachesEntireGroupAndClearsHolds(t *testing.T) {
	h := New()
	alice := h.Join(7, "alice")
	bob := h.Join(7, "bob")
	h.Hold(alice, []uint64{3})
	recv(t, bob)

	// Bob wins the booking while Alice still holds the seat: the
	// confirm must be deliverable to Alice too.
	h.ConfirmSeats(7, []uint64{3})

	for _, c := range []*Conn{alice, bob} {
		m := recv(t, c)
		assert.Equal(t, TypeSeatsConfirmed, m.Type)
		assert.Equal(t, []uint64{3}, m.SeatIDs)
	}
	assert.Empty(t, h.HeldSeats(7))
}

func TestLeaveReleasesHoldsAndIsIdempotent(t *testing.T) {
	h := New()
	alice := h.Join(7, "alice")
	bob := h.Join(7, "bob")
	h.Hold(alice, []uint64{5})
	recv(t, bob)

	h.Leave(alice)
	m := recv(t, bob)
	assert.Equal(t, TypeSeatsReleased, m.Type)
	assert.Equal(t, []uint64{5}, m.SeatIDs)
	assert.Empty(t, h.HeldSeats(7))
	assert.Equal(t, 1, h.GroupSize(7))

	h.Leave(alice) // second leave is a no-op
	assert.Equal(t, 1, h.GroupSize(7))

	_, open := <-alice.Outbox()
	assert.False(t, open, "outbox closes on leave")
}

func TestSlowPeerIsDroppedNotBlocked(t *testing.T) {
	h := New()
	sender := h.Join(7, "sender")
	slow := h.Join(7, "slow") // never drains its outbox

	// Exceed the outbox capacity; the broadcaster must never block.
	for i := 0; i < sendBuffer+5; i++ {
		h.Hold(sender, []uint64{uint64(i + 1)})
	}

	assert.Equal(t, 1, h.GroupSize(7), "slow peer dropped from the group")
	_, open := <-slow.Outbox()
	assert.True(t, open, "buffered frames remain readable")
}

func TestConcurrentHoldersSameSeat(t *testing.T) {
	h := New()
	const n = 16
	conns := make([]*Conn, n)
	for i := range conns {
		conns[i] = h.Join(1, string(rune('a'+i)))
		go func(c *Conn) {
			for range c.Outbox() {
			}
		}(conns[i])
	}

	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()
			h.Hold(c, []uint64{42})
			h.Release(c, []uint64{42})
		}(c)
	}
	wg.Wait()

	// Advisory holds carry no locking: whatever interleaving happened,
	// the hub is left consistent and at most one holder remains.
	held := h.HeldSeats(1)
	assert.LessOrEqual(t, len(held), 1)
	assert.Equal(t, n, h.GroupSize(1))
}
