// Package hub implements the in-memory broadcast channel that lets
// viewers of the same showtime see each other's in-progress seat
// selections.  The hub keeps one group of connections per showtime
// plus the advisory hold set for that showtime.  Nothing here is
// durable or authoritative: bookings succeed or fail identically when
// the hub is empty, and a lost notification is corrected by the next
// availability fetch.
package hub

import "sync"

// sendBuffer bounds the per-connection outbox.  A peer that cannot
// drain this many frames is dropped rather than allowed to stall the
// broadcaster.
const sendBuffer = 32

// Conn is one viewer's registration in a showtime group.  The zero
// value is not usable; obtain connections from Hub.Join.
type Conn struct {
	HolderID   string
	showtimeID uint64
	send       chan []byte

	// closed and held are guarded by the hub mutex.
	closed bool
	held   map[uint64]struct{}
}

// Outbox returns the channel the transport writer must drain.  The
// channel is closed when the hub drops the connection.
func (c *Conn) Outbox() <-chan []byte { return c.send }

// ShowtimeID returns the group this connection belongs to.
func (c *Conn) ShowtimeID() uint64 { return c.showtimeID }

// Hub is the registry of showtime groups.  All methods are safe for
// concurrent use.
type Hub struct {
	mu     sync.Mutex
	groups map[uint64]map[*Conn]struct{}
	holds  map[uint64]map[uint64]string // showtime -> seat -> holder
}

// New returns an empty hub.
func New() *Hub {
	return &Hub{
		groups: make(map[uint64]map[*Conn]struct{}),
		holds:  make(map[uint64]map[uint64]string),
	}
}

// Join registers a new connection in the showtime's group and returns
// it.  Each call produces an independent connection, so a client
// reconnecting simply joins again.
func (h *Hub) Join(showtimeID uint64, holderID string) *Conn {
	c := &Conn{
		HolderID:   holderID,
		showtimeID: showtimeID,
		send:       make(chan []byte, sendBuffer),
		held:       make(map[uint64]struct{}),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.groups[showtimeID]
	if !ok {
		g = make(map[*Conn]struct{})
		h.groups[showtimeID] = g
	}
	g[c] = struct{}{}
	return c
}

// Leave removes the connection from its group, releasing any seats it
// still held and relaying the release to the remaining members.  It
// is idempotent and also covers transport disconnects.
func (h *Hub) Leave(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	released := h.detachLocked(c)
	if len(released) > 0 {
		msg := Message{Type: TypeSeatsReleased, ShowtimeID: c.showtimeID, SeatIDs: released, HolderID: c.HolderID}
		h.fanOutLocked(c.showtimeID, msg.Encode(), c)
	}
}

// Hold records the connection's claim on the given seats and relays a
// seats_held frame to every other member of the group.  Claims are
// advisory: two holders may claim the same seat and the conflict is
// resolved only at booking time, so the later claim simply overwrites
// the earlier one in the hold set.
func (h *Hub) Hold(c *Conn, seatIDs []uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	hs, ok := h.holds[c.showtimeID]
	if !ok {
		hs = make(map[uint64]string)
		h.holds[c.showtimeID] = hs
	}
	for _, id := range seatIDs {
		hs[id] = c.HolderID
		c.held[id] = struct{}{}
	}
	msg := Message{Type: TypeSeatsHeld, ShowtimeID: c.showtimeID, SeatIDs: seatIDs, HolderID: c.HolderID}
	h.fanOutLocked(c.showtimeID, msg.Encode(), c)
}

// Release drops the connection's claim on the given seats and relays
// a seats_released frame to the rest of the group.  Seats currently
// attributed to a different holder are left untouched.
func (h *Hub) Release(c *Conn, seatIDs []uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	released := make([]uint64, 0, len(seatIDs))
	hs := h.holds[c.showtimeID]
	for _, id := range seatIDs {
		delete(c.held, id)
		if hs != nil && hs[id] == c.HolderID {
			delete(hs, id)
			released = append(released, id)
		}
	}
	if len(released) == 0 {
		return
	}
	msg := Message{Type: TypeSeatsReleased, ShowtimeID: c.showtimeID, SeatIDs: released, HolderID: c.HolderID}
	h.fanOutLocked(c.showtimeID, msg.Encode(), c)
}

// ConfirmSeats announces that the given seats were durably sold.  The
// frame goes to the entire group, including whoever still held the
// seats; any matching advisory holds are cleared since a confirm
// overrides them.
func (h *Hub) ConfirmSeats(showtimeID uint64, seatIDs []uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clearHoldsLocked(showtimeID, seatIDs)
	msg := Message{Type: TypeSeatsConfirmed, ShowtimeID: showtimeID, SeatIDs: seatIDs}
	h.fanOutLocked(showtimeID, msg.Encode(), nil)
}

// ReleaseSeats announces that previously sold seats are free again
// (order cancelled or expired).  The frame goes to the entire group.
func (h *Hub) ReleaseSeats(showtimeID uint64, seatIDs []uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clearHoldsLocked(showtimeID, seatIDs)
	msg := Message{Type: TypeSeatsReleased, ShowtimeID: showtimeID, SeatIDs: seatIDs}
	h.fanOutLocked(showtimeID, msg.Encode(), nil)
}

// HeldSeats returns a snapshot of the advisory hold set for a
// showtime, keyed by seat id.  The availability resolver merges this
// over the durable booking state.
func (h *Hub) HeldSeats(showtimeID uint64) map[uint64]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	hs := h.holds[showtimeID]
	out := make(map[uint64]string, len(hs))
	for seat, holder := range hs {
		out[seat] = holder
	}
	return out
}

// GroupSize reports how many connections are registered for a
// showtime.
func (h *Hub) GroupSize(showtimeID uint64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.groups[showtimeID])
}

// fanOutLocked delivers payload to every open member of the group
// except skip.  Delivery is fire-and-forget: a full outbox marks the
// connection dropped, and dropped connections are detached afterwards
// with their holds released to the survivors.
func (h *Hub) fanOutLocked(showtimeID uint64, payload []byte, skip *Conn) {
	var dropped []*Conn
	for c := range h.groups[showtimeID] {
		if c == skip || c.closed {
			continue
		}
		select {
		case c.send <- payload:
		default:
			c.closed = true
			dropped = append(dropped, c)
		}
	}
	// Detaching can release holds, which fans out again and may drop
	// further slow peers; drain the worklist iteratively.
	for len(dropped) > 0 {
		c := dropped[0]
		dropped = dropped[1:]
		released := h.detachLocked(c)
		if len(released) == 0 {
			continue
		}
		msg := Message{Type: TypeSeatsReleased, ShowtimeID: c.showtimeID, SeatIDs: released, HolderID: c.HolderID}
		rel := msg.Encode()
		for peer := range h.groups[c.showtimeID] {
			if peer.closed {
				continue
			}
			select {
			case peer.send <- rel:
			default:
				peer.closed = true
				dropped = append(dropped, peer)
			}
		}
	}
}

// detachLocked removes the connection from its group, closes its
// outbox and clears its holds, returning the seat ids that were still
// attributed to it.
func (h *Hub) detachLocked(c *Conn) []uint64 {
	if g, ok := h.groups[c.showtimeID]; ok {
		delete(g, c)
		if len(g) == 0 {
			delete(h.groups, c.showtimeID)
		}
	}
	close(c.send)
	var released []uint64
	hs := h.holds[c.showtimeID]
	for seat := range c.held {
		if hs != nil && hs[seat] == c.HolderID {
			delete(hs, seat)
			released = append(released, seat)
		}
	}
	c.held = nil
	if len(hs) == 0 {
		delete(h.holds, c.showtimeID)
	}
	return released
}

// clearHoldsLocked drops advisory holds on the given seats regardless
// of holder.
func (h *Hub) clearHoldsLocked(showtimeID uint64, seatIDs []uint64) {
	hs := h.holds[showtimeID]
	if hs == nil {
		return
	}
	for _, id := range seatIDs {
		delete(hs, id)
	}
	for g := range h.groups[showtimeID] {
		for _, id := range seatIDs {
			delete(g.held, id)
		}
	}
	if len(hs) == 0 {
		delete(h.holds, showtimeID)
	}
}
