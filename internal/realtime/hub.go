// README: In-memory room registry; fan-out is at-most-once and never blocks publishers.
package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// sendBuffer bounds the per-connection outbound queue. A subscriber that
// falls this far behind starts losing events; clients reconcile by re-pull.
const sendBuffer = 64

// Hub routes events to rooms. Membership is process-local; nothing survives
// a restart, which is fine because clients re-join on reconnect.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Conn]struct{}
	log   *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		rooms: make(map[string]map[*Conn]struct{}),
		log:   log,
	}
}

// Publish delivers an event to every current member of room. Delivery is
// best effort: no member means the event is dropped, and a member whose
// buffer is full loses it.
func (h *Hub) Publish(room, event string, payload any) {
	h.mu.RLock()
	members := make([]*Conn, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		c.trySend(Event{Name: event, Data: payload})
	}
}

// RoomSize reports current membership, used by tests and the health endpoint.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// NewConn registers a fresh session handle. The caller owns draining Outbox()
// and must call Close when the underlying transport goes away.
func (h *Hub) NewConn() *Conn {
	return &Conn{
		hub:   h,
		send:  make(chan Event, sendBuffer),
		rooms: make(map[string]struct{}),
	}
}

func (h *Hub) join(room string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.rooms[room]
	if !ok {
		set = make(map[*Conn]struct{})
		h.rooms[room] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) leave(room string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.rooms, room)
	}
}

// Conn is one connected session. The transport drains Outbox; the hub only
// ever does non-blocking sends into it.
type Conn struct {
	hub  *Hub
	send chan Event

	mu     sync.Mutex
	rooms  map[string]struct{}
	closed bool
}

// Join makes the connection a member of room. Joining twice is a no-op.
func (c *Conn) Join(room string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if _, ok := c.rooms[room]; ok {
		c.mu.Unlock()
		return
	}
	c.rooms[room] = struct{}{}
	c.mu.Unlock()
	c.hub.join(room, c)
}

// Leave removes the connection from room. Leaving a non-member room is a no-op.
func (c *Conn) Leave(room string) {
	c.mu.Lock()
	if _, ok := c.rooms[room]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.rooms, room)
	c.mu.Unlock()
	c.hub.leave(room, c)
}

// Emit sends an event to this connection only, same best-effort contract as
// room publishing.
func (c *Conn) Emit(event string, payload any) {
	c.trySend(Event{Name: event, Data: payload})
}

// Outbox is drained by the transport's write loop. It is closed by Close.
func (c *Conn) Outbox() <-chan Event {
	return c.send
}

// Close removes the connection from every room and closes the outbox.
// Safe to call more than once.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	rooms := make([]string, 0, len(c.rooms))
	for r := range c.rooms {
		rooms = append(rooms, r)
	}
	c.rooms = make(map[string]struct{})
	c.mu.Unlock()

	for _, r := range rooms {
		c.hub.leave(r, c)
	}
	close(c.send)
}

func (c *Conn) trySend(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- ev:
	default:
		c.hub.log.Debug("dropping event for slow subscriber", zap.String("event", ev.Name))
	}
}
