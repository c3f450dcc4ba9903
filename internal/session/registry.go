// internal/session/registry.go
package session

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/google/uuid"
	"github.com/herdgame/herd/internal/game"
)

// Conn is one live websocket client. Outbound events are queued onto
// OutChan and drained by the connection's write pump; Send never blocks room
// logic. Cancel tears down the connection's read loop.
type Conn struct {
	ID      uuid.UUID
	OutChan chan game.Event
	Cancel  context.CancelFunc

	// CloseWithCode closes the underlying socket with a specific close code
	// before cancelling the read loop. Set by the transport; nil in tests.
	CloseWithCode func(code int, reason string)
}

// NewConn allocates a connection wrapper with a fresh identity.
func NewConn(cancel context.CancelFunc) *Conn {
	id, _ := uuid.NewRandom()
	return &Conn{
		ID:      id,
		OutChan: make(chan game.Event, 16),
		Cancel:  cancel,
	}
}

// Send queues an event for the write pump, dropping it if the channel is
// full or closed. A dropped event means the client is too slow or already
// gone; the read loop will notice and clean up.
func (c *Conn) Send(ev game.Event) {
	select {
	case c.OutChan <- ev:
	default:
		log.Warnf("session: out channel for conn %s full or closed, dropped %s", c.ID, ev.EventName())
	}
}

// Binding ties a connection to the (room, player) pair it is acting as.
type Binding struct {
	RoomID   uuid.UUID
	PlayerID uuid.UUID
}

// Registry is the room-membership table: which connections are joined to
// which room, and which player each connection speaks for. It is rebuilt on
// every connect/reconnect/disconnect, so player identity never depends on a
// transient connection identity.
type Registry struct {
	mu       sync.Mutex
	conns    map[uuid.UUID]*Conn               // connID -> conn
	bindings map[uuid.UUID]Binding             // connID -> (room, player)
	players  map[uuid.UUID]uuid.UUID           // playerID -> connID
	rooms    map[uuid.UUID]map[uuid.UUID]*Conn // roomID -> connID -> conn
}

// NewRegistry initializes an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:    make(map[uuid.UUID]*Conn),
		bindings: make(map[uuid.UUID]Binding),
		players:  make(map[uuid.UUID]uuid.UUID),
		rooms:    make(map[uuid.UUID]map[uuid.UUID]*Conn),
	}
}

// Bind attaches a connection to a (room, player) pair, replacing any stale
// binding the player may still have from a dead connection.
func (reg *Registry) Bind(conn *Conn, roomID, playerID uuid.UUID) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if staleConnID, ok := reg.players[playerID]; ok && staleConnID != conn.ID {
		reg.unbindLocked(staleConnID)
	}

	reg.conns[conn.ID] = conn
	reg.bindings[conn.ID] = Binding{RoomID: roomID, PlayerID: playerID}
	reg.players[playerID] = conn.ID
	members, ok := reg.rooms[roomID]
	if !ok {
		members = make(map[uuid.UUID]*Conn)
		reg.rooms[roomID] = members
	}
	members[conn.ID] = conn
}

// Lookup resolves a connection to its binding.
func (reg *Registry) Lookup(connID uuid.UUID) (Binding, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	b, ok := reg.bindings[connID]
	return b, ok
}

// Conn returns the live connection object for a connection ID.
func (reg *Registry) Conn(connID uuid.UUID) (*Conn, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	c, ok := reg.conns[connID]
	return c, ok
}

// Unbind removes a connection's binding, reporting what it was bound to so
// the caller can mark the player disconnected in the room.
func (reg *Registry) Unbind(connID uuid.UUID) (Binding, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	b, ok := reg.bindings[connID]
	if ok {
		reg.unbindLocked(connID)
	}
	return b, ok
}

func (reg *Registry) unbindLocked(connID uuid.UUID) {
	b, ok := reg.bindings[connID]
	if !ok {
		return
	}
	delete(reg.bindings, connID)
	delete(reg.conns, connID)
	if cur, ok := reg.players[b.PlayerID]; ok && cur == connID {
		delete(reg.players, b.PlayerID)
	}
	if members, ok := reg.rooms[b.RoomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(reg.rooms, b.RoomID)
		}
	}
}

// BroadcastToRoom queues an event onto every connection currently joined to
// the room's channel.
func (reg *Registry) BroadcastToRoom(roomID uuid.UUID, ev game.Event) {
	reg.mu.Lock()
	targets := make([]*Conn, 0, len(reg.rooms[roomID]))
	for _, c := range reg.rooms[roomID] {
		targets = append(targets, c)
	}
	reg.mu.Unlock()

	for _, c := range targets {
		c.Send(ev)
	}
}

// SendToPlayer queues an event to the player's current connection, if any.
func (reg *Registry) SendToPlayer(playerID uuid.UUID, ev game.Event) bool {
	reg.mu.Lock()
	connID, ok := reg.players[playerID]
	var target *Conn
	if ok {
		target = reg.conns[connID]
	}
	reg.mu.Unlock()

	if target == nil {
		return false
	}
	target.Send(ev)
	return true
}
