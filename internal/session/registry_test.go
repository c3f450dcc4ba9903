package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herdgame/herd/internal/game"
)

func drain(c *Conn) []game.Event {
	var out []game.Event
	for {
		select {
		case ev := <-c.OutChan:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestBindAndLookup(t *testing.T) {
	reg := NewRegistry()
	conn := NewConn(func() {})
	roomID, playerID := uuid.New(), uuid.New()

	_, ok := reg.Lookup(conn.ID)
	assert.False(t, ok)

	reg.Bind(conn, roomID, playerID)
	b, ok := reg.Lookup(conn.ID)
	require.True(t, ok)
	assert.Equal(t, roomID, b.RoomID)
	assert.Equal(t, playerID, b.PlayerID)

	got, ok := reg.Conn(conn.ID)
	require.True(t, ok)
	assert.Same(t, conn, got)
}

func TestUnbind(t *testing.T) {
	reg := NewRegistry()
	conn := NewConn(func() {})
	roomID, playerID := uuid.New(), uuid.New()
	reg.Bind(conn, roomID, playerID)

	b, ok := reg.Unbind(conn.ID)
	require.True(t, ok)
	assert.Equal(t, playerID, b.PlayerID)

	_, ok = reg.Lookup(conn.ID)
	assert.False(t, ok)
	assert.False(t, reg.SendToPlayer(playerID, game.NewEvent(game.EventPong)))

	// Unbinding twice is a no-op.
	_, ok = reg.Unbind(conn.ID)
	assert.False(t, ok)
}

func TestBindReplacesStaleConnection(t *testing.T) {
	reg := NewRegistry()
	roomID, playerID := uuid.New(), uuid.New()

	stale := NewConn(func() {})
	reg.Bind(stale, roomID, playerID)

	fresh := NewConn(func() {})
	reg.Bind(fresh, roomID, playerID)

	// The stale connection no longer speaks for the player.
	_, ok := reg.Lookup(stale.ID)
	assert.False(t, ok)

	require.True(t, reg.SendToPlayer(playerID, game.NewEvent(game.EventPong)))
	assert.Empty(t, drain(stale))
	assert.Len(t, drain(fresh), 1)
}

func TestBroadcastToRoom(t *testing.T) {
	reg := NewRegistry()
	roomID, otherRoomID := uuid.New(), uuid.New()

	a := NewConn(func() {})
	b := NewConn(func() {})
	outsider := NewConn(func() {})
	reg.Bind(a, roomID, uuid.New())
	reg.Bind(b, roomID, uuid.New())
	reg.Bind(outsider, otherRoomID, uuid.New())

	reg.BroadcastToRoom(roomID, game.NewEvent(game.EventPlayersUpdated))

	assert.Len(t, drain(a), 1)
	assert.Len(t, drain(b), 1)
	assert.Empty(t, drain(outsider))
}

func TestSendNeverBlocks(t *testing.T) {
	conn := NewConn(func() {})

	// Overfill the outbound queue; surplus events are dropped, not deadlocked.
	for i := 0; i < cap(conn.OutChan)+10; i++ {
		conn.Send(game.NewEvent(game.EventPong))
	}
	assert.Len(t, drain(conn), cap(conn.OutChan))
}
