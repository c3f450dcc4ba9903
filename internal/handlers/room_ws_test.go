// internal/handlers/room_ws_test.go
package handlers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herdgame/herd/internal/game"
	"github.com/herdgame/herd/internal/session"
)

func newTestServer() *Server {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return &Server{
		Rooms:    game.NewRoomStore(),
		Sessions: session.NewRegistry(),
		Prompts:  game.NewPromptSelector(nil),
		Logger:   logger,
	}
}

func drainConn(c *session.Conn) []game.Event {
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

func TestAttachBroadcastersDeliversThroughRegistry(t *testing.T) {
	s := newTestServer()
	room, err := s.Rooms.CreateRoom(s.Prompts)
	require.NoError(t, err)
	attachBroadcasters(s, room)

	member := session.NewConn(func() {})
	other := session.NewConn(func() {})
	memberPlayerID := uuid.New()
	s.Sessions.Bind(member, room.ID, memberPlayerID)
	s.Sessions.Bind(other, uuid.New(), uuid.New())

	room.BroadcastFn(game.NewEvent(game.EventPlayersUpdated))
	assert.Len(t, drainConn(member), 1)
	assert.Empty(t, drainConn(other))

	room.BroadcastToPlayerFn(memberPlayerID, game.NewEvent(game.EventPong))
	targeted := drainConn(member)
	require.Len(t, targeted, 1)
	assert.Equal(t, string(game.EventPong), targeted[0].EventName())
}

func TestHandleRemovePlayerClosesKickedConnection(t *testing.T) {
	s := newTestServer()
	room, err := s.Rooms.CreateRoom(s.Prompts)
	require.NoError(t, err)
	attachBroadcasters(s, room)

	hostConn := session.NewConn(func() {})
	host, err := room.CreateHost("alice", hostConn.ID)
	require.NoError(t, err)
	s.Sessions.Bind(hostConn, room.ID, host.ID)

	kickConn := session.NewConn(func() {})
	var closedWith int
	kickConn.CloseWithCode = func(code int, reason string) {
		closedWith = code
	}
	guest, _, err := room.Join("bob", kickConn.ID)
	require.NoError(t, err)
	s.Sessions.Bind(kickConn, room.ID, guest.ID)

	handleRemovePlayer(s, hostConn, ClientMessage{TargetPlayerID: guest.ID.String()}, s.Logger)

	assert.Equal(t, RemovedFromRoomError, closedWith)
	_, bound := s.Sessions.Lookup(kickConn.ID)
	assert.False(t, bound)
	assert.False(t, guest.Connected)

	// The kicked player heard why before the socket dropped.
	var sawRemoved bool
	for _, ev := range drainConn(kickConn) {
		if ev.EventName() == string(game.EventPlayerRemoved) {
			sawRemoved = true
		}
	}
	assert.True(t, sawRemoved)
}
