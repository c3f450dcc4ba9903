// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/herdgame/herd/internal/auth"
	"github.com/herdgame/herd/internal/game"
	"github.com/herdgame/herd/internal/middleware"
	"github.com/herdgame/herd/internal/session"
)

// ClientMessage is the inbound envelope. Type selects the action; the other
// fields are populated as each action requires.
type ClientMessage struct {
	Type           string `json:"type"`
	DisplayName    string `json:"displayName,omitempty"`
	RoomID         string `json:"roomId,omitempty"`
	RoomCode       string `json:"roomCode,omitempty"`
	Text           string `json:"text,omitempty"`
	TargetPlayerID string `json:"targetPlayerId,omitempty"`
	PlayerToken    string `json:"playerToken,omitempty"`
}

// RoomWSHandler upgrades the connection and runs the read/write pumps. All
// game actions, including room creation, arrive as messages on this single
// endpoint; a connection is bound to at most one (room, player) pair for its
// lifetime.
func RoomWSHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"herd"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "herd" {
			c.Close(BadSubprotocolError, "client must speak the herd subprotocol")
			return
		}

		middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		conn := session.NewConn(cancel)
		conn.CloseWithCode = func(code int, reason string) {
			c.Close(websocket.StatusCode(code), reason)
			cancel()
		}

		go writePump(ctx, c, conn, logger)
		readPump(ctx, c, conn, s, logger)

		// The connection is gone. Mark the player disconnected so the room
		// can re-evaluate the current round without them.
		if binding, ok := s.Sessions.Unbind(conn.ID); ok {
			if room, found := s.Rooms.GetRoom(binding.RoomID); found {
				room.Disconnect(binding.PlayerID)
			}
		}
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, nil)
	}
}

// readPump consumes client messages until the connection closes or the
// context is cancelled.
func readPump(ctx context.Context, c *websocket.Conn, conn *session.Conn, s *Server, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				logger.Infof("conn %s: websocket closed normally", conn.ID)
			} else if !strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("conn %s: read error: %v (close status: %d)", conn.ID, err, closeStatus)
			}
			return
		}

		if typ != websocket.MessageText {
			logger.Warnf("conn %s: ignoring non-text message type %d", conn.ID, typ)
			continue
		}

		var packet ClientMessage
		if err := json.Unmarshal(msg, &packet); err != nil {
			logger.Warnf("conn %s: invalid json: %v", conn.ID, err)
			conn.Send(game.ErrorEvent(game.NewError(game.ErrInvalidState, "invalid JSON message")))
			continue
		}

		route(s, conn, packet, logger)
	}
}

// route dispatches one client message to its handler.
func route(s *Server, conn *session.Conn, msg ClientMessage, logger *logrus.Logger) {
	switch msg.Type {
	case "create_game":
		handleCreateGame(s, conn, msg, logger)
	case "join_game":
		handleJoinGame(s, conn, msg, logger)
	case "reconnect_game":
		handleReconnectGame(s, conn, msg, logger)
	case "start_game":
		withBoundRoom(s, conn, msg, func(room *game.Room, playerID uuid.UUID) error {
			return room.Start(playerID)
		})
	case "submit_answer":
		withBoundRoom(s, conn, msg, func(room *game.Room, playerID uuid.UUID) error {
			return room.SubmitAnswer(playerID, msg.Text)
		})
	case "next_round":
		withBoundRoom(s, conn, msg, func(room *game.Room, playerID uuid.UUID) error {
			return room.NextRound(playerID)
		})
	case "remove_player":
		handleRemovePlayer(s, conn, msg, logger)
	case "ping":
		conn.Send(game.NewEvent(game.EventPong))
	default:
		logger.Warnf("conn %s: unknown message type %q", conn.ID, msg.Type)
		conn.Send(game.ErrorEvent(game.NewError(game.ErrInvalidState, "unknown message type: %s", msg.Type)))
	}
}

// withBoundRoom resolves the connection's binding and room, verifies any
// roomId the client echoed back, and runs the action, converting failures
// into error events on this connection.
func withBoundRoom(s *Server, conn *session.Conn, msg ClientMessage, action func(room *game.Room, playerID uuid.UUID) error) {
	binding, ok := s.Sessions.Lookup(conn.ID)
	if !ok {
		conn.Send(game.ErrorEvent(game.NewError(game.ErrUnknownPlayer, "connection has not joined a room")))
		return
	}
	if msg.RoomID != "" {
		claimed, err := uuid.Parse(msg.RoomID)
		if err != nil || claimed != binding.RoomID {
			conn.Send(game.ErrorEvent(game.NewError(game.ErrUnauthorized, "roomId does not match this connection")))
			return
		}
	}
	room, found := s.Rooms.GetRoom(binding.RoomID)
	if !found {
		conn.Send(game.ErrorEvent(game.NewError(game.ErrNotFound, "room no longer exists")))
		return
	}
	if err := action(room, binding.PlayerID); err != nil {
		conn.Send(game.ErrorEvent(game.AsError(err)))
	}
}

// attachBroadcasters wires the room's fan-out hooks to the session registry.
// The room is already discoverable by code once CreateRoom returns, so the
// hooks are assigned under the room lock to stay ordered with any racing
// join.
func attachBroadcasters(s *Server, room *game.Room) {
	roomID := room.ID
	room.Mu.Lock()
	defer room.Mu.Unlock()
	room.BroadcastFn = func(ev game.Event) {
		s.Sessions.BroadcastToRoom(roomID, ev)
	}
	room.BroadcastToPlayerFn = func(playerID uuid.UUID, ev game.Event) {
		s.Sessions.SendToPlayer(playerID, ev)
	}
}

func handleCreateGame(s *Server, conn *session.Conn, msg ClientMessage, logger *logrus.Logger) {
	if _, bound := s.Sessions.Lookup(conn.ID); bound {
		conn.Send(game.ErrorEvent(game.NewError(game.ErrInvalidState, "connection is already in a room")))
		return
	}

	room, err := s.Rooms.CreateRoom(s.Prompts)
	if err != nil {
		conn.Send(game.ErrorEvent(game.AsError(err)))
		return
	}
	attachBroadcasters(s, room)

	host, err := room.CreateHost(msg.DisplayName, conn.ID)
	if err != nil {
		s.Rooms.DeleteRoom(room.ID)
		conn.Send(game.ErrorEvent(game.AsError(err)))
		return
	}
	s.Sessions.Bind(conn, room.ID, host.ID)

	ev := game.NewEvent(game.EventGameCreated)
	ev["roomId"] = room.ID.String()
	ev["roomCode"] = room.Code
	ev["playerId"] = host.ID.String()
	if token, terr := auth.CreatePlayerToken(room.ID, host.ID); terr == nil {
		ev["playerToken"] = token
	} else {
		logger.Warnf("room %s: failed to mint player token: %v", room.Code, terr)
	}
	conn.Send(ev)
	room.BroadcastPlayers()

	logger.Infof("room %s created by %q (conn %s)", room.Code, host.DisplayName, conn.ID)
}

func handleJoinGame(s *Server, conn *session.Conn, msg ClientMessage, logger *logrus.Logger) {
	if _, bound := s.Sessions.Lookup(conn.ID); bound {
		conn.Send(game.ErrorEvent(game.NewError(game.ErrInvalidState, "connection is already in a room")))
		return
	}

	room, found := s.Rooms.GetRoomByCode(msg.RoomCode)
	if !found {
		conn.Send(game.ErrorEvent(game.NewError(game.ErrNotFound, "no room with code %q", msg.RoomCode)))
		return
	}

	player, joined, err := room.Join(msg.DisplayName, conn.ID)
	if err != nil {
		conn.Send(game.ErrorEvent(game.AsError(err)))
		return
	}
	s.Sessions.Bind(conn, room.ID, player.ID)

	if token, terr := auth.CreatePlayerToken(room.ID, player.ID); terr == nil {
		joined["playerToken"] = token
	} else {
		logger.Warnf("room %s: failed to mint player token: %v", room.Code, terr)
	}
	conn.Send(joined)
	room.BroadcastPlayers()

	logger.Infof("player %q joined room %s (conn %s)", player.DisplayName, room.Code, conn.ID)
}

func handleReconnectGame(s *Server, conn *session.Conn, msg ClientMessage, logger *logrus.Logger) {
	if _, bound := s.Sessions.Lookup(conn.ID); bound {
		conn.Send(game.ErrorEvent(game.NewError(game.ErrInvalidState, "connection is already in a room")))
		return
	}

	room, found := resolveRoom(s, msg)
	if !found {
		conn.Send(reconnectFailed(game.ErrNotFound, "room not found"))
		return
	}

	// A valid player token proves identity beyond knowing the display name.
	if msg.PlayerToken != "" {
		tokenRoomID, _, err := auth.VerifyPlayerToken(msg.PlayerToken)
		if err != nil {
			conn.Send(reconnectFailed(game.ErrUnauthorized, "invalid player token"))
			return
		}
		if tokenRoomID != room.ID {
			conn.Send(reconnectFailed(game.ErrUnauthorized, "player token was issued for another room"))
			return
		}
	}

	player, rejoined, err := room.Reconnect(msg.DisplayName, conn.ID)
	if err != nil {
		gerr := game.AsError(err)
		conn.Send(reconnectFailed(gerr.Code, gerr.Message))
		return
	}
	s.Sessions.Bind(conn, room.ID, player.ID)

	if token, terr := auth.CreatePlayerToken(room.ID, player.ID); terr == nil {
		rejoined["playerToken"] = token
	}
	conn.Send(rejoined)
	room.BroadcastPlayers()

	logger.Infof("player %q reconnected to room %s (conn %s)", player.DisplayName, room.Code, conn.ID)
}

func handleRemovePlayer(s *Server, conn *session.Conn, msg ClientMessage, logger *logrus.Logger) {
	binding, ok := s.Sessions.Lookup(conn.ID)
	if !ok {
		conn.Send(game.ErrorEvent(game.NewError(game.ErrUnknownPlayer, "connection has not joined a room")))
		return
	}
	room, found := s.Rooms.GetRoom(binding.RoomID)
	if !found {
		conn.Send(game.ErrorEvent(game.NewError(game.ErrNotFound, "room no longer exists")))
		return
	}
	targetID, err := uuid.Parse(msg.TargetPlayerID)
	if err != nil {
		conn.Send(game.ErrorEvent(game.NewError(game.ErrUnknownPlayer, "malformed targetPlayerId")))
		return
	}

	oldConnID, err := room.RemovePlayer(binding.PlayerID, targetID)
	if err != nil {
		conn.Send(game.ErrorEvent(game.AsError(err)))
		return
	}

	// Drop the removed player's live connection, if any. Their handler's
	// cleanup path runs as a no-op since the room already forgot them.
	if oldConnID != uuid.Nil {
		if kicked, exists := s.Sessions.Conn(oldConnID); exists {
			s.Sessions.Unbind(oldConnID)
			if kicked.CloseWithCode != nil {
				kicked.CloseWithCode(RemovedFromRoomError, "removed by the host")
			} else {
				kicked.Cancel()
			}
		}
	}
	logger.Infof("player %s removed from room %s by host", targetID, room.Code)
}

// resolveRoom finds a room by id when given, else by code.
func resolveRoom(s *Server, msg ClientMessage) (*game.Room, bool) {
	if msg.RoomID != "" {
		roomID, err := uuid.Parse(msg.RoomID)
		if err != nil {
			return nil, false
		}
		return s.Rooms.GetRoom(roomID)
	}
	if msg.RoomCode != "" {
		return s.Rooms.GetRoomByCode(msg.RoomCode)
	}
	return nil, false
}

func reconnectFailed(code game.ErrorCode, message string) game.Event {
	ev := game.NewEvent(game.EventReconnectFailed)
	ev["reason"] = string(code)
	ev["message"] = message
	return ev
}

// writePump drains the connection's outbound queue and keeps the socket
// alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *session.Conn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Warnf("conn %s: failed to marshal outgoing %s: %v", conn.ID, ev.EventName(), err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("conn %s: write failed: %v", conn.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("conn %s: ping failed, assuming disconnect: %v", conn.ID, err)
				return
			}
		}
	}
}
