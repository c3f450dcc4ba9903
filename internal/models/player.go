package models

import (
	"time"

	"github.com/google/uuid"
)

// Player is one seat in a room. The logical identity is the (room, display name)
// pair; ConnID is the transient websocket connection currently attached to the
// player and changes across reconnects.
type Player struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
	IsHost      bool      `json:"isHost"`
	Score       int       `json:"score"`
	Connected   bool      `json:"connected"`

	ConnID   uuid.UUID `json:"-"`
	JoinedAt time.Time `json:"-"`
}
