package game

// EventType identifies an outbound real-time event.
type EventType string

const (
	EventGameCreated     EventType = "game_created"
	EventGameJoined      EventType = "game_joined"
	EventGameRejoined    EventType = "game_rejoined"
	EventReconnectFailed EventType = "reconnect_failed"
	EventPlayersUpdated  EventType = "players_updated"
	EventPlayerRemoved   EventType = "player_removed"
	EventGameStarted     EventType = "game_started"
	EventPlayerAnswered  EventType = "player_answered"
	EventRoundCompleted  EventType = "round_completed"
	EventGameCompleted   EventType = "game_completed"
	EventNextRound       EventType = "next_round"
	EventPong            EventType = "pong"
	EventError           EventType = "error"
)

// Event is one outbound message, marshaled as a flat JSON object with a
// "type" field plus event-specific fields.
type Event map[string]interface{}

// NewEvent starts an event of the given type; callers add fields directly.
func NewEvent(t EventType) Event {
	return Event{"type": string(t)}
}

// EventName returns the event's type field.
func (ev Event) EventName() string {
	s, _ := ev["type"].(string)
	return s
}

// ErrorEvent wraps a game error as a targeted error event carrying both the
// stable code and the human message.
func ErrorEvent(gerr *Error) Event {
	ev := NewEvent(EventError)
	ev["code"] = string(gerr.Code)
	ev["message"] = gerr.Message
	return ev
}
