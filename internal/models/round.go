package models

import (
	"time"

	"github.com/google/uuid"
)

// Round statuses. A round transitions collecting -> completed exactly once.
const (
	RoundCollecting = "collecting_answers"
	RoundCompleted  = "completed"
)

// Round is one prompt-and-answer cycle within a room. (room, Number) is the
// natural key. Answers is keyed by player ID, which enforces the
// one-answer-per-player-per-round invariant.
type Round struct {
	ID        uuid.UUID             `json:"id"`
	Number    int                   `json:"number"`
	Prompt    string                `json:"prompt"`
	Status    string                `json:"status"`
	Answers   map[uuid.UUID]*Answer `json:"-"`
	Result    *RoundResult          `json:"result,omitempty"`
	StartedAt time.Time             `json:"-"`
}

// Answer stores both the text a player actually typed and its canonical form.
// Only the canonical form participates in equality; only the original text is
// ever shown to players.
type Answer struct {
	ID          uuid.UUID `json:"id"`
	RoundID     uuid.UUID `json:"roundId"`
	PlayerID    uuid.UUID `json:"playerId"`
	Text        string    `json:"text"`
	Canonical   string    `json:"-"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// PlayerAnswer is the display view of one player's submission.
type PlayerAnswer struct {
	PlayerID    uuid.UUID `json:"playerId"`
	DisplayName string    `json:"displayName"`
	Text        string    `json:"text"`
}

// RoundResult is the snapshot recorded when a round completes. It is kept on
// the Round so late joiners and reconnecting clients can be shown the outcome
// instead of a stale collecting view.
type RoundResult struct {
	RoundNumber      int            `json:"roundNumber"`
	MajorityAnswer   string         `json:"majorityAnswer,omitempty"`
	UniquePlayerID   uuid.UUID      `json:"uniquePlayerId,omitempty"`
	ScoringPlayerIDs []uuid.UUID    `json:"scoringPlayerIds"`
	Answers          []PlayerAnswer `json:"answers"`
	TokenHolderID    uuid.UUID      `json:"tokenHolderId,omitempty"`
}
