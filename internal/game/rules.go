package game

import (
	"github.com/google/uuid"
	"github.com/herdgame/herd/internal/models"
)

// WinningScore is the score a player must reach to win while not holding
// the token.
const WinningScore = 8

// NextTokenHolder applies the token-transfer rule: the token moves to the
// round's unique answerer when one exists and it is not already the holder.
// In every other case the holder is unchanged, including when no holder has
// been set yet. The token is never "transferred" to its current holder; a
// caller can detect the no-op by comparing the result with current.
func NextTokenHolder(current, uniqueAnswerer uuid.UUID) uuid.UUID {
	if uniqueAnswerer != uuid.Nil && uniqueAnswerer != current {
		return uniqueAnswerer
	}
	return current
}

// EvaluateWinner determines whether the game has ended. Eligible players
// have score >= WinningScore and do not hold the token: holding the token
// blocks victory outright, even at or above the threshold. The winner is the
// highest-scoring eligible player; score ties keep the first player
// encountered in room join order. Returns nil while nobody is eligible.
func EvaluateWinner(players []*models.Player, tokenHolder uuid.UUID) *models.Player {
	var winner *models.Player
	for _, p := range players {
		if p.Score < WinningScore || p.ID == tokenHolder {
			continue
		}
		if winner == nil || p.Score > winner.Score {
			winner = p
		}
	}
	return winner
}
