package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/herdgame/herd/internal/models"
)

func TestNextTokenHolder(t *testing.T) {
	alice, _ := uuid.NewRandom()
	bob, _ := uuid.NewRandom()

	// No unique answerer: holder unchanged.
	assert.Equal(t, alice, NextTokenHolder(alice, uuid.Nil))
	assert.Equal(t, uuid.Nil, NextTokenHolder(uuid.Nil, uuid.Nil))

	// Unique answerer takes the token.
	assert.Equal(t, bob, NextTokenHolder(alice, bob))
	assert.Equal(t, bob, NextTokenHolder(uuid.Nil, bob))

	// Holder answering uniquely keeps it; no transfer to self.
	assert.Equal(t, alice, NextTokenHolder(alice, alice))
}

func TestEvaluateWinnerTokenBlocksVictory(t *testing.T) {
	alice := &models.Player{DisplayName: "alice", Score: WinningScore}
	bob := &models.Player{DisplayName: "bob", Score: 3}
	alice.ID, _ = uuid.NewRandom()
	bob.ID, _ = uuid.NewRandom()
	players := []*models.Player{alice, bob}

	// Alice hits the threshold but holds the token.
	assert.Nil(t, EvaluateWinner(players, alice.ID))

	// Token elsewhere: alice wins.
	winner := EvaluateWinner(players, bob.ID)
	assert.Equal(t, alice, winner)
}

func TestEvaluateWinnerPrefersHigherScore(t *testing.T) {
	alice := &models.Player{DisplayName: "alice", Score: WinningScore}
	bob := &models.Player{DisplayName: "bob", Score: WinningScore + 1}
	alice.ID, _ = uuid.NewRandom()
	bob.ID, _ = uuid.NewRandom()

	winner := EvaluateWinner([]*models.Player{alice, bob}, uuid.Nil)
	assert.Equal(t, bob, winner)
}

func TestEvaluateWinnerHolderOutscoredByEligible(t *testing.T) {
	alice := &models.Player{DisplayName: "alice", Score: WinningScore + 2}
	bob := &models.Player{DisplayName: "bob", Score: WinningScore}
	alice.ID, _ = uuid.NewRandom()
	bob.ID, _ = uuid.NewRandom()

	// Alice has the highest score but also the token; bob wins.
	winner := EvaluateWinner([]*models.Player{alice, bob}, alice.ID)
	assert.Equal(t, bob, winner)
}

func TestEvaluateWinnerTieKeepsJoinOrder(t *testing.T) {
	alice := &models.Player{DisplayName: "alice", Score: WinningScore}
	bob := &models.Player{DisplayName: "bob", Score: WinningScore}
	alice.ID, _ = uuid.NewRandom()
	bob.ID, _ = uuid.NewRandom()

	winner := EvaluateWinner([]*models.Player{alice, bob}, uuid.Nil)
	assert.Equal(t, alice, winner)
}

func TestEvaluateWinnerNobodyEligible(t *testing.T) {
	alice := &models.Player{DisplayName: "alice", Score: WinningScore - 1}
	alice.ID, _ = uuid.NewRandom()
	assert.Nil(t, EvaluateWinner([]*models.Player{alice}, uuid.Nil))
	assert.Nil(t, EvaluateWinner(nil, uuid.Nil))
}
