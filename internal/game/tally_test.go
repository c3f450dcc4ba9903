package game

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herdgame/herd/internal/models"
)

func answerAt(playerID uuid.UUID, text string, offset time.Duration) *models.Answer {
	id, _ := uuid.NewRandom()
	return &models.Answer{
		ID:          id,
		PlayerID:    playerID,
		Text:        text,
		Canonical:   Normalize(text),
		SubmittedAt: time.Unix(0, 0).Add(offset),
	}
}

func TestTallyMajorityAndUnique(t *testing.T) {
	p1, _ := uuid.NewRandom()
	p2, _ := uuid.NewRandom()
	p3, _ := uuid.NewRandom()

	res := Tally([]*models.Answer{
		answerAt(p1, "Dog", 1*time.Millisecond),
		answerAt(p2, "the dogs!", 2*time.Millisecond),
		answerAt(p3, "cat", 3*time.Millisecond),
	})

	assert.True(t, res.HasMajority)
	assert.Equal(t, "dog", res.MajorityAnswer)
	assert.ElementsMatch(t, []uuid.UUID{p1, p2}, res.ScoringPlayerIDs)
	assert.Equal(t, p3, res.UniquePlayerID)

	// Display view keeps the original text in submission order.
	require.Len(t, res.Answers, 3)
	assert.Equal(t, "Dog", res.Answers[0].Text)
	assert.Equal(t, "the dogs!", res.Answers[1].Text)
	assert.Equal(t, "cat", res.Answers[2].Text)
}

func TestTallyTieAwardsNothing(t *testing.T) {
	p1, _ := uuid.NewRandom()
	p2, _ := uuid.NewRandom()
	p3, _ := uuid.NewRandom()
	p4, _ := uuid.NewRandom()

	res := Tally([]*models.Answer{
		answerAt(p1, "dog", 1*time.Millisecond),
		answerAt(p2, "dog", 2*time.Millisecond),
		answerAt(p3, "cat", 3*time.Millisecond),
		answerAt(p4, "cat", 4*time.Millisecond),
	})

	assert.False(t, res.HasMajority)
	assert.Empty(t, res.MajorityAnswer)
	assert.Empty(t, res.ScoringPlayerIDs)
	// No singleton groups either, so no unique answerer.
	assert.Equal(t, uuid.Nil, res.UniquePlayerID)
}

func TestTallyEveryoneAgrees(t *testing.T) {
	p1, _ := uuid.NewRandom()
	p2, _ := uuid.NewRandom()
	p3, _ := uuid.NewRandom()

	res := Tally([]*models.Answer{
		answerAt(p1, "pizza", 1*time.Millisecond),
		answerAt(p2, "Pizza", 2*time.Millisecond),
		answerAt(p3, "PIZZA!", 3*time.Millisecond),
	})

	assert.True(t, res.HasMajority)
	assert.Equal(t, "pizza", res.MajorityAnswer)
	assert.Len(t, res.ScoringPlayerIDs, 3)
	assert.Equal(t, uuid.Nil, res.UniquePlayerID)
}

func TestTallyMultipleSingletonsNoUnique(t *testing.T) {
	p1, _ := uuid.NewRandom()
	p2, _ := uuid.NewRandom()
	p3, _ := uuid.NewRandom()
	p4, _ := uuid.NewRandom()

	res := Tally([]*models.Answer{
		answerAt(p1, "dog", 1*time.Millisecond),
		answerAt(p2, "dog", 2*time.Millisecond),
		answerAt(p3, "cat", 3*time.Millisecond),
		answerAt(p4, "fish", 4*time.Millisecond),
	})

	assert.True(t, res.HasMajority)
	assert.Equal(t, "dog", res.MajorityAnswer)
	// Two singleton answers means nobody is uniquely distinct.
	assert.Equal(t, uuid.Nil, res.UniquePlayerID)
}

func TestTallyEmpty(t *testing.T) {
	res := Tally(nil)
	assert.False(t, res.HasMajority)
	assert.Empty(t, res.ScoringPlayerIDs)
	assert.Equal(t, uuid.Nil, res.UniquePlayerID)
	assert.Empty(t, res.Answers)
}

func TestTallySinglePlayer(t *testing.T) {
	p1, _ := uuid.NewRandom()
	res := Tally([]*models.Answer{answerAt(p1, "dog", time.Millisecond)})

	assert.True(t, res.HasMajority)
	assert.Equal(t, []uuid.UUID{p1}, res.ScoringPlayerIDs)
	assert.Equal(t, p1, res.UniquePlayerID)
}
