package game

import (
	"sort"

	"github.com/google/uuid"
	"github.com/herdgame/herd/internal/models"
)

// TallyResult is the outcome of grouping one round's answers by canonical
// text.
type TallyResult struct {
	// MajorityAnswer is the canonical text with the strictly highest count.
	// Empty (and HasMajority false) when the top count is tied between two
	// or more canonical texts.
	MajorityAnswer string
	HasMajority    bool

	// UniquePlayerID is the player whose canonical answer occurs exactly
	// once, set only when exactly one canonical text across the round is a
	// singleton. uuid.Nil otherwise.
	UniquePlayerID uuid.UUID

	// ScoringPlayerIDs are the players whose answers match MajorityAnswer.
	// Empty when there is no majority: a tie awards no points to anyone.
	ScoringPlayerIDs []uuid.UUID

	// Answers exposes each player's original submitted text for display,
	// in submission order. Never the canonical form.
	Answers []models.Answer
}

// Tally computes the majority answer, the uniquely-distinct answerer, and
// the scoring set for one round. An empty answer list yields a zero result:
// a tally cannot exist before any answers do.
func Tally(answers []*models.Answer) TallyResult {
	var res TallyResult
	if len(answers) == 0 {
		return res
	}

	ordered := make([]*models.Answer, len(answers))
	copy(ordered, answers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SubmittedAt.Before(ordered[j].SubmittedAt)
	})

	groups := make(map[string][]*models.Answer)
	for _, a := range ordered {
		groups[a.Canonical] = append(groups[a.Canonical], a)
		res.Answers = append(res.Answers, *a)
	}

	maxCount := 0
	for _, g := range groups {
		if len(g) > maxCount {
			maxCount = len(g)
		}
	}

	topGroups := 0
	var topCanonical string
	singletons := 0
	var singletonPlayer uuid.UUID
	for canonical, g := range groups {
		if len(g) == maxCount {
			topGroups++
			topCanonical = canonical
		}
		if len(g) == 1 {
			singletons++
			singletonPlayer = g[0].PlayerID
		}
	}

	// A majority exists only when exactly one group holds the top count.
	if topGroups == 1 {
		res.HasMajority = true
		res.MajorityAnswer = topCanonical
		for _, a := range groups[topCanonical] {
			res.ScoringPlayerIDs = append(res.ScoringPlayerIDs, a.PlayerID)
		}
	}

	// The token targets the unique answerer only when exactly one canonical
	// text is a singleton; zero or several singletons leave it unset.
	if singletons == 1 {
		res.UniquePlayerID = singletonPlayer
	}
	return res
}
