package game

import (
	"context"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/google/uuid"
	"github.com/herdgame/herd/internal/cache"
	"github.com/herdgame/herd/internal/database"
	"github.com/herdgame/herd/internal/models"
)

// RoomStatus is the room lifecycle state. Transitions are linear:
// waiting -> in_progress -> completed, never backwards.
type RoomStatus string

const (
	StatusWaiting    RoomStatus = "waiting"
	StatusInProgress RoomStatus = "in_progress"
	StatusCompleted  RoomStatus = "completed"
)

const persistTimeout = 5 * time.Second

// Room holds the entire authoritative state for a single room in memory.
// Every mutation happens under Mu; rooms are fully independent of each
// other. The transport layer injects BroadcastFn/BroadcastToPlayerFn, which
// must be non-blocking (events are queued onto per-connection channels).
type Room struct {
	ID            uuid.UUID
	Code          string
	Status        RoomStatus
	HostID        uuid.UUID
	CurrentRound  int
	AnsweredCount int
	TokenHolderID uuid.UUID
	UsedPrompts   []string
	Players       []*models.Player
	Rounds        map[int]*models.Round
	CreatedAt     time.Time

	prompts *PromptSelector

	Mu sync.Mutex

	// BroadcastFn sends an event to every connection joined to this room.
	BroadcastFn func(ev Event)
	// BroadcastToPlayerFn sends an event to a single player's connection.
	BroadcastToPlayerFn func(playerID uuid.UUID, ev Event)
}

// NewRoom builds an empty room in the waiting state.
func NewRoom(code string, prompts *PromptSelector) *Room {
	id, _ := uuid.NewRandom()
	if prompts == nil {
		prompts = NewPromptSelector(nil)
	}
	return &Room{
		ID:        id,
		Code:      code,
		Status:    StatusWaiting,
		Rounds:    make(map[int]*models.Round),
		CreatedAt: time.Now(),
		prompts:   prompts,
	}
}

// CreateHost creates the room's host player. Called exactly once, right
// after the room is allocated.
func (r *Room) CreateHost(displayName string, connID uuid.UUID) (*models.Player, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, NewError(ErrInvalidState, "display name is required")
	}
	if len(r.Players) > 0 {
		return nil, NewError(ErrInvalidState, "room %s already has a host", r.Code)
	}

	pid, _ := uuid.NewRandom()
	host := &models.Player{
		ID:          pid,
		DisplayName: displayName,
		IsHost:      true,
		Connected:   true,
		ConnID:      connID,
		JoinedAt:    time.Now(),
	}
	r.Players = append(r.Players, host)
	r.HostID = host.ID

	r.persistRoomUnsafe()
	r.persistPlayerUnsafe(host)
	return host, nil
}

// Join adds a new player to a waiting room, or re-attaches a returning
// player matched by display name. New players cannot join once the game is
// in progress; returning players can, at any point before the room
// completes. The returned event is the targeted game_joined payload; the
// caller broadcasts the roster separately once the connection is bound.
func (r *Room) Join(displayName string, connID uuid.UUID) (*models.Player, Event, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, nil, NewError(ErrInvalidState, "display name is required")
	}

	player := r.playerByNameUnsafe(displayName)
	if player != nil {
		// Returning player. The disconnected-state guard keeps two
		// connections from claiming the same player identity.
		if player.Connected {
			return nil, nil, NewError(ErrInvalidState, "player %q is already connected", displayName)
		}
		player.Connected = true
		player.ConnID = connID
	} else {
		if r.Status != StatusWaiting {
			return nil, nil, NewError(ErrGameInProgress, "room %s has already started; new players cannot join", r.Code)
		}
		pid, _ := uuid.NewRandom()
		player = &models.Player{
			ID:          pid,
			DisplayName: displayName,
			Connected:   true,
			ConnID:      connID,
			JoinedAt:    time.Now(),
		}
		r.Players = append(r.Players, player)
	}

	r.persistPlayerUnsafe(player)
	return player, r.stateEventUnsafe(EventGameJoined, player), nil
}

// Start transitions the room to in_progress and opens round 1. Host only.
func (r *Room) Start(requesterID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if requesterID != r.HostID {
		return NewError(ErrUnauthorized, "only the host can start the game")
	}
	if r.Status != StatusWaiting {
		return NewError(ErrInvalidState, "room %s is %s, not waiting", r.Code, r.Status)
	}

	r.Status = StatusInProgress
	round := r.openRoundUnsafe(1)

	ev := NewEvent(EventGameStarted)
	ev["room"] = r.snapshotUnsafe()
	ev["players"] = r.playersViewUnsafe()
	ev["round"] = map[string]interface{}{
		"number": round.Number,
		"prompt": round.Prompt,
	}
	r.fireEventUnsafe(ev)

	r.persistRoomUnsafe()
	r.persistRoundUnsafe(round)
	r.publishRoomEventUnsafe("game_started", map[string]interface{}{"round": round.Number})
	return nil
}

// SubmitAnswer records one player's answer for the current round and closes
// the round when the post-increment answered count reaches the number of
// currently-connected players. The append, the counter increment, and the
// connected-count read all happen inside this one critical section, so the
// closing test can never observe a stale snapshot and the close fires for at
// most one of any concurrently racing submissions.
func (r *Room) SubmitAnswer(playerID uuid.UUID, text string) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Status != StatusInProgress {
		return NewError(ErrInvalidState, "room %s is not in progress", r.Code)
	}
	player := r.playerByIDUnsafe(playerID)
	if player == nil || !player.Connected {
		return NewError(ErrUnknownPlayer, "no connected player for this submission")
	}
	round := r.Rounds[r.CurrentRound]
	if round == nil || round.Status != models.RoundCollecting {
		return NewError(ErrInvalidState, "round %d is not collecting answers", r.CurrentRound)
	}
	if _, dup := round.Answers[playerID]; dup {
		return NewError(ErrDuplicateSubmission, "player %q already answered round %d", player.DisplayName, round.Number)
	}

	aid, _ := uuid.NewRandom()
	answer := &models.Answer{
		ID:          aid,
		RoundID:     round.ID,
		PlayerID:    playerID,
		Text:        text,
		Canonical:   Normalize(text),
		SubmittedAt: time.Now(),
	}
	round.Answers[playerID] = answer
	r.AnsweredCount++
	connected := r.countConnectedUnsafe()

	ev := NewEvent(EventPlayerAnswered)
	ev["answeredCount"] = r.AnsweredCount
	ev["connectedCount"] = connected
	r.fireEventUnsafe(ev)

	r.persistAnswerUnsafe(answer)

	if r.AnsweredCount >= connected {
		r.closeRoundUnsafe(round)
	}
	return nil
}

// NextRound opens the next round with a fresh prompt. Host only, and only
// once the current round has completed.
func (r *Room) NextRound(requesterID uuid.UUID) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if requesterID != r.HostID {
		return NewError(ErrUnauthorized, "only the host can advance the round")
	}
	if r.Status != StatusInProgress {
		return NewError(ErrInvalidState, "room %s is not in progress", r.Code)
	}
	if cur := r.Rounds[r.CurrentRound]; cur != nil && cur.Status != models.RoundCompleted {
		return NewError(ErrInvalidState, "round %d is still collecting answers", r.CurrentRound)
	}

	round := r.openRoundUnsafe(r.CurrentRound + 1)

	ev := NewEvent(EventNextRound)
	ev["roundNumber"] = round.Number
	ev["prompt"] = round.Prompt
	r.fireEventUnsafe(ev)

	r.persistRoomUnsafe()
	r.persistRoundUnsafe(round)
	return nil
}

// RemovePlayer is the host kicking a player. The target is soft-removed:
// marked disconnected with score and answer history intact, so token
// eligibility and standings stay consistent if they return. Returns the
// removed player's connection ID so the transport can drop it.
func (r *Room) RemovePlayer(requesterID, targetID uuid.UUID) (uuid.UUID, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if requesterID != r.HostID {
		return uuid.Nil, NewError(ErrUnauthorized, "only the host can remove players")
	}
	target := r.playerByIDUnsafe(targetID)
	if target == nil {
		return uuid.Nil, NewError(ErrNotFound, "player not found in room %s", r.Code)
	}
	oldConn := target.ConnID
	target.Connected = false
	target.ConnID = uuid.Nil

	// Tell the removed player why their connection is about to drop.
	note := NewEvent(EventPlayerRemoved)
	note["roomCode"] = r.Code
	r.FireEventToPlayer(target.ID, note)

	r.broadcastPlayersUnsafe()
	r.persistPlayerUnsafe(target)
	r.maybeCloseAfterDepartureUnsafe()
	return oldConn, nil
}

// Reconnect re-attaches a returning player matched by display name. The
// player must currently be disconnected; this guard makes reconnection
// race-free against a concurrent disconnect of the same player.
func (r *Room) Reconnect(displayName string, connID uuid.UUID) (*models.Player, Event, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	player := r.playerByNameUnsafe(strings.TrimSpace(displayName))
	if player == nil {
		return nil, nil, NewError(ErrNotFound, "no player named %q in room %s", displayName, r.Code)
	}
	if player.Connected {
		return nil, nil, NewError(ErrInvalidState, "player %q is already connected", displayName)
	}
	player.Connected = true
	player.ConnID = connID

	r.persistPlayerUnsafe(player)
	return player, r.stateEventUnsafe(EventGameRejoined, player), nil
}

// Disconnect marks a player as gone after their connection drops. The
// player record stays: scores and the token survive a disconnect.
func (r *Room) Disconnect(playerID uuid.UUID) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	player := r.playerByIDUnsafe(playerID)
	if player == nil || !player.Connected {
		return
	}
	player.Connected = false
	player.ConnID = uuid.Nil
	log.Infof("room %s: player %s disconnected", r.Code, player.DisplayName)

	r.broadcastPlayersUnsafe()
	r.persistPlayerUnsafe(player)
	r.maybeCloseAfterDepartureUnsafe()
}

// BroadcastPlayers pushes the current roster to the room. Called by the
// transport after a join/reconnect binding is established.
func (r *Room) BroadcastPlayers() {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.broadcastPlayersUnsafe()
}

// openRoundUnsafe creates round n in the collecting state with a prompt not
// yet used by this room. Assumes lock is held.
func (r *Room) openRoundUnsafe(n int) *models.Round {
	prompt := r.prompts.Next(r.UsedPrompts)
	r.UsedPrompts = append(r.UsedPrompts, prompt)

	rid, _ := uuid.NewRandom()
	round := &models.Round{
		ID:        rid,
		Number:    n,
		Prompt:    prompt,
		Status:    models.RoundCollecting,
		Answers:   make(map[uuid.UUID]*models.Answer),
		StartedAt: time.Now(),
	}
	r.Rounds[n] = round
	r.CurrentRound = n
	r.AnsweredCount = 0
	return round
}

// closeRoundUnsafe runs the resolution pipeline: tally, scoring, token
// transfer, win evaluation, broadcasts. The status check on entry makes the
// close idempotent; re-entrant triggers for an already-completed round are
// no-ops. Assumes lock is held.
func (r *Room) closeRoundUnsafe(round *models.Round) {
	if round.Status == models.RoundCompleted {
		return
	}
	round.Status = models.RoundCompleted

	answers := make([]*models.Answer, 0, len(round.Answers))
	for _, a := range round.Answers {
		answers = append(answers, a)
	}
	tally := Tally(answers)

	for _, pid := range tally.ScoringPlayerIDs {
		if p := r.playerByIDUnsafe(pid); p != nil {
			p.Score++
		}
	}
	r.TokenHolderID = NextTokenHolder(r.TokenHolderID, tally.UniquePlayerID)
	r.AnsweredCount = 0

	result := &models.RoundResult{
		RoundNumber:      round.Number,
		MajorityAnswer:   tally.MajorityAnswer,
		UniquePlayerID:   tally.UniquePlayerID,
		ScoringPlayerIDs: tally.ScoringPlayerIDs,
		TokenHolderID:    r.TokenHolderID,
	}
	for _, a := range tally.Answers {
		view := models.PlayerAnswer{PlayerID: a.PlayerID, Text: a.Text}
		if p := r.playerByIDUnsafe(a.PlayerID); p != nil {
			view.DisplayName = p.DisplayName
		}
		result.Answers = append(result.Answers, view)
	}
	round.Result = result

	ev := NewEvent(EventRoundCompleted)
	ev["results"] = result
	ev["tokenHolder"] = nullableID(r.TokenHolderID)
	ev["players"] = r.playersViewUnsafe()
	r.fireEventUnsafe(ev)

	r.persistRoundUnsafe(round)
	for _, p := range r.Players {
		r.persistPlayerUnsafe(p)
	}
	r.persistRoomUnsafe()
	r.publishRoomEventUnsafe("round_completed", map[string]interface{}{
		"round":    round.Number,
		"majority": tally.MajorityAnswer,
	})

	if winner := EvaluateWinner(r.Players, r.TokenHolderID); winner != nil {
		r.completeUnsafe(winner)
	}
}

// completeUnsafe ends the game. Assumes lock is held.
func (r *Room) completeUnsafe(winner *models.Player) {
	r.Status = StatusCompleted

	ev := NewEvent(EventGameCompleted)
	ev["winner"] = *winner
	ev["players"] = r.playersViewUnsafe()
	r.fireEventUnsafe(ev)

	scores := make(map[uuid.UUID]int, len(r.Players))
	for _, p := range r.Players {
		scores[p.ID] = p.Score
	}
	roomID, winnerID := r.ID, winner.ID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := database.RecordGameResult(ctx, roomID, winnerID, scores); err != nil {
			log.Warnf("room %s: failed to record final results: %v", roomID, err)
		}
	}()
	r.persistRoomUnsafe()
	r.publishRoomEventUnsafe("game_completed", map[string]interface{}{"winner": winnerID.String()})
	log.Infof("room %s: game completed, winner %s", r.Code, winner.DisplayName)
}

// maybeCloseAfterDepartureUnsafe re-checks the closing condition after a
// disconnect or kick: if everyone still connected has already answered, the
// round must not sit open waiting for a player who is gone. The completed
// status guard in closeRoundUnsafe keeps this exactly-once. Assumes lock is
// held.
func (r *Room) maybeCloseAfterDepartureUnsafe() {
	if r.Status != StatusInProgress {
		return
	}
	round := r.Rounds[r.CurrentRound]
	if round == nil || round.Status != models.RoundCollecting {
		return
	}
	connected := r.countConnectedUnsafe()
	if connected > 0 && r.AnsweredCount >= connected {
		r.closeRoundUnsafe(round)
	}
}

// countConnectedUnsafe counts players currently attached to a live
// connection. Assumes lock is held.
func (r *Room) countConnectedUnsafe() int {
	n := 0
	for _, p := range r.Players {
		if p.Connected {
			n++
		}
	}
	return n
}

func (r *Room) playerByIDUnsafe(id uuid.UUID) *models.Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) playerByNameUnsafe(displayName string) *models.Player {
	for _, p := range r.Players {
		if strings.EqualFold(p.DisplayName, displayName) {
			return p
		}
	}
	return nil
}

// playersViewUnsafe copies the roster by value so broadcast payloads can be
// marshaled outside the room lock without racing later mutations. Assumes
// lock is held.
func (r *Room) playersViewUnsafe() []models.Player {
	view := make([]models.Player, 0, len(r.Players))
	for _, p := range r.Players {
		view = append(view, *p)
	}
	return view
}

// snapshotUnsafe is the room-level summary embedded in state payloads.
// Assumes lock is held.
func (r *Room) snapshotUnsafe() map[string]interface{} {
	return map[string]interface{}{
		"roomId":        r.ID.String(),
		"roomCode":      r.Code,
		"status":        string(r.Status),
		"roundNumber":   r.CurrentRound,
		"tokenHolder":   nullableID(r.TokenHolderID),
		"answeredCount": r.AnsweredCount,
	}
}

// stateEventUnsafe builds the full mid-game state payload sent to a joining
// or rejoining player. If the current round has already completed, its
// result snapshot rides along so the client is never shown a stale
// collecting view. Assumes lock is held.
func (r *Room) stateEventUnsafe(t EventType, player *models.Player) Event {
	ev := NewEvent(t)
	ev["roomId"] = r.ID.String()
	ev["roomCode"] = r.Code
	ev["playerId"] = player.ID.String()
	ev["status"] = string(r.Status)
	ev["roundNumber"] = r.CurrentRound
	ev["tokenHolder"] = nullableID(r.TokenHolderID)
	ev["answeredCount"] = r.AnsweredCount
	ev["players"] = r.playersViewUnsafe()
	if round := r.Rounds[r.CurrentRound]; round != nil {
		ev["prompt"] = round.Prompt
		if round.Status == models.RoundCompleted && round.Result != nil {
			resultCopy := *round.Result
			ev["roundResults"] = &resultCopy
		}
	}
	return ev
}

// broadcastPlayersUnsafe pushes a players_updated event. Assumes lock is
// held.
func (r *Room) broadcastPlayersUnsafe() {
	ev := NewEvent(EventPlayersUpdated)
	ev["players"] = r.playersViewUnsafe()
	r.fireEventUnsafe(ev)
}

// fireEventUnsafe hands an event to the injected broadcast function, which
// must queue rather than block. Assumes lock is held.
func (r *Room) fireEventUnsafe(ev Event) {
	if r.BroadcastFn == nil {
		log.Debugf("room %s: no broadcast function, dropping %s", r.Code, ev.EventName())
		return
	}
	r.BroadcastFn(ev)
}

// FireEventToPlayer sends a targeted event via the injected per-player
// broadcast function.
func (r *Room) FireEventToPlayer(playerID uuid.UUID, ev Event) {
	if r.BroadcastToPlayerFn == nil {
		log.Debugf("room %s: no per-player broadcast function, dropping %s", r.Code, ev.EventName())
		return
	}
	r.BroadcastToPlayerFn(playerID, ev)
}

// nullableID renders uuid.Nil as JSON null instead of the zero UUID.
func nullableID(id uuid.UUID) interface{} {
	if id == uuid.Nil {
		return nil
	}
	return id.String()
}

// --- write-behind persistence -------------------------------------------
//
// Memory is authoritative; rows are pushed to Postgres asynchronously so a
// failed write never stalls or corrupts room state. The database package
// no-ops when no pool is configured.

func (r *Room) persistRoomUnsafe() {
	row := database.RoomRow{
		ID:            r.ID,
		Code:          r.Code,
		Status:        string(r.Status),
		HostID:        r.HostID,
		CurrentRound:  r.CurrentRound,
		AnsweredCount: r.AnsweredCount,
		TokenHolderID: r.TokenHolderID,
		CreatedAt:     r.CreatedAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := database.SaveRoom(ctx, row); err != nil {
			log.Warnf("room %s: failed to persist room row: %v", row.Code, err)
		}
	}()
}

func (r *Room) persistPlayerUnsafe(p *models.Player) {
	row := database.PlayerRow{
		ID:          p.ID,
		RoomID:      r.ID,
		DisplayName: p.DisplayName,
		IsHost:      p.IsHost,
		Score:       p.Score,
		Connected:   p.Connected,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := database.SavePlayer(ctx, row); err != nil {
			log.Warnf("room %s: failed to persist player %s: %v", row.RoomID, row.DisplayName, err)
		}
	}()
}

func (r *Room) persistRoundUnsafe(round *models.Round) {
	row := database.RoundRow{
		ID:     round.ID,
		RoomID: r.ID,
		Number: round.Number,
		Prompt: round.Prompt,
		Status: round.Status,
	}
	if round.Result != nil {
		row.MajorityAnswer = round.Result.MajorityAnswer
		row.UniquePlayerID = round.Result.UniquePlayerID
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := database.SaveRound(ctx, row); err != nil {
			log.Warnf("room %s: failed to persist round %d: %v", row.RoomID, row.Number, err)
		}
	}()
}

func (r *Room) persistAnswerUnsafe(a *models.Answer) {
	row := database.AnswerRow{
		ID:          a.ID,
		RoundID:     a.RoundID,
		PlayerID:    a.PlayerID,
		Text:        a.Text,
		Canonical:   a.Canonical,
		SubmittedAt: a.SubmittedAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := database.SaveAnswer(ctx, row); err != nil {
			log.Warnf("round %s: failed to persist answer from %s: %v", row.RoundID, row.PlayerID, err)
		}
	}()
}

// publishRoomEventUnsafe pushes a lifecycle record onto the Redis event log
// for out-of-process consumers. Best effort. Assumes lock is held.
func (r *Room) publishRoomEventUnsafe(eventType string, payload map[string]interface{}) {
	rec := cache.RoomEventRecord{
		RoomID:      r.ID,
		RoomCode:    r.Code,
		RoundNumber: r.CurrentRound,
		EventType:   eventType,
		Payload:     payload,
		Timestamp:   time.Now().Unix(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := cache.PublishRoomEvent(ctx, rec); err != nil {
			log.Warnf("room %s: failed to publish %s event: %v", rec.RoomCode, rec.EventType, err)
		}
	}()
}
