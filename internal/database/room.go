// internal/database/room.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Row structs mirror the table shapes. The in-memory room state machine is
// authoritative; these rows are a write-behind copy keyed by the compound
// unique keys (room code; room+round number; room+display name;
// round+player) so external tooling and the retention sweep can operate on
// durable state.

type RoomRow struct {
	ID            uuid.UUID
	Code          string
	Status        string
	HostID        uuid.UUID
	CurrentRound  int
	AnsweredCount int
	TokenHolderID uuid.UUID
	CreatedAt     time.Time
}

type PlayerRow struct {
	ID          uuid.UUID
	RoomID      uuid.UUID
	DisplayName string
	IsHost      bool
	Score       int
	Connected   bool
}

type RoundRow struct {
	ID             uuid.UUID
	RoomID         uuid.UUID
	Number         int
	Prompt         string
	Status         string
	MajorityAnswer string
	UniquePlayerID uuid.UUID
}

type AnswerRow struct {
	ID          uuid.UUID
	RoundID     uuid.UUID
	PlayerID    uuid.UUID
	Text        string
	Canonical   string
	SubmittedAt time.Time
}

// nullableUUID maps uuid.Nil to SQL NULL.
func nullableUUID(id uuid.UUID) interface{} {
	if id == uuid.Nil {
		return nil
	}
	return id
}

// SaveRoom upserts a room row by primary key.
func SaveRoom(ctx context.Context, row RoomRow) error {
	if DB == nil {
		return nil
	}
	q := `
		INSERT INTO rooms (id, code, status, host_id, current_round, answered_count, token_holder_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = $3, host_id = $4, current_round = $5,
			answered_count = $6, token_holder_id = $7
	`
	_, err := DB.Exec(ctx, q,
		row.ID, row.Code, row.Status, nullableUUID(row.HostID),
		row.CurrentRound, row.AnsweredCount, nullableUUID(row.TokenHolderID), row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert room %s: %w", row.Code, err)
	}
	return nil
}

// SavePlayer upserts a player row. The (room_id, display_name) unique key is
// the player's logical identity; a reconnect under a new connection updates
// the same row.
func SavePlayer(ctx context.Context, row PlayerRow) error {
	if DB == nil {
		return nil
	}
	q := `
		INSERT INTO players (id, room_id, display_name, is_host, score, connected)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (room_id, display_name) DO UPDATE SET
			is_host = $4, score = $5, connected = $6
	`
	_, err := DB.Exec(ctx, q, row.ID, row.RoomID, row.DisplayName, row.IsHost, row.Score, row.Connected)
	if err != nil {
		return fmt.Errorf("upsert player %q in room %s: %w", row.DisplayName, row.RoomID, err)
	}
	return nil
}

// SaveRound upserts a round row by the (room_id, number) natural key.
func SaveRound(ctx context.Context, row RoundRow) error {
	if DB == nil {
		return nil
	}
	q := `
		INSERT INTO rounds (id, room_id, number, prompt, status, majority_answer, unique_player_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
		ON CONFLICT (room_id, number) DO UPDATE SET
			status = $5, majority_answer = NULLIF($6, ''), unique_player_id = $7
	`
	_, err := DB.Exec(ctx, q,
		row.ID, row.RoomID, row.Number, row.Prompt, row.Status,
		row.MajorityAnswer, nullableUUID(row.UniquePlayerID),
	)
	if err != nil {
		return fmt.Errorf("upsert round %d of room %s: %w", row.Number, row.RoomID, err)
	}
	return nil
}

// SaveAnswer inserts an answer row. The (round_id, player_id) unique key
// makes a duplicate submission a silent no-op rather than a double count.
func SaveAnswer(ctx context.Context, row AnswerRow) error {
	if DB == nil {
		return nil
	}
	q := `
		INSERT INTO answers (id, round_id, player_id, text, canonical, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (round_id, player_id) DO NOTHING
	`
	_, err := DB.Exec(ctx, q, row.ID, row.RoundID, row.PlayerID, row.Text, row.Canonical, row.SubmittedAt)
	if err != nil {
		return fmt.Errorf("insert answer for round %s: %w", row.RoundID, err)
	}
	return nil
}

// RecordGameResult persists the final outcome of a completed room in one
// transaction: the room flips to completed and each player's final score and
// win flag are upserted.
func RecordGameResult(ctx context.Context, roomID, winnerID uuid.UUID, finalScores map[uuid.UUID]int) error {
	if DB == nil {
		return nil
	}
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upd := `UPDATE rooms SET status = 'completed' WHERE id = $1`
		if _, e := tx.Exec(ctx, upd, roomID); e != nil {
			return e
		}
		q := `
			INSERT INTO game_results (room_id, player_id, score, did_win)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (room_id, player_id)
			DO UPDATE SET score = $3, did_win = $4
		`
		for playerID, score := range finalScores {
			if _, e := tx.Exec(ctx, q, roomID, playerID, score, playerID == winnerID); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx record game result for room %s: %w", roomID, err)
	}
	return nil
}
