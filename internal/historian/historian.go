// internal/historian/historian.go
package historian

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/herdgame/herd/internal/cache"
)

// Historian drains the Redis room-event queue into Postgres so the event
// history survives Redis restarts and can be queried after the fact. It runs
// alongside the server as a background loop. A batch that fails to insert is
// pushed back onto the queue and retried on a later tick, so records are not
// lost to a transient Postgres outage.
type Historian struct {
	Rdb       *redis.Client
	DB        *pgxpool.Pool
	Queue     string
	BatchSize int
	Interval  time.Duration
}

// New builds a historian with sane defaults for unset fields.
func New(rdb *redis.Client, db *pgxpool.Pool) *Historian {
	return &Historian{
		Rdb:       rdb,
		DB:        db,
		Queue:     cache.DefaultQueueName,
		BatchSize: 100,
		Interval:  5 * time.Second,
	}
}

// Run processes the queue until ctx is cancelled. Requires both Redis and
// Postgres; returns immediately when either is missing.
func (h *Historian) Run(ctx context.Context) {
	if h.Rdb == nil || h.DB == nil {
		log.Info("historian: redis or postgres not configured, not starting")
		return
	}

	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()
	log.Infof("historian: archiving queue %q every %s", h.Queue, h.Interval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.drainOnce(ctx); err != nil {
				log.Warnf("historian: drain failed: %v", err)
			}
		}
	}
}

// drainOnce pops up to BatchSize records and archives them in one
// transaction.
func (h *Historian) drainOnce(ctx context.Context) error {
	raw, err := h.Rdb.LPopCount(ctx, h.Queue, h.BatchSize).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("lpop %s: %w", h.Queue, err)
	}
	if len(raw) == 0 {
		return nil
	}

	records := make([]cache.RoomEventRecord, 0, len(raw))
	for _, item := range raw {
		rec, err := decodeRecord([]byte(item))
		if err != nil {
			log.Warnf("historian: skipping malformed record: %v", err)
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil
	}

	if err := h.archiveBatch(ctx, records); err != nil {
		h.requeue(ctx, raw)
		return err
	}
	return nil
}

// requeue puts popped entries back after a failed insert so the next tick
// retries them.
func (h *Historian) requeue(ctx context.Context, raw []string) {
	items := make([]interface{}, len(raw))
	for i, item := range raw {
		items[i] = item
	}
	if err := h.Rdb.RPush(ctx, h.Queue, items...).Err(); err != nil {
		log.Warnf("historian: failed to requeue %d record(s), they are lost: %v", len(raw), err)
	}
}

// decodeRecord parses one queue entry.
func decodeRecord(data []byte) (cache.RoomEventRecord, error) {
	var rec cache.RoomEventRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("unmarshal room event: %w", err)
	}
	if rec.EventType == "" {
		return rec, fmt.Errorf("room event missing event_type")
	}
	return rec, nil
}

// archiveBatch inserts the records into room_events in one transaction.
func (h *Historian) archiveBatch(ctx context.Context, records []cache.RoomEventRecord) error {
	err := pgx.BeginTxFunc(ctx, h.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO room_events (room_id, room_code, round_number, event_type, payload, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		for _, rec := range records {
			payload, err := json.Marshal(rec.Payload)
			if err != nil {
				return fmt.Errorf("marshal payload: %w", err)
			}
			ts := time.Unix(rec.Timestamp, 0)
			if _, err := tx.Exec(ctx, q, rec.RoomID, rec.RoomCode, rec.RoundNumber, rec.EventType, payload, ts); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx archive %d room events: %w", len(records), err)
	}
	log.Debugf("historian: archived %d room event(s)", len(records))
	return nil
}
