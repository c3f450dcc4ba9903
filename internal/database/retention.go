// internal/database/retention.go
package database

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultRetention is how long an inactive room is kept before the sweep
// deletes it along with its rounds, players, and answers.
const DefaultRetention = 7 * 24 * time.Hour

// DeleteRoomsOlderThan removes rooms created before now-maxAge. Child rows
// (players, rounds, answers, game_results) cascade via foreign keys.
func DeleteRoomsOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	if DB == nil {
		return 0, nil
	}
	tag, err := DB.Exec(ctx, `DELETE FROM rooms WHERE created_at < $1`, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// StartRetentionSweep runs the cleanup loop until ctx is cancelled. Each
// tick it deletes expired rooms from Postgres and calls purgeMemory with the
// same cutoff so the in-memory store stays in step. purgeMemory may be nil.
func StartRetentionSweep(ctx context.Context, interval, maxAge time.Duration, purgeMemory func(cutoff time.Time) int) {
	if interval <= 0 {
		interval = time.Hour
	}
	if maxAge <= 0 {
		maxAge = DefaultRetention
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			deleted, err := DeleteRoomsOlderThan(sweepCtx, maxAge)
			cancel()
			if err != nil {
				log.Warnf("retention sweep: delete failed: %v", err)
			} else if deleted > 0 {
				log.Infof("retention sweep: deleted %d expired room(s) from store", deleted)
			}
			if purgeMemory != nil {
				if n := purgeMemory(time.Now().Add(-maxAge)); n > 0 {
					log.Infof("retention sweep: dropped %d expired room(s) from memory", n)
				}
			}
		}
	}
}
