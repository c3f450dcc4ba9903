// internal/historian/historian_test.go
package historian

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herdgame/herd/internal/cache"
)

func TestDecodeRecord(t *testing.T) {
	rec := cache.RoomEventRecord{
		RoomID:      uuid.New(),
		RoomCode:    "ABC234",
		RoundNumber: 3,
		EventType:   "round_completed",
		Payload:     map[string]interface{}{"majority": "dog"},
		Timestamp:   time.Now().Unix(),
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	got, err := decodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, rec.RoomID, got.RoomID)
	assert.Equal(t, rec.RoomCode, got.RoomCode)
	assert.Equal(t, "round_completed", got.EventType)
	assert.Equal(t, "dog", got.Payload["majority"])
}

func TestDecodeRecordRejectsGarbage(t *testing.T) {
	_, err := decodeRecord([]byte("not json"))
	assert.Error(t, err)

	// Valid JSON but not a usable record.
	_, err = decodeRecord([]byte(`{"room_code":"ABC234"}`))
	assert.Error(t, err)
}

func TestDrainOnceSurfacesRedisFailure(t *testing.T) {
	// Nothing listens on port 1, so the pop itself fails. That failure must
	// reach the caller for the run loop to log, not be swallowed as an empty
	// queue.
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	h := New(rdb, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, h.drainOnce(ctx))
}

func TestNewDefaults(t *testing.T) {
	h := New(nil, nil)
	assert.Equal(t, cache.DefaultQueueName, h.Queue)
	assert.Equal(t, 100, h.BatchSize)
	assert.Equal(t, 5*time.Second, h.Interval)
}
