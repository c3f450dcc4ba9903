package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomStoreCreateAndLookup(t *testing.T) {
	store := NewRoomStore()
	prompts := NewPromptSelector(testCatalog)

	room, err := store.CreateRoom(prompts)
	require.NoError(t, err)
	assert.Len(t, room.Code, CodeLength)
	assert.Equal(t, StatusWaiting, room.Status)

	got, ok := store.GetRoom(room.ID)
	require.True(t, ok)
	assert.Same(t, room, got)

	// Code lookup is case-insensitive and tolerates stray whitespace.
	got, ok = store.GetRoomByCode("  " + room.Code + "  ")
	require.True(t, ok)
	assert.Same(t, room, got)

	_, ok = store.GetRoomByCode("NOSUCH")
	assert.False(t, ok)
}

func TestRoomStoreCodesAreUnique(t *testing.T) {
	store := NewRoomStore()
	prompts := NewPromptSelector(testCatalog)

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		room, err := store.CreateRoom(prompts)
		require.NoError(t, err)
		_, dup := seen[room.Code]
		require.False(t, dup, "code %s allocated twice", room.Code)
		seen[room.Code] = struct{}{}
	}
	assert.Equal(t, 50, store.Len())
}

func TestRoomStoreDelete(t *testing.T) {
	store := NewRoomStore()
	room, err := store.CreateRoom(nil)
	require.NoError(t, err)

	store.DeleteRoom(room.ID)
	_, ok := store.GetRoom(room.ID)
	assert.False(t, ok)
	_, ok = store.GetRoomByCode(room.Code)
	assert.False(t, ok)
}

func TestRoomStoreDeleteExpired(t *testing.T) {
	store := NewRoomStore()
	old, err := store.CreateRoom(nil)
	require.NoError(t, err)
	fresh, err := store.CreateRoom(nil)
	require.NoError(t, err)

	old.CreatedAt = time.Now().Add(-48 * time.Hour)

	n := store.DeleteExpired(time.Now().Add(-24 * time.Hour))
	assert.Equal(t, 1, n)
	_, ok := store.GetRoom(old.ID)
	assert.False(t, ok)
	_, ok = store.GetRoom(fresh.ID)
	assert.True(t, ok)
}
