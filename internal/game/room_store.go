package game

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RoomStore holds every active room in memory, indexed by ID and by room
// code. Room code allocation goes through the store so the collision check
// and the insert happen under one lock.
type RoomStore struct {
	mu     sync.Mutex
	rooms  map[uuid.UUID]*Room
	byCode map[string]*Room
	rng    *rand.Rand
}

// NewRoomStore initializes an empty store.
func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms:  make(map[uuid.UUID]*Room),
		byCode: make(map[string]*Room),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateRoom allocates a fresh room code and registers a new room in the
// waiting state.
func (s *RoomStore) CreateRoom(prompts *PromptSelector) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := NewRoomCode(s.rng, func(c string) bool {
		_, taken := s.byCode[c]
		return taken
	})
	if err != nil {
		return nil, err
	}

	room := NewRoom(code, prompts)
	s.rooms[room.ID] = room
	s.byCode[room.Code] = room
	return room, nil
}

// GetRoom retrieves a room by ID.
func (s *RoomStore) GetRoom(id uuid.UUID) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	return r, ok
}

// GetRoomByCode retrieves a room by its code, case-insensitively.
func (s *RoomStore) GetRoomByCode(code string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return r, ok
}

// DeleteRoom removes a room from both indexes.
func (s *RoomStore) DeleteRoom(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[id]; ok {
		delete(s.byCode, r.Code)
		delete(s.rooms, id)
	}
}

// DeleteExpired drops rooms created before the cutoff and reports how many
// were removed. Used by the retention sweep.
func (s *RoomStore) DeleteExpired(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, r := range s.rooms {
		if r.CreatedAt.Before(cutoff) {
			delete(s.byCode, r.Code)
			delete(s.rooms, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of active rooms.
func (s *RoomStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}
