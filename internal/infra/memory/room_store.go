package memory

import (
	"context"
	"sort"
	"sync"

	"interanxy-service/internal/domain"
)

// RoomStore is an in-memory implementation of app.RoomRepository.
type RoomStore struct {
	mu     sync.RWMutex
	rooms  map[string]domain.Room
	byCode map[string]string
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms:  make(map[string]domain.Room),
		byCode: make(map[string]string),
	}
}

// NewSeededRoomStore preloads rooms; used for the demo catalog when no
// Postgres is configured.
func NewSeededRoomStore(rooms []domain.Room) *RoomStore {
	s := NewRoomStore()
	for _, room := range rooms {
		s.rooms[room.ID] = room.Clone()
		s.byCode[room.Code] = room.ID
	}
	return s
}

func (s *RoomStore) Create(_ context.Context, room domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = room.Clone()
	s.byCode[room.Code] = room.ID
	return nil
}

func (s *RoomStore) Get(_ context.Context, id string) (domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (s *RoomStore) GetByCode(_ context.Context, code string) (domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCode[code]
	if !ok {
		return domain.Room{}, domain.ErrInvalidCode
	}
	return s.rooms[id].Clone(), nil
}

func (s *RoomStore) List(_ context.Context) ([]domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, room.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *RoomStore) Update(_ context.Context, room domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.rooms[room.ID]
	if !ok {
		return domain.ErrRoomNotFound
	}
	// Join codes are immutable once issued.
	room.Code = stored.Code
	s.rooms[room.ID] = room.Clone()
	return nil
}

func (s *RoomStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return domain.ErrRoomNotFound
	}
	delete(s.byCode, room.Code)
	delete(s.rooms, id)
	return nil
}
