package memory

import (
	"context"
	"sort"
	"sync"

	"interanxy-service/internal/domain"
)

// StudentStore is an in-memory implementation of app.StudentRepository.
// It guarantees at most one row per (student, room) key: Upsert merges the
// patch over the existing row or creates a defaulted one.
type StudentStore struct {
	mu       sync.RWMutex
	students map[domain.StudentKey]*domain.StudentData
}

func NewStudentStore() *StudentStore {
	return &StudentStore{students: make(map[domain.StudentKey]*domain.StudentData)}
}

// NewSeededStudentStore preloads rows for demos and tests.
func NewSeededStudentStore(rows []*domain.StudentData) *StudentStore {
	s := NewStudentStore()
	for _, row := range rows {
		s.students[row.Key()] = row.Clone()
	}
	return s
}

func (s *StudentStore) Get(_ context.Context, key domain.StudentKey) (*domain.StudentData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.students[key]
	if !ok {
		return nil, domain.ErrStudentNotFound
	}
	return row.Clone(), nil
}

func (s *StudentStore) Upsert(_ context.Context, key domain.StudentKey, name string, patch domain.StudentPatch) (*domain.StudentData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.students[key]
	if !ok {
		row = domain.NewStudentData(key, name)
		s.students[key] = row
	}
	patch.Apply(row)
	return row.Clone(), nil
}

func (s *StudentStore) ListByRoom(_ context.Context, roomID string) ([]*domain.StudentData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.StudentData, 0)
	for key, row := range s.students {
		if key.RoomID == roomID {
			out = append(out, row.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *StudentStore) PurgeRoom(_ context.Context, roomID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key := range s.students {
		if key.RoomID == roomID {
			delete(s.students, key)
			removed++
		}
	}
	return removed, nil
}
