package memory

import (
	"sync"

	"interanxy-service/internal/domain"
)

// UserStore is an in-memory implementation of app.UserRepository.
type UserStore struct {
	mu     sync.RWMutex
	users  map[string]*domain.UserProfile
	byName map[string][]string
}

func NewUserStore() *UserStore {
	return &UserStore{
		users:  make(map[string]*domain.UserProfile),
		byName: make(map[string][]string),
	}
}

func (s *UserStore) Create(u *domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u.Clone()
	s.byName[u.Name] = append(s.byName[u.Name], u.ID)
	return nil
}

func (s *UserStore) Get(id string) (*domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (s *UserStore) FindByName(name string) []*domain.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byName[name]
	out := make([]*domain.UserProfile, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u.Clone())
		}
	}
	return out
}

func (s *UserStore) Update(u *domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	s.users[u.ID] = u.Clone()
	return nil
}
