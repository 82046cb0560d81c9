package app

import (
	"context"

	"interanxy-service/internal/domain"
)

// UserRepository abstracts how user profiles are stored.
type UserRepository interface {
	Create(u *domain.UserProfile) error
	Get(id string) (*domain.UserProfile, error)
	// FindByName returns every profile with the given display name; names
	// are not unique, identity is the generated ID.
	FindByName(name string) []*domain.UserProfile
	Update(u *domain.UserProfile) error
}

// RoomRepository abstracts room storage (in-memory, Postgres-backed).
type RoomRepository interface {
	Create(ctx context.Context, room domain.Room) error
	Get(ctx context.Context, id string) (domain.Room, error)
	// GetByCode resolves a join token; a miss is domain.ErrInvalidCode.
	GetByCode(ctx context.Context, code string) (domain.Room, error)
	List(ctx context.Context) ([]domain.Room, error)
	Update(ctx context.Context, room domain.Room) error
	Delete(ctx context.Context, id string) error
}

// StudentRepository stores at most one StudentData row per (learner, room)
// pair. Upsert merges a partial patch over the existing row, creating a
// defaulted one when absent.
type StudentRepository interface {
	Get(ctx context.Context, key domain.StudentKey) (*domain.StudentData, error)
	Upsert(ctx context.Context, key domain.StudentKey, name string, patch domain.StudentPatch) (*domain.StudentData, error)
	ListByRoom(ctx context.Context, roomID string) ([]*domain.StudentData, error)
	// PurgeRoom hard-deletes a room's rows and reports how many were removed.
	// Room deletion itself never calls this; orphaned rows are kept as history.
	PurgeRoom(ctx context.Context, roomID string) (int, error)
}
