package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"interanxy-service/internal/domain"
)

// StudentStore is a Redis-backed implementation of app.StudentRepository.
// Rows are kept as one hash per room: HSET room:{roomID}:students {studentID} {json}.
// A zero TTL keeps rows indefinitely; a positive TTL refreshes on every
// write, turning the store into a rolling archive.
//
// Upserts are read-modify-write; the local mutex serializes them per
// process. Multi-instance deployments would need a Lua script or WATCH
// transaction here.
type StudentStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.Mutex
}

func NewStudentStore(client *redis.Client, ttl time.Duration) *StudentStore {
	return &StudentStore{client: client, ttl: ttl}
}

func (s *StudentStore) Get(ctx context.Context, key domain.StudentKey) (*domain.StudentData, error) {
	raw, err := s.client.HGet(ctx, s.roomKey(key.RoomID), key.StudentID).Result()
	if err == redis.Nil {
		return nil, domain.ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load student row: %w", err)
	}
	return decodeRow([]byte(raw))
}

func (s *StudentStore) Upsert(ctx context.Context, key domain.StudentKey, name string, patch domain.StudentPatch) (*domain.StudentData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := s.Get(ctx, key)
	if err == domain.ErrStudentNotFound {
		row = domain.NewStudentData(key, name)
	} else if err != nil {
		return nil, err
	}
	patch.Apply(row)

	raw, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("marshal student row: %w", err)
	}

	roomKey := s.roomKey(key.RoomID)
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, roomKey, key.StudentID, raw)
	if s.ttl > 0 {
		pipe.Expire(ctx, roomKey, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("store student row: %w", err)
	}
	return row, nil
}

func (s *StudentStore) ListByRoom(ctx context.Context, roomID string) ([]*domain.StudentData, error) {
	raw, err := s.client.HGetAll(ctx, s.roomKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list student rows: %w", err)
	}
	out := make([]*domain.StudentData, 0, len(raw))
	for _, encoded := range raw {
		row, err := decodeRow([]byte(encoded))
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *StudentStore) PurgeRoom(ctx context.Context, roomID string) (int, error) {
	roomKey := s.roomKey(roomID)
	count, err := s.client.HLen(ctx, roomKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count student rows: %w", err)
	}
	if err := s.client.Del(ctx, roomKey).Err(); err != nil {
		return 0, fmt.Errorf("purge student rows: %w", err)
	}
	return int(count), nil
}

func (s *StudentStore) roomKey(roomID string) string {
	return "room:" + roomID + ":students"
}

func decodeRow(raw []byte) (*domain.StudentData, error) {
	var row domain.StudentData
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("unmarshal student row: %w", err)
	}
	return &row, nil
}
