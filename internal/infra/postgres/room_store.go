package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"interanxy-service/internal/domain"
)

// RoomStore persists rooms as JSONB rows in Postgres.
type RoomStore struct {
	pool *pgxpool.Pool
}

func NewRoomStore(pool *pgxpool.Pool) *RoomStore {
	return &RoomStore{pool: pool}
}

func (s *RoomStore) Create(ctx context.Context, room domain.Room) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO rooms (id, code, data) VALUES ($1, $2, $3)`,
		room.ID, room.Code, raw); err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

func (s *RoomStore) Get(ctx context.Context, id string) (domain.Room, error) {
	return s.queryOne(ctx, `SELECT data FROM rooms WHERE id=$1`, id, domain.ErrRoomNotFound)
}

func (s *RoomStore) GetByCode(ctx context.Context, code string) (domain.Room, error) {
	return s.queryOne(ctx, `SELECT data FROM rooms WHERE code=$1`, code, domain.ErrInvalidCode)
}

func (s *RoomStore) List(ctx context.Context) ([]domain.Room, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM rooms ORDER BY data->>'name'`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var out []domain.Room
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		var room domain.Room
		if err := json.Unmarshal(raw, &room); err != nil {
			return nil, fmt.Errorf("unmarshal room: %w", err)
		}
		out = append(out, room)
	}
	return out, rows.Err()
}

func (s *RoomStore) Update(ctx context.Context, room domain.Room) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE rooms SET data=$2 WHERE id=$1`, room.ID, raw)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (s *RoomStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rooms WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (s *RoomStore) queryOne(ctx context.Context, query, arg string, missing error) (domain.Room, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, query, arg).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Room{}, missing
	}
	if err != nil {
		return domain.Room{}, fmt.Errorf("load room: %w", err)
	}
	var room domain.Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return domain.Room{}, fmt.Errorf("unmarshal room: %w", err)
	}
	return room, nil
}
