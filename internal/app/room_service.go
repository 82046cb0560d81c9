package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"interanxy-service/internal/domain"
)

const codeLength = 5

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RoomService owns the room lifecycle and membership.
type RoomService struct {
	rooms    RoomRepository
	users    UserRepository
	students StudentRepository
	feed     *StatsFeed
	now      func() time.Time

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewRoomService(rooms RoomRepository, users UserRepository, students StudentRepository, feed *StatsFeed) *RoomService {
	return &RoomService{
		rooms:    rooms,
		users:    users,
		students: students,
		feed:     feed,
		now:      time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Create builds a room with a fresh join code and one seeded default
// challenge. Blank name/subject fall back to the stock placeholders.
func (s *RoomService) Create(ctx context.Context, name, subject string) (domain.Room, error) {
	if name == "" {
		name = "Ruang Baru"
	}
	if subject == "" {
		subject = "Bidang Ilmu"
	}

	code, err := s.generateCode(ctx)
	if err != nil {
		return domain.Room{}, err
	}

	room := domain.Room{
		ID:      "room-" + uuid.NewString(),
		Name:    name,
		Code:    code,
		Subject: subject,
		Challenges: []domain.Challenge{{
			ID:      "ch-" + uuid.NewString(),
			Title:   "Masalah Utama",
			Problem: "Tuliskan skenario masalah di sini...",
			WorkspaceFields: []domain.WorkspaceField{
				{ID: "f-" + uuid.NewString(), Label: "Analisis Awal"},
			},
		}},
		Questions: []domain.Question{},
		Tiers:     domain.DefaultTiers(),
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

// generateCode draws random join codes until one is unclaimed.
func (s *RoomService) generateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		buf := make([]byte, codeLength)
		s.rndMu.Lock()
		for i := range buf {
			buf[i] = codeAlphabet[s.rnd.Intn(len(codeAlphabet))]
		}
		s.rndMu.Unlock()
		code := string(buf)

		_, err := s.rooms.GetByCode(ctx, code)
		if errors.Is(err, domain.ErrInvalidCode) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("could not generate an unused room code")
}

func (s *RoomService) Get(ctx context.Context, id string) (domain.Room, error) {
	return s.rooms.Get(ctx, id)
}

// ListFor returns all rooms for instructors and joined rooms for learners.
func (s *RoomService) ListFor(ctx context.Context, profile *domain.UserProfile) ([]domain.Room, error) {
	all, err := s.rooms.List(ctx)
	if err != nil {
		return nil, err
	}
	if profile.Role == domain.RoleInstructor {
		return all, nil
	}
	joined := make([]domain.Room, 0, len(all))
	for _, room := range all {
		if profile.HasJoined(room.Code) {
			joined = append(joined, room)
		}
	}
	return joined, nil
}

// RoomUpdate carries instructor edits; nil fields are left unchanged.
// ID and join code are not editable.
type RoomUpdate struct {
	Name       *string
	Subject    *string
	Challenges *[]domain.Challenge
	Questions  *[]domain.Question
}

func (s *RoomService) Update(ctx context.Context, id string, update RoomUpdate) (domain.Room, error) {
	room, err := s.rooms.Get(ctx, id)
	if err != nil {
		return domain.Room{}, err
	}
	if update.Name != nil {
		room.Name = *update.Name
	}
	if update.Subject != nil {
		room.Subject = *update.Subject
	}
	if update.Challenges != nil {
		room.Challenges = *update.Challenges
	}
	if update.Questions != nil {
		room.Questions = *update.Questions
	}
	if err := s.rooms.Update(ctx, room); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

// SetTiers replaces a room's monitoring bands. Order is significant:
// classification is first-match.
func (s *RoomService) SetTiers(ctx context.Context, id string, tiers []domain.Tier) (domain.Room, error) {
	room, err := s.rooms.Get(ctx, id)
	if err != nil {
		return domain.Room{}, err
	}
	room.Tiers = tiers
	if err := s.rooms.Update(ctx, room); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

// Delete removes the room only. StudentData rows referencing it are kept
// untouched as archived history; PurgeStudents exists for hard deletion.
func (s *RoomService) Delete(ctx context.Context, id string) error {
	return s.rooms.Delete(ctx, id)
}

// Join adds the room's code to the learner's joined set. The second join of
// the same code fails with ErrAlreadyJoined and leaves the set unchanged.
func (s *RoomService) Join(ctx context.Context, userID, code string) (*domain.UserProfile, error) {
	user, err := s.users.Get(userID)
	if err != nil {
		return nil, err
	}
	room, err := s.rooms.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if user.HasJoined(room.Code) {
		return nil, domain.ErrAlreadyJoined
	}
	user.Join(room.Code)
	if err := s.users.Update(user); err != nil {
		return nil, err
	}
	return user.Clone(), nil
}

// Stats builds the instructor's cohort view for a room.
func (s *RoomService) Stats(ctx context.Context, roomID string) (StatsSnapshot, error) {
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return StatsSnapshot{}, err
	}
	students, err := s.students.ListByRoom(ctx, roomID)
	if err != nil {
		return StatsSnapshot{}, err
	}
	return BuildStats(room, students, s.now()), nil
}

// Students lists a room's rows for instructor inspection.
func (s *RoomService) Students(ctx context.Context, roomID string) ([]*domain.StudentData, error) {
	if _, err := s.rooms.Get(ctx, roomID); err != nil {
		return nil, err
	}
	return s.students.ListByRoom(ctx, roomID)
}

// PurgeStudents hard-deletes every StudentData row of a room.
func (s *RoomService) PurgeStudents(ctx context.Context, roomID string) (int, error) {
	removed, err := s.students.PurgeRoom(ctx, roomID)
	if err != nil {
		return 0, err
	}
	s.feed.Refresh(ctx, roomID)
	return removed, nil
}
