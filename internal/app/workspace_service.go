package app

import (
	"context"

	"interanxy-service/internal/ai"
	"interanxy-service/internal/domain"
)

// WorkspaceService drives a learner's work inside a room: entering,
// free-text workspace answers, cohort labels and on-demand scaffolding.
type WorkspaceService struct {
	rooms    RoomRepository
	students StudentRepository
	advisor  ai.Advisor
	feed     *StatsFeed
}

func NewWorkspaceService(rooms RoomRepository, students StudentRepository, advisor ai.Advisor, feed *StatsFeed) *WorkspaceService {
	return &WorkspaceService{rooms: rooms, students: students, advisor: advisor, feed: feed}
}

// Enter resumes (or creates) the learner's row in a room and produces the
// one-time welcome message. The welcome call is timeout-bounded inside the
// advisor; a failure degrades to the fixed fallback, never an error here.
func (s *WorkspaceService) Enter(ctx context.Context, user *domain.UserProfile, roomID string) (string, *domain.StudentData, domain.Room, error) {
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return "", nil, domain.Room{}, err
	}
	if user.Role != domain.RoleInstructor && !user.HasJoined(room.Code) {
		return "", nil, domain.Room{}, domain.ErrForbidden
	}

	status := domain.StatusActive
	student, err := s.students.Upsert(ctx, s.key(user, roomID), user.Name, domain.StudentPatch{Status: &status})
	if err != nil {
		return "", nil, domain.Room{}, err
	}
	s.feed.Refresh(ctx, roomID)

	welcome := s.advisor.WelcomeMessage(ctx, user.Name, room.Subject)
	return welcome, student, room.WithoutAnswerKey(), nil
}

// SaveAnswer upserts one workspace field value as a partial update.
func (s *WorkspaceService) SaveAnswer(ctx context.Context, user *domain.UserProfile, roomID, challengeID, fieldID, value string) (*domain.StudentData, error) {
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if _, _, err := findField(room, challengeID, fieldID); err != nil {
		return nil, err
	}

	student, err := s.students.Upsert(ctx, s.key(user, roomID), user.Name, domain.StudentPatch{
		ChallengeAnswer: &domain.ChallengeAnswerPatch{
			ChallengeID: challengeID,
			FieldID:     fieldID,
			Value:       value,
		},
	})
	if err != nil {
		return nil, err
	}
	s.feed.Refresh(ctx, roomID)
	return student, nil
}

// SetGroup updates the learner's cohort label; blank resets to the default.
func (s *WorkspaceService) SetGroup(ctx context.Context, user *domain.UserProfile, roomID, group string) (*domain.StudentData, error) {
	if _, err := s.rooms.Get(ctx, roomID); err != nil {
		return nil, err
	}
	student, err := s.students.Upsert(ctx, s.key(user, roomID), user.Name, domain.StudentPatch{Group: &group})
	if err != nil {
		return nil, err
	}
	s.feed.Refresh(ctx, roomID)
	return student, nil
}

// Hint stores the learner's current reasoning for the field, then asks the
// advisor for a non-evaluative scaffold grounded in that reasoning.
func (s *WorkspaceService) Hint(ctx context.Context, user *domain.UserProfile, roomID, challengeID, fieldID, reasoning string) (string, error) {
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return "", err
	}
	challenge, field, err := findField(room, challengeID, fieldID)
	if err != nil {
		return "", err
	}

	if _, err := s.students.Upsert(ctx, s.key(user, roomID), user.Name, domain.StudentPatch{
		ChallengeAnswer: &domain.ChallengeAnswerPatch{
			ChallengeID: challengeID,
			FieldID:     fieldID,
			Value:       reasoning,
		},
	}); err != nil {
		return "", err
	}
	s.feed.Refresh(ctx, roomID)

	return s.advisor.ScaffoldingHint(ctx, challenge.Problem, field.Label, reasoning), nil
}

func (s *WorkspaceService) key(user *domain.UserProfile, roomID string) domain.StudentKey {
	return domain.StudentKey{StudentID: user.ID, RoomID: roomID}
}

func findField(room domain.Room, challengeID, fieldID string) (domain.Challenge, domain.WorkspaceField, error) {
	for _, ch := range room.Challenges {
		if ch.ID != challengeID {
			continue
		}
		for _, f := range ch.WorkspaceFields {
			if f.ID == fieldID {
				return ch, f, nil
			}
		}
		return domain.Challenge{}, domain.WorkspaceField{}, domain.ErrFieldNotFound
	}
	return domain.Challenge{}, domain.WorkspaceField{}, domain.ErrChallengeNotFound
}
