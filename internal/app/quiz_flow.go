package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"interanxy-service/internal/ai"
	"interanxy-service/internal/domain"
	"interanxy-service/internal/scoring"
)

// FlowState names a quiz flow position. Transitions are forward-only:
// answering -> reflecting -> finished. A room without questions never enters
// answering; it reports the distinct no-instrument state instead.
type FlowState string

const (
	StateAnswering   FlowState = "answering"
	StateReflecting  FlowState = "reflecting"
	StateFinished    FlowState = "finished"
	StateNoQuestions FlowState = "no-instrument"
)

// PreparingPrompt is shown while the reflection prompt is still in flight.
const PreparingPrompt = "Menyiapkan refleksi..."

// FlowStatus is the learner-facing view of a flow after an action.
type FlowStatus struct {
	State            FlowState        `json:"state"`
	Index            int              `json:"index"`
	Total            int              `json:"total"`
	Question         *domain.Question `json:"question,omitempty"`
	Scratch          string           `json:"scratch,omitempty"`
	Score            int              `json:"score"`
	ReflectionPrompt string           `json:"reflectionPrompt,omitempty"`
	PromptReady      bool             `json:"promptReady"`
}

// quizFlow holds one learner's in-progress attempt. The mutex serializes
// writes for the (student, room) key, so a learner submitting from two tabs
// cannot interleave lost updates.
type quizFlow struct {
	mu           sync.Mutex
	key          domain.StudentKey
	name         string
	questions    []domain.Question
	index        int
	answers      []string
	state        FlowState
	score        int
	prompt       string
	promptReady  bool
	aborted      bool
	cancelPrompt context.CancelFunc
}

// FlowManager creates, drives and tears down quiz flows. Flows are scoped to
// the process; aborting one discards its pending advisor call silently.
type FlowManager struct {
	mu            sync.Mutex
	flows         map[domain.StudentKey]*quizFlow
	rooms         RoomRepository
	students      StudentRepository
	advisor       ai.Advisor
	feed          *StatsFeed
	promptTimeout time.Duration
}

func NewFlowManager(rooms RoomRepository, students StudentRepository, advisor ai.Advisor, feed *StatsFeed) *FlowManager {
	return &FlowManager{
		flows:         make(map[domain.StudentKey]*quizFlow),
		rooms:         rooms,
		students:      students,
		advisor:       advisor,
		feed:          feed,
		promptTimeout: ai.DefaultTimeout,
	}
}

// Start begins or resumes the fact test for a learner in a room. Stored
// answers seed the scratch selections so an interrupted attempt resumes at
// question zero with prior selections intact.
func (m *FlowManager) Start(ctx context.Context, user *domain.UserProfile, roomID string) (FlowStatus, error) {
	room, err := m.rooms.Get(ctx, roomID)
	if err != nil {
		return FlowStatus{}, err
	}
	if user.Role != domain.RoleInstructor && !user.HasJoined(room.Code) {
		return FlowStatus{}, domain.ErrForbidden
	}
	if len(room.Questions) == 0 {
		return FlowStatus{State: StateNoQuestions}, nil
	}

	key := domain.StudentKey{StudentID: user.ID, RoomID: roomID}

	m.mu.Lock()
	flow, ok := m.flows[key]
	if !ok {
		answers := []string{}
		if stored, err := m.students.Get(ctx, key); err == nil {
			answers = append([]string(nil), stored.FactAnswers...)
		} else if !errors.Is(err, domain.ErrStudentNotFound) {
			m.mu.Unlock()
			return FlowStatus{}, err
		}
		flow = &quizFlow{
			key:       key,
			name:      user.Name,
			questions: append([]domain.Question(nil), room.Questions...),
			answers:   answers,
			state:     StateAnswering,
		}
		m.flows[key] = flow
	}
	m.mu.Unlock()

	flow.mu.Lock()
	defer flow.mu.Unlock()
	return flow.statusLocked(), nil
}

// Answer records the selection for the question at index and advances the
// flow. The answer is persisted immediately as a partial update; answering
// the final question computes the provisional score and kicks off the
// reflection prompt without blocking on it.
func (m *FlowManager) Answer(ctx context.Context, user *domain.UserProfile, roomID string, index int, value string) (FlowStatus, error) {
	flow, err := m.get(user, roomID)
	if err != nil {
		return FlowStatus{}, err
	}

	flow.mu.Lock()
	defer flow.mu.Unlock()

	switch flow.state {
	case StateAnswering:
	case StateFinished:
		return FlowStatus{}, domain.ErrFlowFinished
	default:
		return FlowStatus{}, domain.ErrWrongState
	}
	if index != flow.index {
		return FlowStatus{}, domain.ErrWrongState
	}
	if err := validateSelection(flow.questions[index], value); err != nil {
		return FlowStatus{}, err
	}

	for len(flow.answers) <= index {
		flow.answers = append(flow.answers, "")
	}
	flow.answers[index] = value

	last := index == len(flow.questions)-1
	patch := domain.StudentPatch{FactAnswers: flow.answers}
	if last {
		score := scoring.ComputeScore(flow.answers, flow.questions)
		patch.Score = &score
		flow.score = score
	}
	if _, err := m.students.Upsert(ctx, flow.key, flow.name, patch); err != nil {
		return FlowStatus{}, err
	}
	m.feed.Refresh(ctx, roomID)

	if last {
		flow.state = StateReflecting
		m.fetchReflectionPrompt(flow)
	} else {
		flow.index++
	}
	return flow.statusLocked(), nil
}

// fetchReflectionPrompt resolves the prompt in the background and patches it
// into the flow when it lands. The flow (and the learner) never wait on it:
// until then ReflectionPrompt serves a placeholder. Called with flow.mu held.
func (m *FlowManager) fetchReflectionPrompt(flow *quizFlow) {
	pctx, cancel := context.WithTimeout(context.Background(), m.promptTimeout)
	flow.cancelPrompt = cancel
	score := flow.score
	go func() {
		defer cancel()
		prompt := m.advisor.ReflectionPrompt(pctx, score)
		flow.mu.Lock()
		defer flow.mu.Unlock()
		if flow.aborted {
			return
		}
		flow.prompt = prompt
		flow.promptReady = true
	}()
}

// ReflectionPrompt reports the advisor's question, or a placeholder while
// the asynchronous call is still outstanding.
func (m *FlowManager) ReflectionPrompt(user *domain.UserProfile, roomID string) (string, bool, error) {
	flow, err := m.get(user, roomID)
	if err != nil {
		return "", false, err
	}
	flow.mu.Lock()
	defer flow.mu.Unlock()
	if flow.state != StateReflecting && flow.state != StateFinished {
		return "", false, domain.ErrWrongState
	}
	if !flow.promptReady {
		return PreparingPrompt, false, nil
	}
	return flow.prompt, true, nil
}

// SubmitReflection appends the learner's reflection and finishes the flow.
// Blank text is rejected in place: the flow stays in reflecting.
func (m *FlowManager) SubmitReflection(ctx context.Context, user *domain.UserProfile, roomID, text string) (FlowStatus, error) {
	flow, err := m.get(user, roomID)
	if err != nil {
		return FlowStatus{}, err
	}

	flow.mu.Lock()
	defer flow.mu.Unlock()

	switch flow.state {
	case StateReflecting:
	case StateFinished:
		return FlowStatus{}, domain.ErrFlowFinished
	default:
		return FlowStatus{}, domain.ErrWrongState
	}
	if strings.TrimSpace(text) == "" {
		return FlowStatus{}, domain.ErrEmptyReflection
	}

	score := flow.score
	if _, err := m.students.Upsert(ctx, flow.key, flow.name, domain.StudentPatch{
		FactAnswers:      flow.answers,
		Score:            &score,
		AppendReflection: &text,
	}); err != nil {
		return FlowStatus{}, err
	}
	m.feed.Refresh(ctx, roomID)

	flow.state = StateFinished
	return flow.statusLocked(), nil
}

// Abort tears the learner's flow down. Any in-flight reflection prompt is
// cancelled and its late result discarded without touching the store.
func (m *FlowManager) Abort(user *domain.UserProfile, roomID string) {
	key := domain.StudentKey{StudentID: user.ID, RoomID: roomID}

	m.mu.Lock()
	flow, ok := m.flows[key]
	delete(m.flows, key)
	m.mu.Unlock()
	if !ok {
		return
	}

	flow.mu.Lock()
	flow.aborted = true
	if flow.cancelPrompt != nil {
		flow.cancelPrompt()
	}
	flow.mu.Unlock()
}

func (m *FlowManager) get(user *domain.UserProfile, roomID string) (*quizFlow, error) {
	key := domain.StudentKey{StudentID: user.ID, RoomID: roomID}
	m.mu.Lock()
	defer m.mu.Unlock()
	flow, ok := m.flows[key]
	if !ok {
		return nil, domain.ErrFlowNotStarted
	}
	return flow, nil
}

func (f *quizFlow) statusLocked() FlowStatus {
	status := FlowStatus{
		State: f.state,
		Index: f.index,
		Total: len(f.questions),
		Score: f.score,
	}
	switch f.state {
	case StateAnswering:
		q := f.questions[f.index]
		q.Correct = ""
		status.Question = &q
		if f.index < len(f.answers) {
			status.Scratch = f.answers[f.index]
		}
	case StateReflecting, StateFinished:
		status.Index = len(f.questions)
		if f.promptReady {
			status.ReflectionPrompt = f.prompt
			status.PromptReady = true
		} else {
			status.ReflectionPrompt = PreparingPrompt
		}
	}
	return status
}

// validateSelection enforces the per-type advance rules: short answers need
// non-blank text, multiple choice needs one of the listed options, boolean
// needs Benar or Salah.
func validateSelection(q domain.Question, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return domain.ErrEmptyAnswer
	}
	switch q.Type {
	case domain.QuestionMultipleChoice:
		for _, opt := range q.Options {
			if value == opt {
				return nil
			}
		}
		return domain.ErrInvalidOption
	case domain.QuestionBoolean:
		if lower := strings.ToLower(trimmed); lower == "benar" || lower == "salah" {
			return nil
		}
		return domain.ErrInvalidOption
	default:
		return nil
	}
}
