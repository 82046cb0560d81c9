package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"interanxy-service/internal/ai"
	"interanxy-service/internal/app"
	"interanxy-service/internal/domain"
	"interanxy-service/internal/infra/memory"
)

// stubAdvisor returns canned messages; delay simulates a slow backend.
type stubAdvisor struct {
	welcome string
	hint    string
	prompt  string
	delay   time.Duration
}

func (a *stubAdvisor) WelcomeMessage(ctx context.Context, learnerName, subject string) string {
	return a.wait(ctx, a.welcome, ai.FallbackWelcome)
}

func (a *stubAdvisor) ScaffoldingHint(ctx context.Context, problem, fieldLabel, reasoning string) string {
	return a.wait(ctx, a.hint, ai.FallbackScaffold)
}

func (a *stubAdvisor) ReflectionPrompt(ctx context.Context, score int) string {
	return a.wait(ctx, a.prompt, ai.FallbackReflection)
}

func (a *stubAdvisor) wait(ctx context.Context, value, fallback string) string {
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return fallback
		}
	}
	return value
}

type fixture struct {
	users    *memory.UserStore
	rooms    *memory.RoomStore
	students *memory.StudentStore
	advisor  *stubAdvisor

	accounts  *app.AccountService
	roomSvc   *app.RoomService
	workspace *app.WorkspaceService
	flows     *app.FlowManager
	monitor   *app.Monitor
}

func newFixture() *fixture {
	f := &fixture{
		users:    memory.NewUserStore(),
		rooms:    memory.NewRoomStore(),
		students: memory.NewStudentStore(),
		advisor:  &stubAdvisor{welcome: "halo", hint: "bagaimana?", prompt: "apa yang berubah?"},
		monitor:  app.NewMonitor(),
	}
	feed := app.NewStatsFeed(f.rooms, f.students, f.monitor)
	f.accounts = app.NewAccountService(f.users, []byte("secret"), time.Hour)
	f.roomSvc = app.NewRoomService(f.rooms, f.users, f.students, feed)
	f.workspace = app.NewWorkspaceService(f.rooms, f.students, f.advisor, feed)
	f.flows = app.NewFlowManager(f.rooms, f.students, f.advisor, feed)
	return f
}

// newLearnerInRoom registers a learner, creates a room with the given
// questions and joins the learner to it.
func (f *fixture) newLearnerInRoom(t *testing.T, questions []domain.Question) (*domain.UserProfile, domain.Room) {
	t.Helper()
	ctx := context.Background()

	learner, _, err := f.accounts.Register("Andi", "rahasia", domain.RoleLearner)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	room, err := f.roomSvc.Create(ctx, "Rombel A", "Probabilitas")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if questions != nil {
		room, err = f.roomSvc.Update(ctx, room.ID, app.RoomUpdate{Questions: &questions})
		if err != nil {
			t.Fatalf("set questions: %v", err)
		}
	}
	learner, err = f.roomSvc.Join(ctx, learner.ID, room.Code)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	return learner, room
}

func twoQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Type: domain.QuestionShortAnswer, Text: "Ibukota?", Correct: "Jakarta"},
		{ID: "q2", Type: domain.QuestionBoolean, Text: "2+2=4", Correct: "Benar"},
	}
}

func TestFlowHappyPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	learner, room := f.newLearnerInRoom(t, twoQuestions())

	status, err := f.flows.Start(ctx, learner, room.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if status.State != app.StateAnswering || status.Index != 0 || status.Total != 2 {
		t.Fatalf("unexpected start status: %+v", status)
	}
	if status.Question == nil || status.Question.Correct != "" {
		t.Fatalf("expected redacted question, got %+v", status.Question)
	}

	status, err = f.flows.Answer(ctx, learner, room.ID, 0, " jakarta ")
	if err != nil {
		t.Fatalf("answer q1: %v", err)
	}
	if status.Index != 1 {
		t.Fatalf("expected index 1, got %d", status.Index)
	}

	// The first answer is already persisted before the flow finishes.
	stored, err := f.students.Get(ctx, domain.StudentKey{StudentID: learner.ID, RoomID: room.ID})
	if err != nil {
		t.Fatalf("get student: %v", err)
	}
	if len(stored.FactAnswers) != 1 || stored.FactAnswers[0] != " jakarta " {
		t.Fatalf("expected persisted first answer, got %v", stored.FactAnswers)
	}

	status, err = f.flows.Answer(ctx, learner, room.ID, 1, "benar")
	if err != nil {
		t.Fatalf("answer q2: %v", err)
	}
	if status.State != app.StateReflecting || status.Score != 100 {
		t.Fatalf("expected reflecting at 100, got %+v", status)
	}

	// Prompt is synchronous here (zero delay) so it should land quickly.
	deadline := time.Now().Add(2 * time.Second)
	for {
		prompt, ready, err := f.flows.ReflectionPrompt(learner, room.ID)
		if err != nil {
			t.Fatalf("reflection prompt: %v", err)
		}
		if ready {
			if prompt != "apa yang berubah?" {
				t.Fatalf("unexpected prompt %q", prompt)
			}
			break
		}
		if prompt != app.PreparingPrompt {
			t.Fatalf("expected placeholder, got %q", prompt)
		}
		if time.Now().After(deadline) {
			t.Fatalf("prompt never became ready")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := f.flows.SubmitReflection(ctx, learner, room.ID, "  "); !errors.Is(err, domain.ErrEmptyReflection) {
		t.Fatalf("expected ErrEmptyReflection, got %v", err)
	}

	status, err = f.flows.SubmitReflection(ctx, learner, room.ID, "Lebih percaya diri.")
	if err != nil {
		t.Fatalf("reflection: %v", err)
	}
	if status.State != app.StateFinished {
		t.Fatalf("expected finished, got %+v", status)
	}

	stored, err = f.students.Get(ctx, domain.StudentKey{StudentID: learner.ID, RoomID: room.ID})
	if err != nil {
		t.Fatalf("get student: %v", err)
	}
	if stored.Score != 100 {
		t.Fatalf("expected score 100, got %d", stored.Score)
	}
	if len(stored.Reflections) != 1 || stored.Reflections[0] != "Lebih percaya diri." {
		t.Fatalf("expected one reflection, got %v", stored.Reflections)
	}

	// The flow does not accept more answers once finished.
	if _, err := f.flows.Answer(ctx, learner, room.ID, 1, "Salah"); !errors.Is(err, domain.ErrFlowFinished) {
		t.Fatalf("expected ErrFlowFinished, got %v", err)
	}
}

func TestFlowAdvanceRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	learner, room := f.newLearnerInRoom(t, []domain.Question{
		{ID: "q1", Type: domain.QuestionMultipleChoice, Text: "Pilih", Options: []string{"A", "B"}, Correct: "A"},
		{ID: "q2", Type: domain.QuestionBoolean, Text: "Benar?", Correct: "Benar"},
	})

	if _, err := f.flows.Answer(ctx, learner, room.ID, 0, "A"); !errors.Is(err, domain.ErrFlowNotStarted) {
		t.Fatalf("expected ErrFlowNotStarted, got %v", err)
	}
	if _, err := f.flows.Start(ctx, learner, room.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := f.flows.Answer(ctx, learner, room.ID, 0, "  "); !errors.Is(err, domain.ErrEmptyAnswer) {
		t.Fatalf("expected ErrEmptyAnswer, got %v", err)
	}
	if _, err := f.flows.Answer(ctx, learner, room.ID, 0, "C"); !errors.Is(err, domain.ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption, got %v", err)
	}
	// Answering out of order is rejected.
	if _, err := f.flows.Answer(ctx, learner, room.ID, 1, "Benar"); !errors.Is(err, domain.ErrWrongState) {
		t.Fatalf("expected ErrWrongState, got %v", err)
	}
	if _, err := f.flows.Answer(ctx, learner, room.ID, 0, "B"); err != nil {
		t.Fatalf("valid option rejected: %v", err)
	}
	if _, err := f.flows.Answer(ctx, learner, room.ID, 1, "mungkin"); !errors.Is(err, domain.ErrInvalidOption) {
		t.Fatalf("expected ErrInvalidOption for boolean, got %v", err)
	}
	// Reflection before the last answer is a state violation.
	if _, err := f.flows.SubmitReflection(ctx, learner, room.ID, "belum"); !errors.Is(err, domain.ErrWrongState) {
		t.Fatalf("expected ErrWrongState, got %v", err)
	}
}

func TestFlowNoQuestions(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	learner, room := f.newLearnerInRoom(t, nil)

	status, err := f.flows.Start(ctx, learner, room.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if status.State != app.StateNoQuestions {
		t.Fatalf("expected no-instrument state, got %+v", status)
	}
	// No flow was created, so there is nothing to answer.
	if _, err := f.flows.Answer(ctx, learner, room.ID, 0, "x"); !errors.Is(err, domain.ErrFlowNotStarted) {
		t.Fatalf("expected ErrFlowNotStarted, got %v", err)
	}
}

func TestFlowResumeSeedsStoredAnswers(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	learner, room := f.newLearnerInRoom(t, twoQuestions())

	if _, err := f.flows.Start(ctx, learner, room.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := f.flows.Answer(ctx, learner, room.ID, 0, "Jakarta"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	// Simulate the process-local flow being lost mid-attempt.
	f.flows.Abort(learner, room.ID)

	status, err := f.flows.Start(ctx, learner, room.ID)
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if status.Index != 0 {
		t.Fatalf("resume starts at question zero, got index %d", status.Index)
	}
	if status.Scratch != "Jakarta" {
		t.Fatalf("expected stored answer as scratch, got %q", status.Scratch)
	}
}

func TestFlowAbortDiscardsLatePrompt(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.advisor.delay = 200 * time.Millisecond
	learner, room := f.newLearnerInRoom(t, []domain.Question{
		{ID: "q1", Type: domain.QuestionShortAnswer, Text: "1+1?", Correct: "2"},
	})

	if _, err := f.flows.Start(ctx, learner, room.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	status, err := f.flows.Answer(ctx, learner, room.ID, 0, "2")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if status.State != app.StateReflecting || status.ReflectionPrompt != app.PreparingPrompt {
		t.Fatalf("expected pending prompt, got %+v", status)
	}

	f.flows.Abort(learner, room.ID)

	if _, _, err := f.flows.ReflectionPrompt(learner, room.ID); !errors.Is(err, domain.ErrFlowNotStarted) {
		t.Fatalf("expected ErrFlowNotStarted after abort, got %v", err)
	}

	// The cancelled advisor call must not write anything after teardown.
	time.Sleep(300 * time.Millisecond)
	stored, err := f.students.Get(ctx, domain.StudentKey{StudentID: learner.ID, RoomID: room.ID})
	if err != nil {
		t.Fatalf("get student: %v", err)
	}
	if len(stored.Reflections) != 0 {
		t.Fatalf("aborted flow leaked reflections: %v", stored.Reflections)
	}
}

func TestFlowInstructorPreview(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, room := f.newLearnerInRoom(t, twoQuestions())

	instructor, _, err := f.accounts.Register("Bu Dosen", "rahasia", domain.RoleInstructor)
	if err != nil {
		t.Fatalf("register instructor: %v", err)
	}
	// Instructors can run the instrument without joining.
	if _, err := f.flows.Start(ctx, instructor, room.ID); err != nil {
		t.Fatalf("instructor start: %v", err)
	}

	stranger, _, err := f.accounts.Register("Budi", "rahasia", domain.RoleLearner)
	if err != nil {
		t.Fatalf("register stranger: %v", err)
	}
	if _, err := f.flows.Start(ctx, stranger, room.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-member, got %v", err)
	}
}
