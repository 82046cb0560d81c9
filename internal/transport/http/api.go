package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"interanxy-service/internal/app"
	"interanxy-service/internal/domain"
)

// API exposes the service over REST plus one websocket monitor endpoint.
type API struct {
	accounts  *app.AccountService
	rooms     *app.RoomService
	workspace *app.WorkspaceService
	flows     *app.FlowManager
	monitor   *MonitorHandler
}

func NewAPI(accounts *app.AccountService, rooms *app.RoomService, workspace *app.WorkspaceService, flows *app.FlowManager, monitor *MonitorHandler) *API {
	return &API{accounts: accounts, rooms: rooms, workspace: workspace, flows: flows, monitor: monitor}
}

// Register wires every route into the mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /auth/register", a.handleRegister)
	mux.HandleFunc("POST /auth/login", a.handleLogin)

	mux.HandleFunc("GET /rooms", a.auth(a.handleListRooms))
	mux.HandleFunc("POST /rooms", a.instructor(a.handleCreateRoom))
	mux.HandleFunc("POST /rooms/join", a.auth(a.handleJoinRoom))
	mux.HandleFunc("GET /rooms/{id}", a.auth(a.handleGetRoom))
	mux.HandleFunc("PUT /rooms/{id}", a.instructor(a.handleUpdateRoom))
	mux.HandleFunc("DELETE /rooms/{id}", a.instructor(a.handleDeleteRoom))
	mux.HandleFunc("PUT /rooms/{id}/tiers", a.instructor(a.handleSetTiers))

	mux.HandleFunc("POST /rooms/{id}/enter", a.auth(a.handleEnterRoom))
	mux.HandleFunc("POST /rooms/{id}/answers", a.auth(a.handleSaveAnswer))
	mux.HandleFunc("POST /rooms/{id}/hint", a.auth(a.handleHint))
	mux.HandleFunc("POST /rooms/{id}/group", a.auth(a.handleSetGroup))

	mux.HandleFunc("POST /rooms/{id}/quiz", a.auth(a.handleStartQuiz))
	mux.HandleFunc("POST /rooms/{id}/quiz/answers", a.auth(a.handleQuizAnswer))
	mux.HandleFunc("GET /rooms/{id}/quiz/reflection-prompt", a.auth(a.handleReflectionPrompt))
	mux.HandleFunc("POST /rooms/{id}/quiz/reflection", a.auth(a.handleSubmitReflection))
	mux.HandleFunc("DELETE /rooms/{id}/quiz", a.auth(a.handleAbortQuiz))

	mux.HandleFunc("GET /rooms/{id}/stats", a.instructor(a.handleStats))
	mux.HandleFunc("GET /rooms/{id}/students", a.instructor(a.handleStudents))
	mux.HandleFunc("DELETE /rooms/{id}/students", a.instructor(a.handlePurgeStudents))
	mux.HandleFunc("GET /rooms/{id}/monitor", a.instructor(a.monitor.Serve))
}

type authedHandler func(w http.ResponseWriter, r *http.Request, user *domain.UserProfile)

// auth resolves the bearer token (header, or ?token= for websocket clients)
// into a live profile.
func (a *API) auth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || token == r.Header.Get("Authorization") {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			writeError(w, domain.ErrInvalidCredentials)
			return
		}
		user, err := a.accounts.Authenticate(token)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r, user)
	}
}

func (a *API) instructor(next authedHandler) http.HandlerFunc {
	return a.auth(func(w http.ResponseWriter, r *http.Request, user *domain.UserProfile) {
		if user.Role != domain.RoleInstructor {
			writeError(w, domain.ErrForbidden)
			return
		}
		next(w, r, user)
	})
}

// --- auth ---

type credentialsPayload struct {
	Name     string      `json:"name"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role,omitempty"`
}

type sessionResponse struct {
	Token   string      `json:"token"`
	Profile profileView `json:"profile"`
}

type profileView struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Role        domain.Role `json:"role"`
	JoinedRooms []string    `json:"joinedRooms"`
}

func viewProfile(u *domain.UserProfile) profileView {
	return profileView{ID: u.ID, Name: u.Name, Role: u.Role, JoinedRooms: u.JoinedCodeList()}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if !decode(w, r, &payload) {
		return
	}
	profile, token, err := a.accounts.Register(payload.Name, payload.Password, payload.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: token, Profile: viewProfile(profile)})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if !decode(w, r, &payload) {
		return
	}
	profile, token, err := a.accounts.Login(payload.Name, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: token, Profile: viewProfile(profile)})
}

// --- rooms ---

func (a *API) handleListRooms(w http.ResponseWriter, r *http.Request, user *domain.UserProfile) {
	rooms, err := a.rooms.ListFor(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}
	if user.Role != domain.RoleInstructor {
		for i := range rooms {
			rooms[i] = rooms[i].WithoutAnswerKey()
		}
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (a *API) handleCreateRoom(w http.ResponseWriter, r *http.Request, _ *domain.UserProfile) {
	var payload struct {
		Name    string `json:"name"`
		Subject string `json:"subject"`
	}
	if !decode(w, r, &payload) {
		return
	}
	room, err := a.rooms.Create(r.Context(), payload.Name, payload.Subject)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (a *API) handleGetRoom(w http.ResponseWriter, r *http.Request, user *domain.UserProfile) {
	room, err := a.rooms.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if user.Role != domain.RoleInstructor {
		room = room.WithoutAnswerKey()
	}
	writeJSON(w, http.StatusOK, room)
}

func (a *API) handleUpdateRoom(w http.ResponseWriter, r *http.Request, _ *domain.UserProfile) {
	var payload struct {
		Name       *string             `json:"name"`
		Subject    *string             `json:"subject"`
		Challenges *[]domain.Challenge `json:"challenges"`
		Questions  *[]domain.Question  `json:"questions"`
	}
	if !decode(w, r, &payload) {
		return
	}
	room, err := a.rooms.Update(r.Context(), r.PathValue("id"), app.RoomUpdate{
		Name:       payload.Name,
		Subject:    payload.Subject,
		Challenges: payload.Challenges,
		Questions:  payload.Questions,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (a *API) handleDeleteRoom(w http.ResponseWriter, r *http.Request, _ *domain.UserProfile) {
	if err := a.rooms.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSetTiers(w http.ResponseWriter, r *http.Request, _ *domain.UserProfile) {
	var payload struct {
		Tiers []domain.Tier `json:"tiers"`
	}
	if !decode(w, r, &payload) {
		return
	}
	room, err := a.rooms.SetTiers(r.Context(), r.PathValue("id"), payload.Tiers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (a *API) handleJoinRoom(w http.ResponseWriter, r *http.Request, user *domain.UserProfile) {
	var payload struct {
		Code string `json:"code"`
	}
	if !decode(w, r, &payload) {
		return
	}
	profile, err := a.rooms.Join(r.Context(), user.ID, payload.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewProfile(profile))
}

// --- workspace ---

func (a *API) handleEnterRoom(w http.ResponseWriter, r *http.Request, user *domain.UserProfile) {
	welcome, student, room, err := a.workspace.Enter(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"welcome": welcome,
		"student": student,
		"room":    room,
	})
}

func (a *API) handleSaveAnswer(w http.ResponseWriter, r *http.Request, user *domain.UserProfile) {
	var payload struct {
		ChallengeID string `json:"challengeId"`
		FieldID     string `json:"fieldId"`
		Value       string `json:"value"`
	}
	if !decode(w, r, &payload) {
		return
	}
	student, err := a.workspace.SaveAnswer(r.Context(), user, r.PathValue("id"), payload.ChallengeID, payload.FieldID, payload.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (a *API) handleHint(w http.ResponseWriter, r *http.Request, user *domain.UserProfile) {
	var payload struct {
		ChallengeID string `json:"challengeId"`
		FieldID     string `json:"fieldId"`
		Reasoning   string `json:"reasoning"`
	}
	if !decode(w, r, &payload) {
		return
	}
	hint, err := a.workspace.Hint(r.Context(), user, r.PathValue("id"), payload.ChallengeID, payload.FieldID, payload.Reasoning)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"hint": hint})
}

func (a *API) handleSetGroup(w http.ResponseWriter, r *http.Request, user *domain.UserProfile) {
	var payload struct {
		Group string `json:"group"`
	}
	if !decode(w, r, &payload) {
		return
	}
	student, err := a.workspace.SetGroup(r.Context(), user, r.PathValue("id"), payload.Group)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

// --- quiz flow ---

func (a *API) handleStartQuiz(w http.ResponseWriter, r *http.Request, user *domain.UserProfile) {
	status, err := a.flows.Start(r.Context(), user, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *API) handleQuizAnswer(w http.ResponseWriter, r *http.Request, user *domain.UserProfile) {
	var payload struct {
		Index int    `json:"index"`
		Value string `json:"value"`
	}
	if !decode(w, r, &payload) {
		return
	}
	status, err := a.flows.Answer(r.Context(), user, r.PathValue("id"), payload.Index, payload.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *API) handleReflectionPrompt(w http.ResponseWriter, r *http.Request, user *domain.UserProfile) {
	prompt, ready, err := a.flows.ReflectionPrompt(user, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prompt": prompt, "ready": ready})
}

func (a *API) handleSubmitReflection(w http.ResponseWriter, r *http.Request, user *domain.UserProfile) {
	var payload struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &payload) {
		return
	}
	status, err := a.flows.SubmitReflection(r.Context(), user, r.PathValue("id"), payload.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (a *API) handleAbortQuiz(w http.ResponseWriter, r *http.Request, user *domain.UserProfile) {
	a.flows.Abort(user, r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// --- instructor monitoring ---

func (a *API) handleStats(w http.ResponseWriter, r *http.Request, _ *domain.UserProfile) {
	stats, err := a.rooms.Stats(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleStudents(w http.ResponseWriter, r *http.Request, _ *domain.UserProfile) {
	students, err := a.rooms.Students(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

func (a *API) handlePurgeStudents(w http.ResponseWriter, r *http.Request, _ *domain.UserProfile) {
	if _, err := a.rooms.PurgeStudents(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ---

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyJoined),
		errors.Is(err, domain.ErrFlowFinished),
		errors.Is(err, domain.ErrWrongState):
		return http.StatusConflict
	case errors.Is(err, domain.ErrMissingCredential),
		errors.Is(err, domain.ErrEmptyAnswer),
		errors.Is(err, domain.ErrInvalidOption),
		errors.Is(err, domain.ErrEmptyReflection):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrStudentNotFound),
		errors.Is(err, domain.ErrChallengeNotFound),
		errors.Is(err, domain.ErrFieldNotFound),
		errors.Is(err, domain.ErrFlowNotStarted):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
