package domain

import "sort"

// Role distinguishes learners (mahasiswa) from instructors (dosen).
type Role string

const (
	RoleLearner    Role = "mahasiswa"
	RoleInstructor Role = "dosen"
)

// QuestionType enumerates the supported fact-test question forms.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "pg"
	QuestionBoolean        QuestionType = "boolean"
	QuestionShortAnswer    QuestionType = "isian"
	QuestionPhoto          QuestionType = "foto"
)

// Status marks whether a student is currently active in a room.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// DefaultGroup is the cohort label applied when a learner has not set one.
const DefaultGroup = "Tanpa Kelompok"

// UserProfile is an identity record. ID is a generated opaque identifier;
// Name is a display attribute and carries no uniqueness guarantee.
type UserProfile struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Role         Role                `json:"role"`
	PasswordHash string              `json:"-"`
	JoinedCodes  map[string]struct{} `json:"-"`
}

// HasJoined reports whether the profile already holds the given room code.
func (u *UserProfile) HasJoined(code string) bool {
	_, ok := u.JoinedCodes[code]
	return ok
}

// Join adds a room code to the joined set. Adding an existing code is a no-op.
func (u *UserProfile) Join(code string) {
	if u.JoinedCodes == nil {
		u.JoinedCodes = make(map[string]struct{})
	}
	u.JoinedCodes[code] = struct{}{}
}

// JoinedCodeList returns the joined room codes in stable order.
func (u *UserProfile) JoinedCodeList() []string {
	codes := make([]string, 0, len(u.JoinedCodes))
	for code := range u.JoinedCodes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (u *UserProfile) Clone() *UserProfile {
	cp := *u
	cp.JoinedCodes = make(map[string]struct{}, len(u.JoinedCodes))
	for code := range u.JoinedCodes {
		cp.JoinedCodes[code] = struct{}{}
	}
	return &cp
}

// WorkspaceField is one free-text input inside a challenge workspace.
type WorkspaceField struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Challenge is an open-ended reasoning prompt with its workspace fields.
type Challenge struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Problem         string           `json:"problem"`
	WorkspaceFields []WorkspaceField `json:"workspaceFields"`
}

// Question is a fact-test item. Correct holds the answer key; comparison
// against submissions is case-insensitive and whitespace-trimmed.
type Question struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Text    string       `json:"text"`
	Options []string     `json:"options,omitempty"`
	Correct string       `json:"correct,omitempty"`
}

// Tier classifies a cohort average into a display band. Ranges are
// instructor-defined and may overlap; lookup is first-match in order.
type Tier struct {
	Label   string `json:"label"`
	Min     int    `json:"min"`
	Max     int    `json:"max"`
	Styling string `json:"styling,omitempty"`
}

// TierUnset is the fallback when no configured tier contains an average.
var TierUnset = Tier{Label: "UNSET"}

// DefaultTiers mirrors the stock monitoring bands instructors start from.
func DefaultTiers() []Tier {
	return []Tier{
		{Label: "EXCELLENT GROWTH", Min: 81, Max: 100, Styling: "purple"},
		{Label: "SOLID PROGRESS", Min: 51, Max: 80, Styling: "blue"},
		{Label: "NEED SCAFFOLDING", Min: 0, Max: 50, Styling: "red"},
	}
}

// Room is a virtual class: reasoning challenges plus a fact-test instrument.
type Room struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Code       string      `json:"code"`
	Subject    string      `json:"subject"`
	Challenges []Challenge `json:"challenges"`
	Questions  []Question  `json:"questions"`
	Tiers      []Tier      `json:"tiers,omitempty"`
}

// Clone deep-copies the room so stored state cannot be aliased by callers.
func (r Room) Clone() Room {
	cp := r
	cp.Challenges = make([]Challenge, len(r.Challenges))
	for i, ch := range r.Challenges {
		ch.WorkspaceFields = append([]WorkspaceField(nil), ch.WorkspaceFields...)
		cp.Challenges[i] = ch
	}
	cp.Questions = make([]Question, len(r.Questions))
	for i, q := range r.Questions {
		q.Options = append([]string(nil), q.Options...)
		cp.Questions[i] = q
	}
	cp.Tiers = append([]Tier(nil), r.Tiers...)
	return cp
}

// WithoutAnswerKey returns a copy safe to hand to learners.
func (r Room) WithoutAnswerKey() Room {
	cp := r
	cp.Questions = make([]Question, len(r.Questions))
	for i, q := range r.Questions {
		q.Correct = ""
		cp.Questions[i] = q
	}
	return cp
}

// StudentKey identifies the one StudentData row per (learner, room) pair.
type StudentKey struct {
	StudentID string
	RoomID    string
}

// StudentData is a learner's accumulated work inside one room. Rows survive
// deletion of the owning room; instructors keep them as history.
type StudentData struct {
	StudentID        string                       `json:"studentId"`
	Name             string                       `json:"name"`
	RoomID           string                       `json:"roomId"`
	Group            string                       `json:"group"`
	ChallengeAnswers map[string]map[string]string `json:"challengeAnswers"`
	FactAnswers      []string                     `json:"factAnswers"`
	Reflections      []string                     `json:"reflections"`
	Score            int                          `json:"score"`
	Status           Status                       `json:"status"`
}

// NewStudentData builds a defaulted row for a (learner, room) pair.
func NewStudentData(key StudentKey, name string) *StudentData {
	return &StudentData{
		StudentID:        key.StudentID,
		Name:             name,
		RoomID:           key.RoomID,
		Group:            DefaultGroup,
		ChallengeAnswers: make(map[string]map[string]string),
		FactAnswers:      []string{},
		Reflections:      []string{},
		Status:           StatusActive,
	}
}

// Key returns the row's identity pair.
func (s *StudentData) Key() StudentKey {
	return StudentKey{StudentID: s.StudentID, RoomID: s.RoomID}
}

// Clone deep-copies the row.
func (s *StudentData) Clone() *StudentData {
	cp := *s
	cp.ChallengeAnswers = make(map[string]map[string]string, len(s.ChallengeAnswers))
	for ch, fields := range s.ChallengeAnswers {
		inner := make(map[string]string, len(fields))
		for f, v := range fields {
			inner[f] = v
		}
		cp.ChallengeAnswers[ch] = inner
	}
	cp.FactAnswers = append([]string(nil), s.FactAnswers...)
	cp.Reflections = append([]string(nil), s.Reflections...)
	return &cp
}

// StudentPatch is a partial update merged over an existing row. Nil fields
// are left untouched, so call sites cannot accidentally blank each other's
// writes the way whole-record replacement would.
type StudentPatch struct {
	Name             *string
	Group            *string
	Status           *Status
	Score            *int
	FactAnswers      []string
	AppendReflection *string
	ChallengeAnswer  *ChallengeAnswerPatch
}

// ChallengeAnswerPatch upserts one workspace field value.
type ChallengeAnswerPatch struct {
	ChallengeID string
	FieldID     string
	Value       string
}

// Apply merges the patch into the row in place.
func (p StudentPatch) Apply(s *StudentData) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Group != nil {
		g := *p.Group
		if g == "" {
			g = DefaultGroup
		}
		s.Group = g
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.Score != nil {
		s.Score = *p.Score
	}
	if p.FactAnswers != nil {
		s.FactAnswers = append([]string(nil), p.FactAnswers...)
	}
	if p.AppendReflection != nil {
		s.Reflections = append(s.Reflections, *p.AppendReflection)
	}
	if p.ChallengeAnswer != nil {
		if s.ChallengeAnswers == nil {
			s.ChallengeAnswers = make(map[string]map[string]string)
		}
		ca := p.ChallengeAnswer
		if s.ChallengeAnswers[ca.ChallengeID] == nil {
			s.ChallengeAnswers[ca.ChallengeID] = make(map[string]string)
		}
		s.ChallengeAnswers[ca.ChallengeID][ca.FieldID] = ca.Value
	}
}

// GroupStat accumulates scores for one cohort inside a room.
type GroupStat struct {
	Sum   int `json:"-"`
	Count int `json:"count"`
}

// Average is the cohort mean, zero for an empty cohort.
func (g GroupStat) Average() int {
	if g.Count == 0 {
		return 0
	}
	return g.Sum / g.Count
}
