package domain

import "time"

// SessionStatus tracks where a game session is in its lifecycle.
// Transitions are one-directional: lobby -> starting -> in_progress ->
// finished, with abandoned reachable from any state.
type SessionStatus string

const (
	SessionLobby      SessionStatus = "lobby"
	SessionStarting   SessionStatus = "starting"
	SessionInProgress SessionStatus = "in_progress"
	SessionFinished   SessionStatus = "finished"
	SessionAbandoned  SessionStatus = "abandoned"
)

var statusRank = map[SessionStatus]int{
	SessionLobby:      0,
	SessionStarting:   1,
	SessionInProgress: 2,
	SessionFinished:   3,
}

// CanTransition reports whether moving from s to next respects the
// one-directional lifecycle. Abandoned is reachable from any non-terminal
// state; terminal states never transition.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	if s == SessionFinished || s == SessionAbandoned {
		return false
	}
	if next == SessionAbandoned {
		return true
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to > from
}

// Session is one multiplayer game instance, joinable by room code.
// The quiz snapshot is captured at creation so edits to the source quiz
// never affect a running game.
type Session struct {
	ID                string         `json:"id"`
	RoomCode          string         `json:"roomCode"`
	QuizID            string         `json:"quizId"`
	HostParticipantID string         `json:"hostParticipantId"`
	ModeID            string         `json:"modeId"`
	ModeConfig        map[string]int `json:"modeConfig,omitempty"`
	Status            SessionStatus  `json:"status"`
	CurrentQuestion   int            `json:"currentQuestion"`
	QuestionStartedAt *time.Time     `json:"questionStartedAt,omitempty"`
	TimeLimit         time.Duration  `json:"timeLimit"`
	CreatedAt         time.Time      `json:"createdAt"`
	StartedAt         *time.Time     `json:"startedAt,omitempty"`
	FinishedAt        *time.Time     `json:"finishedAt,omitempty"`
	ExpiresAt         time.Time      `json:"expiresAt"`
	Snapshot          Quiz           `json:"snapshot"`
}

// Question returns the question at index, or false when the index is out of
// range (no question available).
func (s *Session) Question(index int) (Question, bool) {
	if index < 0 || index >= len(s.Snapshot.Questions) {
		return Question{}, false
	}
	return s.Snapshot.Questions[index], true
}

// LastQuestion reports whether index is the final question of the snapshot.
func (s *Session) LastQuestion(index int) bool {
	return index >= len(s.Snapshot.Questions)-1
}

// Participant is one player's presence and progress within a session.
// Kicked participants are soft-removed: excluded from broadcasts and
// leaderboards, but their answers stay for scoring integrity.
type Participant struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	AvatarID    string    `json:"avatarId,omitempty"`
	JoinedAt    time.Time `json:"joinedAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
	Connected   bool      `json:"connected"`
	Kicked      bool      `json:"kicked"`
	Score       int       `json:"score"`
	Streak      int       `json:"streak"`
	MaxStreak   int       `json:"maxStreak"`
	TimeSpentMs int64     `json:"timeSpentMs"`
	ModeData    ModeData  `json:"modeData"`
	TeamID      string    `json:"teamId,omitempty"`
	FinalRank   int       `json:"finalRank,omitempty"`
}

// Active reports whether the participant counts toward rounds and
// leaderboards.
func (p *Participant) Active() bool {
	return !p.Kicked
}

// ParticipantAnswer is one submitted response to one question. A player
// writes the selection and elapsed time; the host fills in correctness,
// points, and the streak held at answer time during its scoring pass.
// After that pass the row is never touched again.
type ParticipantAnswer struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"sessionId"`
	ParticipantID string    `json:"participantId"`
	QuestionIndex int       `json:"questionIndex"`
	QuestionID    string    `json:"questionId"`
	OptionIDs     []string  `json:"optionIds,omitempty"`
	FreeText      string    `json:"freeText,omitempty"`
	Correct       bool      `json:"correct"`
	TimeTakenMs   int64     `json:"timeTakenMs"`
	SubmittedAt   time.Time `json:"submittedAt"`
	Points        int       `json:"points"`
	StreakAtTime  int       `json:"streakAtTime"`
}

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models a question within a quiz snapshot. MultiSelect questions
// require the full set of correct options to count as correct.
type Question struct {
	ID          string   `json:"id"`
	Prompt      string   `json:"prompt"`
	Options     []Option `json:"options"`
	MultiSelect bool     `json:"multiSelect,omitempty"`
}

// CorrectOptionIDs returns the ids of every option flagged correct.
func (q Question) CorrectOptionIDs() []string {
	ids := make([]string, 0, 1)
	for _, opt := range q.Options {
		if opt.Correct {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

// Evaluate reports whether the selected options answer the question
// correctly. Single-choice questions accept exactly one correct selection;
// multi-select questions require set equality with the correct options.
func (q Question) Evaluate(selected []string) bool {
	correct := q.CorrectOptionIDs()
	if len(correct) == 0 || len(selected) == 0 {
		return false
	}
	if !q.MultiSelect {
		return len(selected) == 1 && selected[0] == correct[0]
	}
	if len(selected) != len(correct) {
		return false
	}
	want := make(map[string]struct{}, len(correct))
	for _, id := range correct {
		want[id] = struct{}{}
	}
	for _, id := range selected {
		if _, ok := want[id]; !ok {
			return false
		}
	}
	return true
}

// Quiz is the immutable content snapshot captured when a session is created.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title,omitempty"`
	Questions []Question `json:"questions"`
}
