package domain

import (
	"encoding/json"
	"time"
)

// EventType tags a RealtimeEvent payload.
type EventType string

const (
	EventQuestionRevealed    EventType = "question_revealed"
	EventRoundStarted        EventType = "round_started"
	EventResultsShown        EventType = "results_shown"
	EventParticipantAnswered EventType = "participant_answered"
	EventGameFinished        EventType = "game_finished"
	EventGameEndedEarly      EventType = "game_ended_early"

	// Host-originated events outside the core round cycle use the host: namespace.
	EventGameStarting      EventType = "host:game_starting"
	EventParticipantKicked EventType = "host:participant_kicked"
)

// RealtimeEvent is the discriminated message broadcast over the channel.
// Transient: relayed at most to currently subscribed listeners.
type RealtimeEvent struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// NewEvent marshals data into an event envelope. Marshal failures produce an
// empty payload rather than an error; broadcasts are fire-and-forget.
func NewEvent(t EventType, data any, now time.Time) RealtimeEvent {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = nil
	}
	return RealtimeEvent{Type: t, Data: raw, Timestamp: now.UnixMilli()}
}

// DecodeData unmarshals the payload into v.
func (e RealtimeEvent) DecodeData(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// OptionView is an option stripped of its correctness flag, safe to send to
// players before results.
type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionView is the player-facing shape of a question.
type QuestionView struct {
	ID          string       `json:"id"`
	Prompt      string       `json:"prompt"`
	Options     []OptionView `json:"options"`
	MultiSelect bool         `json:"multiSelect,omitempty"`
}

// ViewOf strips answer information from a snapshot question.
func ViewOf(q Question) QuestionView {
	opts := make([]OptionView, len(q.Options))
	for i, o := range q.Options {
		opts[i] = OptionView{ID: o.ID, Text: o.Text}
	}
	return QuestionView{ID: q.ID, Prompt: q.Prompt, Options: opts, MultiSelect: q.MultiSelect}
}

// GameStartingData announces the pre-game countdown.
type GameStartingData struct {
	CountdownSeconds int `json:"countdownSeconds"`
}

// QuestionRevealedData carries the next question, its time limit, and the
// mode's reveal pattern.
type QuestionRevealedData struct {
	Index         int          `json:"index"`
	Question      QuestionView `json:"question"`
	TimeLimitMs   int64        `json:"timeLimitMs"`
	RevealPattern string       `json:"revealPattern"`
}

// RoundStartedData marks the opening of the answer window.
type RoundStartedData struct {
	Index       int   `json:"index"`
	StartedAtMs int64 `json:"startedAtMs"`
}

// AnswerView is one scored answer within a results broadcast.
type AnswerView struct {
	ParticipantID string   `json:"participantId"`
	DisplayName   string   `json:"displayName"`
	OptionIDs     []string `json:"optionIds,omitempty"`
	Correct       bool     `json:"correct"`
	TimeTakenMs   int64    `json:"timeTakenMs"`
	Points        int      `json:"points"`
	Streak        int      `json:"streak"`
	TotalScore    int      `json:"totalScore"`
}

// ResultsShownData carries the scored answers for a round.
type ResultsShownData struct {
	Index            int                `json:"index"`
	CorrectOptionIDs []string           `json:"correctOptionIds"`
	Answers          []AnswerView       `json:"answers"`
	Leaderboard      []LeaderboardEntry `json:"leaderboard"`
}

// ParticipantAnsweredData signals that a participant has locked in an answer.
type ParticipantAnsweredData struct {
	ParticipantID string `json:"participantId"`
	QuestionIndex int    `json:"questionIndex"`
}

// GameFinishedData carries the final leaderboard. The same shape is used for
// both natural completion and early termination; the event tag distinguishes
// them.
type GameFinishedData struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// ParticipantKickedData tells a kicked player's client it is out.
type ParticipantKickedData struct {
	ParticipantID string `json:"participantId"`
}
