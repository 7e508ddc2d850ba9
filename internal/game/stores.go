// Package game contains the lobby lifecycle and the host and player state
// machines. Storage and transport are injected; the package holds no
// package-level state.
package game

import (
	"context"
	"time"

	"quizparty/internal/domain"
)

// SessionStore persists sessions and owns room code generation. Codes are
// unique among non-finished sessions and minted server-side.
type SessionStore interface {
	GenerateRoomCode(ctx context.Context) (string, error)
	ReleaseRoomCode(ctx context.Context, code string) error
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	GetSessionByCode(ctx context.Context, code string) (*domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
}

// ParticipantStore persists participants. AddParticipant must reject a
// second row for the same (session, user) pair with domain.ErrAlreadyJoined.
type ParticipantStore interface {
	AddParticipant(ctx context.Context, p *domain.Participant) error
	GetParticipant(ctx context.Context, sessionID, participantID string) (*domain.Participant, error)
	ListParticipants(ctx context.Context, sessionID string) ([]*domain.Participant, error)
	UpdateParticipant(ctx context.Context, p *domain.Participant) error
	RemoveParticipant(ctx context.Context, sessionID, participantID string) error
}

// AnswerStore persists answers. SaveAnswer must reject a second answer for
// the same (participant, question) pair with domain.ErrAnswerExists;
// RecordResult is the host's one-time completion of the scored fields.
type AnswerStore interface {
	SaveAnswer(ctx context.Context, a *domain.ParticipantAnswer) error
	RecordResult(ctx context.Context, a *domain.ParticipantAnswer) error
	ListAnswers(ctx context.Context, sessionID string, questionIndex int) ([]*domain.ParticipantAnswer, error)
}

// QuizRepository loads quiz content for session snapshots.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Clock is the injected time source; defaults to time.Now.
type Clock func() time.Time
