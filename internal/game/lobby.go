package game

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"quizparty/internal/domain"
	"quizparty/internal/modes"
)

// roomCodeRe is the join-side validation for room codes: exactly 4 digits.
var roomCodeRe = regexp.MustCompile(`^[0-9]{4}$`)

// ValidRoomCode reports whether code is a well-formed room code.
func ValidRoomCode(code string) bool {
	return roomCodeRe.MatchString(code)
}

// LobbyConfig tunes pre-game behavior.
type LobbyConfig struct {
	// SessionTTL is how long a session stays joinable before it expires.
	SessionTTL time.Duration
	// DefaultTimeLimit is the per-question answer window when the host
	// does not configure one.
	DefaultTimeLimit time.Duration
}

// Lobby coordinates pre-game session lifecycle: create, join, leave, kick.
// Once a game starts the Host takes over.
type Lobby struct {
	sessions     SessionStore
	participants ParticipantStore
	quizzes      QuizRepository
	cfg          LobbyConfig
	clock        Clock
	newID        func() string
}

func NewLobby(sessions SessionStore, participants ParticipantStore, quizzes QuizRepository, cfg LobbyConfig) *Lobby {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.DefaultTimeLimit <= 0 {
		cfg.DefaultTimeLimit = 20 * time.Second
	}
	return &Lobby{
		sessions:     sessions,
		participants: participants,
		quizzes:      quizzes,
		cfg:          cfg,
		clock:        time.Now,
		newID:        uuid.NewString,
	}
}

// WithClock swaps the time source, for deterministic tests.
func (l *Lobby) WithClock(clock Clock) *Lobby {
	l.clock = clock
	return l
}

// CreateSessionInput describes a new game to set up.
type CreateSessionInput struct {
	QuizID     string
	ModeID     string
	ModeConfig map[string]int
	HostUserID string
	HostName   string
	HostAvatar string
	TimeLimit  time.Duration
}

// CreateSession snapshots the quiz, mints a room code, and persists the
// session with its host participant.
func (l *Lobby) CreateSession(ctx context.Context, in CreateSessionInput) (*domain.Session, *domain.Participant, error) {
	if _, ok := modes.Get(in.ModeID); !ok {
		return nil, nil, fmt.Errorf("unknown game mode %q", in.ModeID)
	}
	quiz, err := l.quizzes.GetQuiz(ctx, in.QuizID)
	if err != nil {
		return nil, nil, err
	}
	code, err := l.sessions.GenerateRoomCode(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("generate room code: %w", err)
	}

	now := l.clock()
	timeLimit := in.TimeLimit
	if timeLimit <= 0 {
		timeLimit = l.cfg.DefaultTimeLimit
	}
	hostID := l.newID()
	session := &domain.Session{
		ID:                l.newID(),
		RoomCode:          code,
		QuizID:            in.QuizID,
		HostParticipantID: hostID,
		ModeID:            in.ModeID,
		ModeConfig:        in.ModeConfig,
		Status:            domain.SessionLobby,
		TimeLimit:         timeLimit,
		CreatedAt:         now,
		ExpiresAt:         now.Add(l.cfg.SessionTTL),
		Snapshot:          quiz,
	}
	if err := l.sessions.CreateSession(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	host := &domain.Participant{
		ID:          hostID,
		SessionID:   session.ID,
		UserID:      in.HostUserID,
		DisplayName: in.HostName,
		AvatarID:    in.HostAvatar,
		JoinedAt:    now,
		LastSeenAt:  now,
		Connected:   true,
		ModeData:    modes.InitialModeData(in.ModeID, in.ModeConfig),
	}
	if err := l.participants.AddParticipant(ctx, host); err != nil {
		return nil, nil, fmt.Errorf("add host participant: %w", err)
	}
	return session, host, nil
}

// JoinInput identifies who is joining which room.
type JoinInput struct {
	RoomCode    string
	UserID      string
	DisplayName string
	AvatarID    string
}

// Join adds a participant to a lobby-phase session. A repeat join by the
// same user is rejected, not treated as an update.
func (l *Lobby) Join(ctx context.Context, in JoinInput) (*domain.Session, *domain.Participant, error) {
	if !ValidRoomCode(in.RoomCode) {
		return nil, nil, domain.ErrInvalidRoomCode
	}
	session, err := l.sessions.GetSessionByCode(ctx, in.RoomCode)
	if err != nil {
		return nil, nil, err
	}
	if session.Status != domain.SessionLobby {
		return nil, nil, domain.ErrSessionNotJoinable
	}
	if l.clock().After(session.ExpiresAt) {
		return nil, nil, domain.ErrSessionNotJoinable
	}
	if m, ok := modes.Get(session.ModeID); ok && m.MaxPlayers > 0 {
		existing, err := l.participants.ListParticipants(ctx, session.ID)
		if err != nil {
			return nil, nil, err
		}
		active := 0
		for _, p := range existing {
			if p.Active() {
				active++
			}
		}
		if active >= m.MaxPlayers {
			return nil, nil, domain.ErrSessionFull
		}
	}

	now := l.clock()
	participant := &domain.Participant{
		ID:          l.newID(),
		SessionID:   session.ID,
		UserID:      in.UserID,
		DisplayName: in.DisplayName,
		AvatarID:    in.AvatarID,
		JoinedAt:    now,
		LastSeenAt:  now,
		Connected:   true,
		ModeData:    modes.InitialModeData(session.ModeID, session.ModeConfig),
	}
	if err := l.participants.AddParticipant(ctx, participant); err != nil {
		return nil, nil, err
	}
	return session, participant, nil
}

// Leave removes a participant pre-game; mid-game it only marks the player
// disconnected so historical answers keep their owner.
func (l *Lobby) Leave(ctx context.Context, sessionID, participantID string) error {
	session, err := l.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status == domain.SessionLobby {
		return l.participants.RemoveParticipant(ctx, sessionID, participantID)
	}
	p, err := l.participants.GetParticipant(ctx, sessionID, participantID)
	if err != nil {
		return err
	}
	p.Connected = false
	p.LastSeenAt = l.clock()
	return l.participants.UpdateParticipant(ctx, p)
}

// Kick soft-marks a participant as kicked. Host-only. The kicked player's
// answers remain; it is simply excluded from future rounds and leaderboards.
func (l *Lobby) Kick(ctx context.Context, sessionID, byParticipantID, targetID string) error {
	session, err := l.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.HostParticipantID != byParticipantID {
		return domain.ErrNotHost
	}
	target, err := l.participants.GetParticipant(ctx, sessionID, targetID)
	if err != nil {
		return err
	}
	target.Kicked = true
	target.LastSeenAt = l.clock()
	return l.participants.UpdateParticipant(ctx, target)
}

// AuthorizeHost verifies that participantID is the session's host before a
// host-only surface is handed out.
func (l *Lobby) AuthorizeHost(ctx context.Context, sessionID, participantID string) error {
	session, err := l.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.HostParticipantID != participantID {
		return domain.ErrNotHost
	}
	return nil
}

// SetModeChoice records a player's pre-round mode decision (bet, bid, or
// difficulty). Valid until the game finishes; the next scoring pass reads it.
func (l *Lobby) SetModeChoice(ctx context.Context, sessionID, participantID string, choice modes.Choice) error {
	session, err := l.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status == domain.SessionFinished || session.Status == domain.SessionAbandoned {
		return domain.ErrSessionNotJoinable
	}
	p, err := l.participants.GetParticipant(ctx, sessionID, participantID)
	if err != nil {
		return err
	}
	if !p.Active() {
		return domain.ErrParticipantNotFound
	}
	data, err := modes.ApplyChoice(session.ModeID, p.ModeData, choice)
	if err != nil {
		return err
	}
	p.ModeData = data
	p.LastSeenAt = l.clock()
	return l.participants.UpdateParticipant(ctx, p)
}

// UpdateStatus moves a session along its one-directional lifecycle. A
// transition to a terminal status also releases the room code.
func (l *Lobby) UpdateStatus(ctx context.Context, sessionID string, next domain.SessionStatus) error {
	session, err := l.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.Status.CanTransition(next) {
		return domain.ErrInvalidTransition
	}
	session.Status = next
	if err := l.sessions.UpdateSession(ctx, session); err != nil {
		return err
	}
	if next == domain.SessionFinished || next == domain.SessionAbandoned {
		return l.sessions.ReleaseRoomCode(ctx, session.RoomCode)
	}
	return nil
}

// Abandon marks a session abandoned, releasing its room code. Reachable
// from any non-terminal state; abandoning twice is a no-op.
func (l *Lobby) Abandon(ctx context.Context, sessionID string) error {
	err := l.UpdateStatus(ctx, sessionID, domain.SessionAbandoned)
	if errors.Is(err, domain.ErrInvalidTransition) {
		return nil
	}
	return err
}
