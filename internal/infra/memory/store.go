// Package memory provides in-process implementations of the game stores and
// the room channel, used when no Redis is configured and throughout tests.
package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"quizparty/internal/domain"
)

// Store implements game.SessionStore, game.ParticipantStore, and
// game.AnswerStore on maps.
type Store struct {
	mu           sync.RWMutex
	sessions     map[string]*domain.Session
	byCode       map[string]string // active room code -> session id
	participants map[string]map[string]*domain.Participant
	answers      map[string]map[string]*domain.ParticipantAnswer // answerKey -> row
	joined       map[string]struct{}                             // session|user guard
	rnd          *rand.Rand
}

func NewStore() *Store {
	return &Store{
		sessions:     make(map[string]*domain.Session),
		byCode:       make(map[string]string),
		participants: make(map[string]map[string]*domain.Participant),
		answers:      make(map[string]map[string]*domain.ParticipantAnswer),
		joined:       make(map[string]struct{}),
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GenerateRoomCode mints a 4-digit code unique among active sessions.
func (s *Store) GenerateRoomCode(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < 10000; i++ {
		code := fmt.Sprintf("%04d", s.rnd.Intn(10000))
		if _, taken := s.byCode[code]; !taken {
			s.byCode[code] = ""
			return code, nil
		}
	}
	return "", fmt.Errorf("room codes exhausted")
}

func (s *Store) ReleaseRoomCode(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byCode, code)
	return nil
}

func (s *Store) CreateSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.sessions[session.ID] = &cp
	s.byCode[session.RoomCode] = session.ID
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *session
	return &cp, nil
}

func (s *Store) GetSessionByCode(_ context.Context, code string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCode[code]
	if !ok || id == "" {
		return nil, domain.ErrSessionNotFound
	}
	cp := *s.sessions[id]
	return &cp, nil
}

func (s *Store) UpdateSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *Store) AddParticipant(_ context.Context, p *domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	guard := p.SessionID + "|" + p.UserID
	if _, ok := s.joined[guard]; ok {
		return domain.ErrAlreadyJoined
	}
	if s.participants[p.SessionID] == nil {
		s.participants[p.SessionID] = make(map[string]*domain.Participant)
	}
	cp := *p
	s.participants[p.SessionID][p.ID] = &cp
	s.joined[guard] = struct{}{}
	return nil
}

func (s *Store) GetParticipant(_ context.Context, sessionID, participantID string) (*domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[sessionID][participantID]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ListParticipants(_ context.Context, sessionID string) ([]*domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.participants[sessionID]
	out := make([]*domain.Participant, 0, len(rows))
	for _, p := range rows {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) UpdateParticipant(_ context.Context, p *domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[p.SessionID][p.ID]; !ok {
		return domain.ErrParticipantNotFound
	}
	cp := *p
	s.participants[p.SessionID][p.ID] = &cp
	return nil
}

func (s *Store) RemoveParticipant(_ context.Context, sessionID, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[sessionID][participantID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	delete(s.participants[sessionID], participantID)
	delete(s.joined, sessionID+"|"+p.UserID)
	return nil
}

func answerKey(sessionID string, questionIndex int, participantID string) string {
	return fmt.Sprintf("%s|%d|%s", sessionID, questionIndex, participantID)
}

func (s *Store) SaveAnswer(_ context.Context, a *domain.ParticipantAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := answerKey(a.SessionID, a.QuestionIndex, a.ParticipantID)
	if s.answers[a.SessionID] == nil {
		s.answers[a.SessionID] = make(map[string]*domain.ParticipantAnswer)
	}
	if _, ok := s.answers[a.SessionID][key]; ok {
		return domain.ErrAnswerExists
	}
	cp := *a
	s.answers[a.SessionID][key] = &cp
	return nil
}

func (s *Store) RecordResult(_ context.Context, a *domain.ParticipantAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := answerKey(a.SessionID, a.QuestionIndex, a.ParticipantID)
	if _, ok := s.answers[a.SessionID][key]; !ok {
		return domain.ErrParticipantNotFound
	}
	cp := *a
	s.answers[a.SessionID][key] = &cp
	return nil
}

func (s *Store) ListAnswers(_ context.Context, sessionID string, questionIndex int) ([]*domain.ParticipantAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.ParticipantAnswer, 0)
	for _, a := range s.answers[sessionID] {
		if a.QuestionIndex == questionIndex {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}
