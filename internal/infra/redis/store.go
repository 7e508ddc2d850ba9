// Package redis implements the game stores, the quiz snapshot cache, and
// the room channel on Redis. Per-row writes are atomic (single keys, hash
// fields); nothing here is transactional across rows, matching the
// single-writer-per-field discipline of the state machines.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"quizparty/internal/domain"
)

// Store is a Redis-backed implementation of the session, participant, and
// answer stores.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	rnd    *rand.Rand
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func sessionKey(id string) string             { return "session:" + id }
func codeKey(code string) string              { return "roomcode:" + code }
func participantsKey(sessionID string) string { return "session:" + sessionID + ":participants" }
func usersKey(sessionID string) string        { return "session:" + sessionID + ":users" }
func answersKey(sessionID string, idx int) string {
	return fmt.Sprintf("session:%s:answers:%d", sessionID, idx)
}

// GenerateRoomCode reserves a 4-digit code with SETNX so uniqueness among
// active sessions is enforced server-side, not by the caller.
func (s *Store) GenerateRoomCode(ctx context.Context) (string, error) {
	for i := 0; i < 100; i++ {
		code := fmt.Sprintf("%04d", s.rnd.Intn(10000))
		ok, err := s.client.SetNX(ctx, codeKey(code), "reserved", s.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("reserve room code: %w", err)
		}
		if ok {
			return code, nil
		}
	}
	return "", fmt.Errorf("room codes exhausted")
}

func (s *Store) ReleaseRoomCode(ctx context.Context, code string) error {
	return s.client.Del(ctx, codeKey(code)).Err()
}

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.Set(ctx, sessionKey(session.ID), raw, s.ttl)
	pipe.Set(ctx, codeKey(session.RoomCode), session.ID, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *Store) GetSessionByCode(ctx context.Context, code string) (*domain.Session, error) {
	id, err := s.client.Get(ctx, codeKey(code)).Result()
	if err == redis.Nil || id == "reserved" {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve room code: %w", err)
	}
	return s.GetSession(ctx, id)
}

func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.Set(ctx, sessionKey(session.ID), raw, redis.KeepTTL).Err()
}

func (s *Store) AddParticipant(ctx context.Context, p *domain.Participant) error {
	added, err := s.client.SAdd(ctx, usersKey(p.SessionID), p.UserID).Result()
	if err != nil {
		return fmt.Errorf("join guard: %w", err)
	}
	if added == 0 {
		return domain.ErrAlreadyJoined
	}
	if err := s.writeParticipant(ctx, p); err != nil {
		return err
	}
	return s.client.Expire(ctx, usersKey(p.SessionID), s.ttl).Err()
}

func (s *Store) writeParticipant(ctx context.Context, p *domain.Participant) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal participant: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, participantsKey(p.SessionID), p.ID, raw)
	pipe.Expire(ctx, participantsKey(p.SessionID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write participant: %w", err)
	}
	return nil
}

func (s *Store) GetParticipant(ctx context.Context, sessionID, participantID string) (*domain.Participant, error) {
	raw, err := s.client.HGet(ctx, participantsKey(sessionID), participantID).Result()
	if err == redis.Nil {
		return nil, domain.ErrParticipantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}
	var p domain.Participant
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("unmarshal participant: %w", err)
	}
	return &p, nil
}

func (s *Store) ListParticipants(ctx context.Context, sessionID string) ([]*domain.Participant, error) {
	rows, err := s.client.HGetAll(ctx, participantsKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	out := make([]*domain.Participant, 0, len(rows))
	for _, raw := range rows {
		var p domain.Participant
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			continue
		}
		out = append(out, &p)
	}
	return out, nil
}

func (s *Store) UpdateParticipant(ctx context.Context, p *domain.Participant) error {
	return s.writeParticipant(ctx, p)
}

func (s *Store) RemoveParticipant(ctx context.Context, sessionID, participantID string) error {
	p, err := s.GetParticipant(ctx, sessionID, participantID)
	if err != nil {
		return err
	}
	pipe := s.client.Pipeline()
	pipe.HDel(ctx, participantsKey(sessionID), participantID)
	pipe.SRem(ctx, usersKey(sessionID), p.UserID)
	_, err = pipe.Exec(ctx)
	return err
}

// SaveAnswer enforces at most one answer per (participant, question) with
// HSETNX, so repeats and late duplicates are rejected atomically.
func (s *Store) SaveAnswer(ctx context.Context, a *domain.ParticipantAnswer) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}
	key := answersKey(a.SessionID, a.QuestionIndex)
	set, err := s.client.HSetNX(ctx, key, a.ParticipantID, raw).Result()
	if err != nil {
		return fmt.Errorf("save answer: %w", err)
	}
	if !set {
		return domain.ErrAnswerExists
	}
	return s.client.Expire(ctx, key, s.ttl).Err()
}

// RecordResult overwrites the row once with the host's scored fields.
func (s *Store) RecordResult(ctx context.Context, a *domain.ParticipantAnswer) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}
	return s.client.HSet(ctx, answersKey(a.SessionID, a.QuestionIndex), a.ParticipantID, raw).Err()
}

func (s *Store) ListAnswers(ctx context.Context, sessionID string, questionIndex int) ([]*domain.ParticipantAnswer, error) {
	rows, err := s.client.HGetAll(ctx, answersKey(sessionID, questionIndex)).Result()
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	out := make([]*domain.ParticipantAnswer, 0, len(rows))
	for _, raw := range rows {
		var a domain.ParticipantAnswer
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			continue
		}
		out = append(out, &a)
	}
	return out, nil
}
