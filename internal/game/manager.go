package game

import (
	"context"
	"log"
	"sync"

	"quizparty/internal/domain"
	"quizparty/internal/realtime"
)

// Manager owns the running Host instances in this process, one per session.
// It exists so several games can run concurrently without any package-level
// state.
type Manager struct {
	sessions     SessionStore
	participants ParticipantStore
	answers      AnswerStore
	channels     realtime.Factory
	cfg          HostConfig

	mu    sync.Mutex
	hosts map[string]*Host
}

func NewManager(sessions SessionStore, participants ParticipantStore, answers AnswerStore, channels realtime.Factory, cfg HostConfig) *Manager {
	return &Manager{
		sessions:     sessions,
		participants: participants,
		answers:      answers,
		channels:     channels,
		cfg:          cfg,
		hosts:        make(map[string]*Host),
	}
}

// Channel returns the room channel for a session.
func (m *Manager) Channel(sessionID string) realtime.Channel {
	return m.channels(sessionID)
}

// Host returns the running host for a session, creating and starting its
// loop on first use. The loop runs until the game finishes.
func (m *Manager) Host(ctx context.Context, sessionID string) *Host {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.hosts[sessionID]; ok {
		return h
	}
	h := NewHost(sessionID, m.sessions, m.participants, m.answers, m.channels(sessionID), m.cfg)
	m.hosts[sessionID] = h
	go func() {
		if err := h.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("host %s: run ended: %v", sessionID, err)
		}
		m.mu.Lock()
		delete(m.hosts, sessionID)
		m.mu.Unlock()
	}()
	return h
}

// Running reports whether a host loop exists for the session.
func (m *Manager) Running(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.hosts[sessionID]
	return ok
}

// NewPlayer builds a player runtime bound to the session's room channel.
func (m *Manager) NewPlayer(session *domain.Session, participant *domain.Participant) *Player {
	return NewPlayer(session, participant, m.answers, m.channels(session.ID))
}
