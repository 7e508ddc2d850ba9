package game

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"quizparty/internal/domain"
	"quizparty/internal/realtime"
)

// PlayerPhase names a state of the player machine.
type PlayerPhase string

const (
	PlayerWaiting   PlayerPhase = "waiting"
	PlayerCountdown PlayerPhase = "countdown"
	PlayerAnswering PlayerPhase = "answering"
	PlayerAnswered  PlayerPhase = "answered"
	PlayerResults   PlayerPhase = "results"
	PlayerFinished  PlayerPhase = "finished"
)

// PlayerState is the player's entire view of the game, derived purely from
// received events and local input. Elapsed time is always recomputed from
// StartedAt rather than accumulated, so render timing cannot drift it.
type PlayerState struct {
	Phase         PlayerPhase
	QuestionIndex int
	Question      *domain.QuestionView
	TimeLimitMs   int64
	RevealPattern string
	Selected      []string
	StartedAt     time.Time
	Results       *domain.ResultsShownData
	Leaderboard   []domain.LeaderboardEntry
	EndedEarly    bool
	Kicked        bool
}

// NewPlayerState is the initial waiting state.
func NewPlayerState() PlayerState {
	return PlayerState{Phase: PlayerWaiting}
}

// Reduce is the pure transition function (state, event) -> state. It holds
// no reference to the network or any clock beyond the now argument, so it
// is testable in isolation.
func Reduce(s PlayerState, ev domain.RealtimeEvent, now time.Time) PlayerState {
	if s.Phase == PlayerFinished {
		return s
	}
	switch ev.Type {
	case domain.EventQuestionRevealed:
		var data domain.QuestionRevealedData
		if err := ev.DecodeData(&data); err != nil {
			return s
		}
		s.Phase = PlayerCountdown
		s.QuestionIndex = data.Index
		s.Question = &data.Question
		s.TimeLimitMs = data.TimeLimitMs
		s.RevealPattern = data.RevealPattern
		s.Selected = nil
		s.Results = nil
	case domain.EventRoundStarted:
		var data domain.RoundStartedData
		if err := ev.DecodeData(&data); err != nil {
			return s
		}
		if s.Question == nil || data.Index != s.QuestionIndex {
			return s
		}
		s.Phase = PlayerAnswering
		s.StartedAt = now
	case domain.EventResultsShown:
		var data domain.ResultsShownData
		if err := ev.DecodeData(&data); err != nil {
			return s
		}
		s.Phase = PlayerResults
		s.Results = &data
		s.Leaderboard = data.Leaderboard
	case domain.EventGameFinished, domain.EventGameEndedEarly:
		var data domain.GameFinishedData
		if err := ev.DecodeData(&data); err != nil {
			return s
		}
		s.Phase = PlayerFinished
		s.Leaderboard = data.Leaderboard
		s.EndedEarly = ev.Type == domain.EventGameEndedEarly
	}
	return s
}

// Select applies a local selection. Single-choice questions replace the
// current selection; multi-select questions toggle membership. Input is
// ignored outside the answering phase.
func Select(s PlayerState, optionID string) PlayerState {
	if s.Phase != PlayerAnswering || s.Question == nil {
		return s
	}
	if !s.Question.MultiSelect {
		s.Selected = []string{optionID}
		return s
	}
	for i, id := range s.Selected {
		if id == optionID {
			s.Selected = append(append([]string(nil), s.Selected[:i]...), s.Selected[i+1:]...)
			return s
		}
	}
	s.Selected = append(append([]string(nil), s.Selected...), optionID)
	return s
}

// Elapsed is the time spent on the current question in ms.
func (s PlayerState) Elapsed(now time.Time) int64 {
	if s.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(s.StartedAt).Milliseconds()
}

// Deadline reports whether the local answer window has closed.
func (s PlayerState) Deadline(now time.Time) bool {
	return s.Phase == PlayerAnswering && s.Elapsed(now) >= s.TimeLimitMs
}

// Player is the runtime around the reducer: it subscribes to the room
// channel, applies events, enforces the local answer deadline with
// auto-submit, and writes the participant's answers to the shared store.
type Player struct {
	session     *domain.Session
	participant *domain.Participant
	answers     AnswerStore
	channel     realtime.Channel
	clock       Clock
	newID       func() string

	mu    sync.Mutex
	state PlayerState

	leave     chan struct{}
	leaveOnce sync.Once
}

func NewPlayer(session *domain.Session, participant *domain.Participant, answers AnswerStore, channel realtime.Channel) *Player {
	return &Player{
		session:     session,
		participant: participant,
		answers:     answers,
		channel:     channel,
		clock:       time.Now,
		newID:       uuid.NewString,
		state:       NewPlayerState(),
		leave:       make(chan struct{}),
	}
}

// WithClock swaps the time source, for deterministic tests.
func (p *Player) WithClock(clock Clock) *Player {
	p.clock = clock
	return p
}

// State returns a copy of the current player state.
func (p *Player) State() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Select records a local option choice.
func (p *Player) Select(optionID string) PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Select(p.state, optionID)
	return p.state
}

// Submit locks input and writes the answer with the locally derived elapsed
// time. Safe to call once per question; repeats are rejected by the store.
func (p *Player) Submit(ctx context.Context) error {
	p.mu.Lock()
	if p.state.Phase != PlayerAnswering {
		p.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	now := p.clock()
	answer := &domain.ParticipantAnswer{
		ID:            p.newID(),
		SessionID:     p.session.ID,
		ParticipantID: p.participant.ID,
		QuestionIndex: p.state.QuestionIndex,
		OptionIDs:     append([]string(nil), p.state.Selected...),
		TimeTakenMs:   p.state.Elapsed(now),
		SubmittedAt:   now,
	}
	if p.state.Question != nil {
		answer.QuestionID = p.state.Question.ID
	}
	p.state.Phase = PlayerAnswered
	p.mu.Unlock()

	if err := p.answers.SaveAnswer(ctx, answer); err != nil {
		return err
	}
	// fire-and-forget notification; the host polls the store regardless
	if err := p.channel.Broadcast(ctx, domain.NewEvent(domain.EventParticipantAnswered, domain.ParticipantAnsweredData{
		ParticipantID: p.participant.ID,
		QuestionIndex: answer.QuestionIndex,
	}, now)); err != nil {
		log.Printf("player %s: answered broadcast failed: %v", p.participant.ID, err)
	}
	return nil
}

// Run subscribes to the room and applies events until the game finishes,
// Leave is called, or ctx is canceled. With no inbound events it stays in
// waiting indefinitely.
func (p *Player) Run(ctx context.Context) error {
	events, cancel, err := p.channel.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	if err := p.channel.Track(ctx, p.participant.ID); err != nil {
		log.Printf("player %s: presence track failed: %v", p.participant.ID, err)
	}
	defer func() {
		if err := p.channel.Untrack(context.Background(), p.participant.ID); err != nil {
			log.Printf("player %s: presence untrack failed: %v", p.participant.ID, err)
		}
	}()

	deadline := time.NewTicker(50 * time.Millisecond)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.leave:
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.apply(ev)
			if p.State().Phase == PlayerFinished {
				return nil
			}
		case <-deadline.C:
			if p.State().Deadline(p.clock()) {
				// deadline reached: auto-submit whatever is selected; this
				// is also what rejects late submissions
				if err := p.Submit(ctx); err != nil && err != domain.ErrAnswerExists {
					log.Printf("player %s: auto-submit failed: %v", p.participant.ID, err)
				}
			}
		}
	}
}

// Leave exits unconditionally: unsubscribes and stops the runtime. Always
// available, nothing blocks it.
func (p *Player) Leave() {
	p.leaveOnce.Do(func() { close(p.leave) })
}

func (p *Player) apply(ev domain.RealtimeEvent) {
	if ev.Type == domain.EventParticipantKicked {
		var data domain.ParticipantKickedData
		if err := ev.DecodeData(&data); err == nil && data.ParticipantID == p.participant.ID {
			p.mu.Lock()
			p.state.Kicked = true
			p.state.Phase = PlayerFinished
			p.mu.Unlock()
			return
		}
		return
	}
	p.mu.Lock()
	p.state = Reduce(p.state, ev, p.clock())
	p.mu.Unlock()
}
