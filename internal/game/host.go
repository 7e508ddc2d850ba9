package game

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"quizparty/internal/domain"
	"quizparty/internal/modes"
	"quizparty/internal/realtime"
)

// HostState names a state of the host machine.
type HostState string

const (
	HostLobby      HostState = "lobby"
	HostStarting   HostState = "starting"
	HostReveal     HostState = "question_reveal"
	HostAnswering  HostState = "answering"
	HostResults    HostState = "results"
	HostNext       HostState = "next"
	HostNoQuestion HostState = "no_question"
	HostFinished   HostState = "finished"
)

// HostConfig tunes the host's fixed delays.
type HostConfig struct {
	// Countdown separates start (and each reveal under the auto pattern)
	// from the answer window opening.
	Countdown time.Duration
	// InterRound separates advancing past results from the next reveal, so
	// client transitions can settle.
	InterRound time.Duration
	// MinPlayers is the active-participant floor to start a game.
	MinPlayers int
}

type hostCmdKind int

const (
	cmdStartGame hostCmdKind = iota
	cmdStartRound
	cmdEndRound
	cmdAdvance
	cmdEndGame
)

type hostCommand struct {
	kind  hostCmdKind
	reply chan error
}

// Host is the authoritative driver of one session. It runs a single
// event loop; the host is the only writer of session state and participant
// scores, so no locking is needed around them.
//
// Broadcasts are fire-and-forget: a failed send is logged and the machine
// proceeds. Nothing waits for player acknowledgment.
type Host struct {
	sessionID    string
	sessions     SessionStore
	participants ParticipantStore
	answers      AnswerStore
	channel      realtime.Channel
	cfg          HostConfig
	clock        Clock

	cmds chan hostCommand

	mu    sync.Mutex
	state HostState

	// loop-owned; never touched outside Run.
	sess  *domain.Session
	timer *time.Timer
}

func NewHost(sessionID string, sessions SessionStore, participants ParticipantStore, answers AnswerStore, channel realtime.Channel, cfg HostConfig) *Host {
	if cfg.Countdown <= 0 {
		cfg.Countdown = 3 * time.Second
	}
	if cfg.InterRound <= 0 {
		cfg.InterRound = 2 * time.Second
	}
	if cfg.MinPlayers <= 0 {
		cfg.MinPlayers = 2
	}
	return &Host{
		sessionID:    sessionID,
		sessions:     sessions,
		participants: participants,
		answers:      answers,
		channel:      channel,
		cfg:          cfg,
		clock:        time.Now,
		cmds:         make(chan hostCommand, 16),
	}
}

// WithClock swaps the time source, for deterministic tests.
func (h *Host) WithClock(clock Clock) *Host {
	h.clock = clock
	return h
}

// State is a read of the machine's current state.
func (h *Host) State() HostState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Host) setState(s HostState) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

// StartGame begins the pre-game countdown. Requires the lobby state and at
// least MinPlayers active participants.
func (h *Host) StartGame(ctx context.Context) error { return h.do(ctx, cmdStartGame) }

// StartRound opens the answer window for a revealed question. Only needed
// for host-controlled reveal modes; auto modes open after the countdown.
func (h *Host) StartRound(ctx context.Context) error { return h.do(ctx, cmdStartRound) }

// EndRound closes the answer window early and runs the scoring pass.
func (h *Host) EndRound(ctx context.Context) error { return h.do(ctx, cmdEndRound) }

// Advance moves past results to the next question, or finishes the game
// after the last one.
func (h *Host) Advance(ctx context.Context) error { return h.do(ctx, cmdAdvance) }

// EndGame terminates immediately from any state. An in-flight round is not
// scored; the broadcast carries the early-termination tag.
func (h *Host) EndGame(ctx context.Context) error { return h.do(ctx, cmdEndGame) }

func (h *Host) do(ctx context.Context, kind hostCmdKind) error {
	cmd := hostCommand{kind: kind, reply: make(chan error, 1)}
	select {
	case h.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the machine until the game finishes or ctx is canceled.
func (h *Host) Run(ctx context.Context) error {
	sess, err := h.sessions.GetSession(ctx, h.sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	h.sess = sess
	h.setState(HostLobby)
	defer h.stopTimer()

	for {
		var timerC <-chan time.Time
		if h.timer != nil {
			timerC = h.timer.C
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-h.cmds:
			cmd.reply <- h.handle(ctx, cmd.kind)
		case <-timerC:
			h.timer = nil
			h.onTimer(ctx)
		}
		if h.State() == HostFinished {
			return nil
		}
	}
}

func (h *Host) handle(ctx context.Context, kind hostCmdKind) error {
	switch kind {
	case cmdStartGame:
		if h.State() != HostLobby {
			return domain.ErrInvalidTransition
		}
		return h.startGame(ctx)
	case cmdStartRound:
		if h.State() != HostReveal {
			return domain.ErrInvalidTransition
		}
		return h.startRound(ctx)
	case cmdEndRound:
		if h.State() != HostAnswering {
			return domain.ErrInvalidTransition
		}
		return h.endRound(ctx)
	case cmdAdvance:
		if h.State() != HostResults {
			return domain.ErrInvalidTransition
		}
		return h.advance(ctx)
	case cmdEndGame:
		return h.finish(ctx, true)
	default:
		return domain.ErrInvalidTransition
	}
}

// onTimer fires the automatic transition pending for the current state.
func (h *Host) onTimer(ctx context.Context) {
	var err error
	switch h.State() {
	case HostStarting:
		err = h.reveal(ctx)
	case HostReveal:
		err = h.startRound(ctx)
	case HostAnswering:
		err = h.endRound(ctx)
	case HostNext:
		// inter-round delay elapsed after an Advance
		err = h.reveal(ctx)
	}
	if err != nil {
		log.Printf("host %s: timer transition from %s failed: %v", h.sessionID, h.State(), err)
	}
}

func (h *Host) startGame(ctx context.Context) error {
	active, err := h.activeParticipants(ctx)
	if err != nil {
		return err
	}
	if len(active) < h.cfg.MinPlayers {
		return domain.ErrNotEnoughPlayers
	}

	now := h.clock()
	h.sess.Status = domain.SessionStarting
	h.sess.StartedAt = &now
	if err := h.sessions.UpdateSession(ctx, h.sess); err != nil {
		return err
	}

	h.setState(HostStarting)
	h.broadcast(domain.EventGameStarting, domain.GameStartingData{
		CountdownSeconds: int(h.cfg.Countdown / time.Second),
	})
	h.setTimer(h.cfg.Countdown)
	return nil
}

// reveal broadcasts the current question and arms the follow-up transition
// per the mode's reveal pattern.
func (h *Host) reveal(ctx context.Context) error {
	q, ok := h.sess.Question(h.sess.CurrentQuestion)
	if !ok {
		// Out-of-range index: no question available. Exit-only state.
		h.setState(HostNoQuestion)
		h.stopTimer()
		return domain.ErrNoQuestion
	}

	if h.sess.Status != domain.SessionInProgress {
		h.sess.Status = domain.SessionInProgress
		if err := h.sessions.UpdateSession(ctx, h.sess); err != nil {
			return err
		}
	}

	pattern := modes.RevealAuto
	if m, ok := modes.Get(h.sess.ModeID); ok {
		pattern = m.Reveal
	}

	h.setState(HostReveal)
	h.broadcast(domain.EventQuestionRevealed, domain.QuestionRevealedData{
		Index:         h.sess.CurrentQuestion,
		Question:      domain.ViewOf(q),
		TimeLimitMs:   h.sess.TimeLimit.Milliseconds(),
		RevealPattern: string(pattern),
	})
	if pattern == modes.RevealAuto {
		h.setTimer(h.cfg.Countdown)
	} else {
		h.stopTimer()
	}
	return nil
}

func (h *Host) startRound(ctx context.Context) error {
	now := h.clock()
	h.sess.QuestionStartedAt = &now
	if err := h.sessions.UpdateSession(ctx, h.sess); err != nil {
		return err
	}

	h.setState(HostAnswering)
	h.broadcast(domain.EventRoundStarted, domain.RoundStartedData{
		Index:       h.sess.CurrentQuestion,
		StartedAtMs: now.UnixMilli(),
	})
	h.setTimer(h.sess.TimeLimit)
	return nil
}

// endRound is the scoring pass. Every active participant is scored: a
// missing answer defaults to incorrect with the full time limit elapsed,
// disconnected players included.
func (h *Host) endRound(ctx context.Context) error {
	h.stopTimer()
	idx := h.sess.CurrentQuestion
	q, ok := h.sess.Question(idx)
	if !ok {
		h.setState(HostNoQuestion)
		return domain.ErrNoQuestion
	}

	submitted, err := h.answers.ListAnswers(ctx, h.sess.ID, idx)
	if err != nil {
		return err
	}
	byParticipant := make(map[string]*domain.ParticipantAnswer, len(submitted))
	for _, a := range submitted {
		byParticipant[a.ParticipantID] = a
	}

	participants, err := h.activeParticipants(ctx)
	if err != nil {
		return err
	}
	h.refreshPresence(ctx, participants)

	views := make([]domain.AnswerView, 0, len(participants))
	for _, p := range participants {
		answer := byParticipant[p.ID]
		correct := false
		timeTaken := h.sess.TimeLimit.Milliseconds()
		if answer != nil {
			correct = q.Evaluate(answer.OptionIDs)
			timeTaken = answer.TimeTakenMs
		}

		points := modes.CalculatePoints(correct, timeTaken, h.sess.ModeID, p.Streak, p.ModeData)
		streakAtAnswer := p.Streak

		p.Score += points
		if p.Score < 0 {
			p.Score = 0
		}
		if correct {
			p.Streak++
			if p.Streak > p.MaxStreak {
				p.MaxStreak = p.Streak
			}
		} else {
			p.Streak = 0
		}
		p.TimeSpentMs += timeTaken
		p.ModeData = modes.ApplyRound(h.sess.ModeID, p.ModeData, correct, points, timeTaken)
		if err := h.participants.UpdateParticipant(ctx, p); err != nil {
			return err
		}

		view := domain.AnswerView{
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Correct:       correct,
			TimeTakenMs:   timeTaken,
			Points:        points,
			Streak:        p.Streak,
			TotalScore:    p.Score,
		}
		if answer != nil {
			view.OptionIDs = answer.OptionIDs
			answer.Correct = correct
			answer.Points = points
			answer.StreakAtTime = streakAtAnswer
			if err := h.answers.RecordResult(ctx, answer); err != nil {
				log.Printf("host %s: record answer result: %v", h.sessionID, err)
			}
		}
		views = append(views, view)
	}

	h.setState(HostResults)
	h.broadcast(domain.EventResultsShown, domain.ResultsShownData{
		Index:            idx,
		CorrectOptionIDs: q.CorrectOptionIDs(),
		Answers:          views,
		Leaderboard:      domain.Rank(participants),
	})
	return nil
}

func (h *Host) advance(ctx context.Context) error {
	if h.sess.LastQuestion(h.sess.CurrentQuestion) {
		return h.finish(ctx, false)
	}
	h.sess.CurrentQuestion++
	h.sess.QuestionStartedAt = nil
	if err := h.sessions.UpdateSession(ctx, h.sess); err != nil {
		return err
	}
	// Settle delay before the next reveal. Advancing again in this window
	// is an invalid transition; the index moves at most once per round.
	h.setState(HostNext)
	h.setTimer(h.cfg.InterRound)
	return nil
}

func (h *Host) finish(ctx context.Context, early bool) error {
	if h.State() == HostFinished {
		return nil
	}
	h.stopTimer()
	now := h.clock()
	h.sess.Status = domain.SessionFinished
	h.sess.FinishedAt = &now
	if err := h.sessions.UpdateSession(ctx, h.sess); err != nil {
		return err
	}
	if err := h.sessions.ReleaseRoomCode(ctx, h.sess.RoomCode); err != nil {
		log.Printf("host %s: release room code: %v", h.sessionID, err)
	}

	participants, err := h.activeParticipants(ctx)
	if err != nil {
		return err
	}
	board := domain.Rank(participants)
	for _, entry := range board {
		for _, p := range participants {
			if p.ID == entry.ParticipantID {
				p.FinalRank = entry.Rank
				if err := h.participants.UpdateParticipant(ctx, p); err != nil {
					log.Printf("host %s: persist final rank: %v", h.sessionID, err)
				}
				break
			}
		}
	}

	tag := domain.EventGameFinished
	if early {
		tag = domain.EventGameEndedEarly
	}
	h.setState(HostFinished)
	h.broadcast(tag, domain.GameFinishedData{Leaderboard: board})
	return nil
}

func (h *Host) activeParticipants(ctx context.Context) ([]*domain.Participant, error) {
	all, err := h.participants.ListParticipants(ctx, h.sess.ID)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, p := range all {
		if p.Active() {
			active = append(active, p)
		}
	}
	return active, nil
}

// refreshPresence folds the channel's presence set into the connected flags.
// Best effort; presence is eventually consistent.
func (h *Host) refreshPresence(ctx context.Context, participants []*domain.Participant) {
	present, err := h.channel.Presence(ctx)
	if err != nil {
		return
	}
	set := make(map[string]struct{}, len(present))
	for _, id := range present {
		set[id] = struct{}{}
	}
	for _, p := range participants {
		_, ok := set[p.ID]
		p.Connected = ok
	}
}

func (h *Host) broadcast(t domain.EventType, data any) {
	if err := h.channel.Broadcast(context.Background(), domain.NewEvent(t, data, h.clock())); err != nil {
		log.Printf("host %s: broadcast %s failed: %v", h.sessionID, t, err)
	}
}

func (h *Host) setTimer(d time.Duration) {
	h.stopTimer()
	h.timer = time.NewTimer(d)
}

func (h *Host) stopTimer() {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}
