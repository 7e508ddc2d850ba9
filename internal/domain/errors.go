package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session matches the id or room code.
	ErrSessionNotFound = errors.New("session not found")
	// ErrParticipantNotFound is returned when a user tries to act before joining.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrAlreadyJoined rejects a repeat join by the same user.
	ErrAlreadyJoined = errors.New("already in this room")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidRoomCode rejects codes that are not exactly 4 digits.
	ErrInvalidRoomCode = errors.New("invalid room code")
	// ErrNotHost guards host-only actions.
	ErrNotHost = errors.New("only the host may do that")
	// ErrNotEnoughPlayers blocks starting with fewer than two active participants.
	ErrNotEnoughPlayers = errors.New("at least two players are required to start")
	// ErrSessionNotJoinable is returned when joining a session past its lobby phase.
	ErrSessionNotJoinable = errors.New("session is no longer joinable")
	// ErrSessionFull is returned when the mode's max player count is reached.
	ErrSessionFull = errors.New("session is full")
	// ErrInvalidTransition rejects a host command that does not apply in the current state.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrAnswerExists enforces at most one answer per participant and question.
	ErrAnswerExists = errors.New("answer already submitted")
	// ErrNoQuestion indicates the current question index is out of range.
	ErrNoQuestion = errors.New("no question available")
	// ErrInvalidModeChoice rejects a bet, bid, or difficulty the mode does not allow.
	ErrInvalidModeChoice = errors.New("invalid mode choice")
)
