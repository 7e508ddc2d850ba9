// Package realtime defines the per-room pub/sub contract the host and
// player state machines depend on. Implementations live under internal/infra.
package realtime

import (
	"context"

	"quizparty/internal/domain"
)

// ConnState mirrors the transport's connection lifecycle.
type ConnState string

const (
	StateConnected    ConnState = "connected"
	StateConnecting   ConnState = "connecting"
	StateDisconnected ConnState = "disconnected"
	StateError        ConnState = "error"
)

// Channel is one room's broadcast channel. Broadcast is fire-and-forget:
// delivery is at-least-once to current subscribers with no ordering or
// completeness guarantee across actors, and a send failure never blocks the
// caller's state machine.
type Channel interface {
	// Broadcast sends an event to every current subscriber.
	Broadcast(ctx context.Context, event domain.RealtimeEvent) error

	// Subscribe returns a stream of events for this room. The cancel func
	// must be called to release the subscription.
	Subscribe(ctx context.Context) (<-chan domain.RealtimeEvent, func(), error)

	// Track marks a participant as present in the room.
	Track(ctx context.Context, participantID string) error

	// Untrack removes a participant's presence marker.
	Untrack(ctx context.Context, participantID string) error

	// Presence lists the participant ids currently tracked.
	Presence(ctx context.Context) ([]string, error)

	// State reports the current connection state.
	State() ConnState

	// ReconnectAttempts counts resubscribe attempts since the channel opened.
	ReconnectAttempts() int

	// Close tears the channel down and drops all subscribers.
	Close() error
}

// Factory builds the channel for a session. Injected into the lobby, host,
// and transport so tests can substitute in-process channels and multiple
// games can run in one process.
type Factory func(sessionID string) Channel
