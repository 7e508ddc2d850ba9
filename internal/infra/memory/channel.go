package memory

import (
	"context"
	"sync"

	"quizparty/internal/domain"
	"quizparty/internal/realtime"
)

// Hub hands out one in-process Channel per session, memoized so every actor
// in the process shares the same fan-out.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*Channel
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*Channel)}
}

// Channel implements realtime.Factory.
func (h *Hub) Channel(sessionID string) realtime.Channel {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.rooms[sessionID]; ok {
		return ch
	}
	ch := newChannel()
	h.rooms[sessionID] = ch
	return ch
}

// Channel is an in-process room channel: broadcast fan-out over buffered
// subscriber channels with presence tracked in a set. It never disconnects,
// so State is always connected and the reconnect counter stays at zero.
type Channel struct {
	mu          sync.Mutex
	subscribers map[chan domain.RealtimeEvent]struct{}
	presence    map[string]struct{}
	closed      bool
}

func newChannel() *Channel {
	return &Channel{
		subscribers: make(map[chan domain.RealtimeEvent]struct{}),
		presence:    make(map[string]struct{}),
	}
}

func (c *Channel) Broadcast(_ context.Context, event domain.RealtimeEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.subscribers {
		select {
		case ch <- event:
		default:
			// drop the oldest update so a slow subscriber never blocks the sender
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
	return nil
}

func (c *Channel) Subscribe(_ context.Context) (<-chan domain.RealtimeEvent, func(), error) {
	ch := make(chan domain.RealtimeEvent, 16)
	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel, nil
}

func (c *Channel) Track(_ context.Context, participantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.presence[participantID] = struct{}{}
	return nil
}

func (c *Channel) Untrack(_ context.Context, participantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.presence, participantID)
	return nil
}

func (c *Channel) Presence(_ context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.presence))
	for id := range c.presence {
		out = append(out, id)
	}
	return out, nil
}

func (c *Channel) State() realtime.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return realtime.StateDisconnected
	}
	return realtime.StateConnected
}

func (c *Channel) ReconnectAttempts() int { return 0 }

func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for ch := range c.subscribers {
		delete(c.subscribers, ch)
		close(ch)
	}
	return nil
}
