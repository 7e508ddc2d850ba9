package redis

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quizparty/internal/domain"
	"quizparty/internal/realtime"
)

// Channel is a room channel on Redis pub/sub: broadcast is PUBLISH on the
// room topic, presence is a Redis set. Delivery is fire-and-forget to
// whoever is subscribed at the moment; missed events are not replayed, and
// a reconnecting subscriber only resumes with new ones.
type Channel struct {
	client    *redis.Client
	sessionID string
	ttl       time.Duration

	mu         sync.Mutex
	state      realtime.ConnState
	reconnects int
	closed     bool
}

// NewChannelFactory returns a realtime.Factory producing Redis channels.
func NewChannelFactory(client *redis.Client, ttl time.Duration) realtime.Factory {
	return func(sessionID string) realtime.Channel {
		return NewChannel(client, sessionID, ttl)
	}
}

func NewChannel(client *redis.Client, sessionID string, ttl time.Duration) *Channel {
	return &Channel{
		client:    client,
		sessionID: sessionID,
		ttl:       ttl,
		state:     realtime.StateConnecting,
	}
}

func (c *Channel) topic() string       { return "room:" + c.sessionID + ":events" }
func (c *Channel) presenceKey() string { return "room:" + c.sessionID + ":presence" }

func (c *Channel) Broadcast(ctx context.Context, event domain.RealtimeEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, c.topic(), raw).Err()
}

// Subscribe pumps pub/sub messages into a buffered channel. Receive errors
// flip the connection state and trigger a resubscribe with backoff, bumping
// the reconnect counter each attempt.
func (c *Channel) Subscribe(ctx context.Context) (<-chan domain.RealtimeEvent, func(), error) {
	sub := c.client.Subscribe(ctx, c.topic())
	// wait for the subscription to be confirmed before reporting connected
	if _, err := sub.Receive(ctx); err != nil {
		c.setState(realtime.StateError)
		_ = sub.Close()
		return nil, nil, err
	}
	c.setState(realtime.StateConnected)

	out := make(chan domain.RealtimeEvent, 16)
	stop := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		defer close(out)
		for {
			msg, err := sub.ReceiveMessage(ctx)
			if err != nil {
				select {
				case <-stop:
					return
				case <-ctx.Done():
					c.setState(realtime.StateDisconnected)
					return
				default:
				}
				c.setState(realtime.StateConnecting)
				c.bumpReconnects()
				time.Sleep(200 * time.Millisecond)
				continue
			}
			c.setState(realtime.StateConnected)
			var event domain.RealtimeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("room %s: drop malformed event: %v", c.sessionID, err)
				continue
			}
			select {
			case out <- event:
			default:
				// drop the oldest so a slow consumer never stalls the pump
				select {
				case <-out:
				default:
				}
				out <- event
			}
		}
	}()

	cancel := func() {
		stopOnce.Do(func() {
			close(stop)
			_ = sub.Close()
		})
	}
	return out, cancel, nil
}

func (c *Channel) Track(ctx context.Context, participantID string) error {
	pipe := c.client.Pipeline()
	pipe.SAdd(ctx, c.presenceKey(), participantID)
	pipe.Expire(ctx, c.presenceKey(), c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *Channel) Untrack(ctx context.Context, participantID string) error {
	return c.client.SRem(ctx, c.presenceKey(), participantID).Err()
}

func (c *Channel) Presence(ctx context.Context) ([]string, error) {
	return c.client.SMembers(ctx, c.presenceKey()).Result()
}

func (c *Channel) State() realtime.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) ReconnectAttempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnects
}

func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.state = realtime.StateDisconnected
	return nil
}

func (c *Channel) setState(s realtime.ConnState) {
	c.mu.Lock()
	if !c.closed {
		c.state = s
	}
	c.mu.Unlock()
}

func (c *Channel) bumpReconnects() {
	c.mu.Lock()
	c.reconnects++
	c.mu.Unlock()
}
