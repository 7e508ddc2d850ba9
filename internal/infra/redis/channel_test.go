package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quizparty/internal/domain"
	"quizparty/internal/realtime"
)

func newTestChannel(t *testing.T, sessionID string) (*miniredis.Miniredis, *Channel) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, NewChannel(client, sessionID, time.Hour)
}

func TestChannelDeliversBroadcasts(t *testing.T) {
	_, ch := newTestChannel(t, "sess-1")
	ctx, cancelCtx := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancelCtx()

	events, cancel, err := ch.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	if got := ch.State(); got != realtime.StateConnected {
		t.Fatalf("expected connected after subscribe, got %s", got)
	}

	want := domain.NewEvent(domain.EventRoundStarted, domain.RoundStartedData{Index: 2}, time.Now())
	if err := ch.Broadcast(ctx, want); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	select {
	case got := <-events:
		if got.Type != domain.EventRoundStarted {
			t.Fatalf("unexpected event %s", got.Type)
		}
		var data domain.RoundStartedData
		if err := got.DecodeData(&data); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if data.Index != 2 {
			t.Fatalf("expected index 2, got %d", data.Index)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never arrived")
	}
}

func TestChannelScopesTopicsPerSession(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	factory := NewChannelFactory(client, time.Hour)
	a := factory("room-a")
	b := factory("room-b")

	ctx, cancelCtx := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancelCtx()
	eventsB, cancel, err := b.Subscribe(ctx)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if err := a.Broadcast(ctx, domain.RealtimeEvent{Type: domain.EventGameStarting}); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	select {
	case ev := <-eventsB:
		t.Fatalf("cross-room leak: %s", ev.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestChannelPresence(t *testing.T) {
	mr, ch := newTestChannel(t, "sess-1")
	ctx := context.Background()

	if err := ch.Track(ctx, "p1"); err != nil {
		t.Fatalf("track: %v", err)
	}
	if err := ch.Track(ctx, "p2"); err != nil {
		t.Fatalf("track: %v", err)
	}
	ids, err := ch.Presence(ctx)
	if err != nil || len(ids) != 2 {
		t.Fatalf("presence: %v %v", ids, err)
	}
	if mr.TTL("room:sess-1:presence") <= 0 {
		t.Fatal("presence set should expire with the session")
	}
	if err := ch.Untrack(ctx, "p1"); err != nil {
		t.Fatalf("untrack: %v", err)
	}
	ids, _ = ch.Presence(ctx)
	if len(ids) != 1 || ids[0] != "p2" {
		t.Fatalf("expected only p2, got %v", ids)
	}
}

func TestChannelCloseFreezesState(t *testing.T) {
	_, ch := newTestChannel(t, "sess-1")
	if err := ch.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := ch.State(); got != realtime.StateDisconnected {
		t.Fatalf("expected disconnected, got %s", got)
	}
}
