package game

import (
	"context"
	"testing"

	"quizparty/internal/infra/memory"
)

func TestManagerReturnsOneHostPerSession(t *testing.T) {
	store := memory.NewStore()
	sess, _, _ := seedGame(t, store, "u1", "u2")
	hub := memory.NewHub()
	m := NewManager(store, store, store, hub.Channel, fastHostConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := m.Host(ctx, sess.ID)
	if h == nil {
		t.Fatal("expected a host")
	}
	if again := m.Host(ctx, sess.ID); again != h {
		t.Fatal("second lookup must return the same host")
	}
	if !m.Running(sess.ID) {
		t.Fatal("host loop should be registered")
	}
	if m.Running("some-other-session") {
		t.Fatal("unknown session should not be running")
	}

	// a finished game unregisters its host
	if err := h.EndGame(ctx); err != nil {
		t.Fatalf("end game: %v", err)
	}
	waitFor(t, func() bool { return !m.Running(sess.ID) })
}

func TestManagerBuildsPlayersOnTheSharedChannel(t *testing.T) {
	store := memory.NewStore()
	sess, ps, _ := seedGame(t, store, "u1", "u2")
	hub := memory.NewHub()
	m := NewManager(store, store, store, hub.Channel, fastHostConfig())

	p := m.NewPlayer(sess, ps[0])
	if p == nil {
		t.Fatal("expected a player")
	}
	if m.Channel(sess.ID) != hub.Channel(sess.ID) {
		t.Fatal("manager must hand out the hub's memoized channel")
	}
}
