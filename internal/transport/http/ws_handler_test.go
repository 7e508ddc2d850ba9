package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quizparty/internal/domain"
	"quizparty/internal/game"
	"quizparty/internal/infra/memory"
)

type quizRepoStub struct{ quiz domain.Quiz }

func (s quizRepoStub) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quizID != s.quiz.ID {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return s.quiz, nil
}

func testQuiz() domain.Quiz {
	return domain.Quiz{
		ID:    "quiz-1",
		Title: "Capitals",
		Questions: []domain.Question{
			{ID: "q1", Prompt: "Capital of France?", Options: []domain.Option{
				{ID: "q1o1", Text: "Paris", Correct: true},
				{ID: "q1o2", Text: "Lyon"},
			}},
			{ID: "q2", Prompt: "Capital of Japan?", Options: []domain.Option{
				{ID: "q2o1", Text: "Tokyo", Correct: true},
				{ID: "q2o2", Text: "Osaka"},
			}},
		},
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewStore()
	hub := memory.NewHub()
	lobby := game.NewLobby(store, store, quizRepoStub{quiz: testQuiz()}, game.LobbyConfig{})
	manager := game.NewManager(store, store, store, hub.Channel, game.HostConfig{
		Countdown:  5 * time.Millisecond,
		InterRound: 5 * time.Millisecond,
		MinPlayers: 2,
	})
	handler := NewWSHandler(lobby, manager)

	mux := http.NewServeMux()
	mux.HandleFunc("/modes", handler.ListModes)
	mux.HandleFunc("/sessions", handler.CreateSession)
	mux.HandleFunc("/ws", handler.ServeWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func createSession(t *testing.T, srv *httptest.Server) joinedPayload {
	t.Helper()
	body, _ := json.Marshal(createSessionRequest{
		QuizID:     "quiz-1",
		ModeID:     "classic_race",
		HostUserID: "u-host",
		HostName:   "Hosty",
	})
	resp, err := http.Post(srv.URL+"/sessions", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create session status %d", resp.StatusCode)
	}
	var out joinedPayload
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

// readUntil drains messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) wsMessage {
	t.Helper()
	for i := 0; i < 50; i++ {
		msg := readMessage(t, conn)
		if msg.Type == want {
			return msg
		}
	}
	t.Fatalf("never received %s", want)
	return wsMessage{}
}

func sendMessage(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	raw, _ := json.Marshal(payload)
	if err := conn.WriteJSON(inboundMessage{Type: msgType, Payload: raw}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func TestListModes(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/modes")
	if err != nil {
		t.Fatalf("get modes: %v", err)
	}
	defer resp.Body.Close()
	var out []struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 7 || out[0].ID != "classic_race" {
		t.Fatalf("unexpected catalog %+v", out)
	}
}

func TestCreateSessionRejectsIncompleteRequests(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Post(srv.URL+"/sessions", "application/json", strings.NewReader(`{"quizId":"quiz-1"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPlayerJoinOverWebsocket(t *testing.T) {
	srv := newTestServer(t)
	created := createSession(t, srv)

	conn := dial(t, wsURL(srv, "roomCode="+created.RoomCode+"&userId=u1&name=Ana"))
	joined := readMessage(t, conn)
	if joined.Type != "joined" {
		t.Fatalf("expected joined, got %s", joined.Type)
	}
	var payload joinedPayload
	if err := json.Unmarshal(joined.Payload, &payload); err != nil {
		t.Fatalf("decode joined: %v", err)
	}
	if payload.SessionID != created.SessionID || payload.QuizTitle != "Capitals" {
		t.Fatalf("unexpected join payload %+v", payload)
	}

	// same user again is refused
	dup := dial(t, wsURL(srv, "roomCode="+created.RoomCode+"&userId=u1&name=Ana"))
	refusal := readMessage(t, dup)
	if refusal.Type != "error" {
		t.Fatalf("expected an error, got %s", refusal.Type)
	}
	var errMsg errorPayload
	if err := json.Unmarshal(refusal.Payload, &errMsg); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if !strings.Contains(errMsg.Message, "already in this room") {
		t.Fatalf("unexpected refusal %q", errMsg.Message)
	}
}

func TestHostDrivesAGameOverWebsockets(t *testing.T) {
	srv := newTestServer(t)
	created := createSession(t, srv)

	p1 := dial(t, wsURL(srv, "roomCode="+created.RoomCode+"&userId=u1&name=Ana"))
	readUntil(t, p1, "joined")
	p2 := dial(t, wsURL(srv, "roomCode="+created.RoomCode+"&userId=u2&name=Bo"))
	readUntil(t, p2, "joined")

	host := dial(t, wsURL(srv, "role=host&sessionId="+created.SessionID+"&participantId="+created.ParticipantID))
	sendMessage(t, host, "start_game", nil)
	readUntil(t, host, "ack")

	readUntil(t, p1, string(domain.EventGameStarting))
	reveal := readUntil(t, p1, string(domain.EventQuestionRevealed))
	var revealData domain.QuestionRevealedData
	if err := json.Unmarshal(reveal.Payload, &revealData); err != nil {
		t.Fatalf("decode reveal: %v", err)
	}
	if revealData.Question.ID != "q1" {
		t.Fatalf("unexpected question %+v", revealData.Question)
	}
	readUntil(t, p1, string(domain.EventRoundStarted))

	// the player runtime applies round_started on its own subscription, so
	// keep selecting until the runtime reports the choice locked in
	var locked bool
	for i := 0; i < 50 && !locked; i++ {
		sendMessage(t, p1, "select", selectPayload{OptionID: "q1o1"})
		msg := readUntil(t, p1, "selection")
		if strings.Contains(string(msg.Payload), "q1o1") {
			locked = true
		} else {
			time.Sleep(10 * time.Millisecond)
		}
	}
	if !locked {
		t.Fatal("selection never registered")
	}
	sendMessage(t, p1, "submit", nil)
	readUntil(t, p1, "submitted")

	sendMessage(t, host, "end_round", nil)
	results := readUntil(t, p1, string(domain.EventResultsShown))
	var resultsData domain.ResultsShownData
	if err := json.Unmarshal(results.Payload, &resultsData); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	found := false
	for _, v := range resultsData.Answers {
		if v.Correct && v.Points > 0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a scored correct answer in %+v", resultsData.Answers)
	}

	sendMessage(t, host, "end_game", nil)
	readUntil(t, p1, string(domain.EventGameEndedEarly))
	readUntil(t, p2, string(domain.EventGameEndedEarly))
}

func TestHostSocketRefusesNonHostParticipants(t *testing.T) {
	srv := newTestServer(t)
	created := createSession(t, srv)

	p1 := dial(t, wsURL(srv, "roomCode="+created.RoomCode+"&userId=u1&name=Mallory"))
	joined := readUntil(t, p1, "joined")
	var payload joinedPayload
	if err := json.Unmarshal(joined.Payload, &payload); err != nil {
		t.Fatalf("decode joined: %v", err)
	}

	// a joined player knows the session id but must not get host controls
	url := wsURL(srv, "role=host&sessionId="+payload.SessionID+"&participantId="+payload.ParticipantID)
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected the host handshake to be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}

	// an unknown session is refused too
	url = wsURL(srv, "role=host&sessionId=no-such-session&participantId="+created.ParticipantID)
	_, resp, err = websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected the host handshake to be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %+v", resp)
	}

	// the real host still connects and commands
	host := dial(t, wsURL(srv, "role=host&sessionId="+created.SessionID+"&participantId="+created.ParticipantID))
	sendMessage(t, host, "kick", kickPayload{ParticipantID: payload.ParticipantID})
	readUntil(t, host, "ack")
}

func TestHostCanKickOverWebsocket(t *testing.T) {
	srv := newTestServer(t)
	created := createSession(t, srv)

	p1 := dial(t, wsURL(srv, "roomCode="+created.RoomCode+"&userId=u1&name=Ana"))
	readUntil(t, p1, "joined")

	host := dial(t, wsURL(srv, "role=host&sessionId="+created.SessionID+"&participantId="+created.ParticipantID))

	// need the kicked player's participant id; it rides in the joined payload
	p2 := dial(t, wsURL(srv, "roomCode="+created.RoomCode+"&userId=u2&name=Bo"))
	joined := readUntil(t, p2, "joined")
	var payload joinedPayload
	if err := json.Unmarshal(joined.Payload, &payload); err != nil {
		t.Fatalf("decode joined: %v", err)
	}

	sendMessage(t, host, "kick", kickPayload{ParticipantID: payload.ParticipantID})
	readUntil(t, host, "ack")
	readUntil(t, p2, string(domain.EventParticipantKicked))
}
